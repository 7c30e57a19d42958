package gitutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.rb"), []byte("puts 1\n"), 0644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("app.rb")
	require.NoError(t, err)

	hash, err := wt.Commit("initial import\n", &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: time.Unix(1600000000, 0)},
	})
	require.NoError(t, err)
	return dir, hash.String()
}

func TestHeadCommit(t *testing.T) {
	dir, hash := initRepo(t)
	sub := filepath.Join(dir, "app")
	require.NoError(t, os.Mkdir(sub, 0755))

	commit, err := HeadCommit(sub)
	require.NoError(t, err)
	assert.Equal(t, hash, commit.Hash)
	assert.Equal(t, "Dev", commit.Author)
	assert.Equal(t, "initial import", commit.Message)
	assert.Equal(t, "master", commit.Branch)
	assert.Len(t, commit.Short(), 12)
}

func TestHeadCommitNotARepository(t *testing.T) {
	_, err := HeadCommit(t.TempDir())
	assert.Error(t, err)
}

func TestRevisionCache(t *testing.T) {
	dir, hash := initRepo(t)
	cache := NewRevisionCache()

	commit, err := cache.Head("")
	require.NoError(t, err)
	assert.Nil(t, commit)

	commit, err = cache.Head(dir)
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.Equal(t, hash, commit.Hash)
	assert.Equal(t, "master", commit.Branch)

	//cached even after the repository disappears
	require.NoError(t, os.RemoveAll(filepath.Join(dir, ".git")))
	commit, err = cache.Head(dir)
	require.NoError(t, err)
	assert.Equal(t, hash, commit.Hash)

	missing := t.TempDir()
	_, err = cache.Head(missing)
	assert.Error(t, err)
	_, err = cache.Head(missing)
	assert.Error(t, err)
}
