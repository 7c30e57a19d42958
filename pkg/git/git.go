package gitutils

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-git/v5"
)

//HeadCommit reads the commit checked out in the working tree containing dir
func HeadCommit(dir string) (Commit, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Commit{}, errors.Wrapf(err, "failed to open git repository at %s", dir)
	}

	ref, err := repo.Head()
	if err != nil {
		return Commit{}, errors.Wrapf(err, "failed to resolve HEAD of %s", dir)
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return Commit{}, errors.Wrapf(err, "failed to read commit %s", ref.Hash())
	}

	out := Commit{
		Hash:    commit.Hash.String(),
		Author:  commit.Author.Name,
		Message: strings.TrimSpace(commit.Message),
		Time:    commit.Author.When,
	}
	if ref.Name().IsBranch() {
		out.Branch = ref.Name().Short()
	}
	return out, nil
}

//RevisionCache resolves each code directory once per run
type RevisionCache struct {
	commits map[string]Commit
	errs    map[string]error
}

func NewRevisionCache() *RevisionCache {
	return &RevisionCache{
		commits: make(map[string]Commit),
		errs:    make(map[string]error),
	}
}

//Head returns the HEAD commit of dir, nil when dir is empty
func (rc *RevisionCache) Head(dir string) (*Commit, error) {
	if dir == "" {
		return nil, nil
	}
	if err, failed := rc.errs[dir]; failed {
		return nil, err
	}
	if c, ok := rc.commits[dir]; ok {
		return &c, nil
	}
	c, err := HeadCommit(dir)
	if err != nil {
		rc.errs[dir] = err
		return nil, err
	}
	rc.commits[dir] = c
	return &c, nil
}
