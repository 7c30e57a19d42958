package archive

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeReport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func zipEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	entries := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = string(data)
	}
	return entries
}

func TestCompress(t *testing.T) {
	dir := t.TempDir()
	path := writeReport(t, dir, "a.json", `{"warnings": []}`)

	m := NewManager("", zap.NewNop().Sugar())
	zipPath, err := m.Compress(path)
	require.NoError(t, err)

	assert.Equal(t, path+".zip", zipPath)
	assert.NoFileExists(t, path)
	assert.Equal(t, map[string]string{"a.json": `{"warnings": []}`}, zipEntries(t, zipPath))
}

func TestCompressReplacesStaleArchive(t *testing.T) {
	dir := t.TempDir()
	path := writeReport(t, dir, "a.json", "fresh")
	writeReport(t, dir, "a.json.zip", "stale bytes, not even a zip")

	zipPath, err := NewManager("", zap.NewNop().Sugar()).Compress(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.json": "fresh"}, zipEntries(t, zipPath))
}

func TestCompressMissingFileLeavesNoArchive(t *testing.T) {
	dir := t.TempDir()
	_, err := NewManager("", zap.NewNop().Sugar()).Compress(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "missing.json.zip"))
}

// compressAndRelocate is what a delivered report goes through
func compressAndRelocate(t *testing.T, m *Manager, path string) (string, error) {
	t.Helper()
	zipPath, err := m.Compress(path)
	require.NoError(t, err)
	return m.Relocate(zipPath)
}

func TestRelocateWithoutDirectoryStaysInPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeReport(t, dir, "a.json", "x")

	dest, err := compressAndRelocate(t, NewManager("", zap.NewNop().Sugar()), path)
	require.NoError(t, err)
	assert.Equal(t, path+".zip", dest)
	assert.FileExists(t, dest)
}

func TestRelocateMovesIntoDirectory(t *testing.T) {
	input := t.TempDir()
	archiveDir := t.TempDir()
	path := writeReport(t, input, "a.json", "x")
	writeReport(t, archiveDir, "a.json.zip", "older archive")

	dest, err := compressAndRelocate(t, NewManager(archiveDir, zap.NewNop().Sugar()), path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(archiveDir, "a.json.zip"), dest)
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, path+".zip")
	assert.Equal(t, map[string]string{"a.json": "x"}, zipEntries(t, dest))
}

func TestRelocateMissingArchive(t *testing.T) {
	m := NewManager(t.TempDir(), zap.NewNop().Sugar())
	_, err := m.Relocate(filepath.Join(t.TempDir(), "missing.json.zip"))
	assert.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	from := writeReport(t, dir, "from", "content")
	to := filepath.Join(dir, "to")

	require.NoError(t, copyFile(from, to))
	data, err := os.ReadFile(to)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
	assert.NoFileExists(t, to+".part")

	assert.Error(t, copyFile(filepath.Join(dir, "nope"), to))
}
