package util

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
)

//FindFiles lists the regular files directly inside dir whose base names match pattern (a filepath.Match glob).
//Subdirectories are not searched.
func FindFiles(dir, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, errors.Wrapf(err, "bad file pattern %q", pattern)
	}

	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}

	paths := []string{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(pattern, entry.Name()); ok {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

//DirectoryExists reports whether path exists and is a directory
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

//FileExists reports whether path exists and is not a directory
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
