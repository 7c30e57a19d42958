// Package archive compresses delivered report files and moves them out of the input directory.
package archive

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

//Extension appended to a report file's name to get its archive's name
const Extension = ".zip"

//Manager compresses report files and relocates the archives into an optional archive directory
type Manager struct {
	directory string
	logger    *zap.SugaredLogger
}

//NewManager returns a manager that moves archives into directory. An empty directory leaves them in place.
func NewManager(directory string, logger *zap.SugaredLogger) *Manager {
	return &Manager{directory: directory, logger: logger}
}

//Compress writes path+".zip" holding the file under its base name, then deletes path.
//A stale archive of the same name is removed first. If anything fails, path is left in place and no
//partial archive remains.
func (m *Manager) Compress(path string) (zipPath string, err error) {
	zipPath = path + Extension

	if err := os.Remove(zipPath); err == nil {
		m.logger.Infow("Removed stale archive", "archive", zipPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", errors.Wrapf(err, "failed to remove stale archive %s", zipPath)
	}

	if err := writeZip(path, zipPath); err != nil {
		_ = os.Remove(zipPath)
		return "", err
	}

	if err := os.Remove(path); err != nil {
		return zipPath, errors.Wrapf(err, "compressed %s but failed to delete it", path)
	}
	m.logger.Debugw("Compressed report", "file", path, "archive", zipPath)
	return zipPath, nil
}

func writeZip(path, zipPath string) (err error) {
	src, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", path)
	}

	out, err := os.OpenFile(zipPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", zipPath)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close %s", zipPath)
		}
	}()

	zw := zip.NewWriter(out)
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Wrapf(err, "failed to build zip header for %s", path)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return errors.Wrapf(err, "failed to add %s to archive", path)
	}
	if _, err := io.Copy(w, src); err != nil {
		return errors.Wrapf(err, "failed to compress %s", path)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "failed to finish archive %s", zipPath)
	}
	return out.Sync()
}

//Relocate moves zipPath into the archive directory, replacing an archive of the same name there.
//Without an archive directory it is a no-op.
func (m *Manager) Relocate(zipPath string) (string, error) {
	if m.directory == "" {
		return zipPath, nil
	}

	dest := filepath.Join(m.directory, filepath.Base(zipPath))
	if err := os.Rename(zipPath, dest); err != nil {
		//rename cannot cross filesystems
		if cerr := copyFile(zipPath, dest); cerr != nil {
			return zipPath, errors.Wrapf(errors.CombineErrors(err, cerr), "failed to move %s to %s", zipPath, m.directory)
		}
		if rerr := os.Remove(zipPath); rerr != nil {
			return dest, errors.Wrapf(rerr, "copied %s to %s but failed to remove it", zipPath, m.directory)
		}
	}
	m.logger.Debugw("Archived report", "archive", dest)
	return dest, nil
}

func copyFile(from, to string) (err error) {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := to + ".part"
	dst, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			dst.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(dst, src); err != nil {
		return err
	}
	if err = dst.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, to)
}
