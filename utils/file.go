package utils

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
)

// Digest returns the content hash used to compare generated and rewritten
// files.
func Digest(data []byte) uint64 {
	return xxh3.Hash(data)
}

// WriteFileAtomic writes data to a temporary file next to `path` and renames
// it over `path`, so that readers never see a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temporary file in `%s`", dir)
	}
	defer func() {
		if err != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpFile.Name())
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		return errors.Wrapf(err, "write `%s`", tmpFile.Name())
	}
	if err = tmpFile.Sync(); err != nil {
		return errors.Wrapf(err, "sync `%s`", tmpFile.Name())
	}
	if err = tmpFile.Close(); err != nil {
		return errors.Wrapf(err, "close `%s`", tmpFile.Name())
	}
	if err = os.Chmod(tmpFile.Name(), perm); err != nil {
		return errors.Wrapf(err, "chmod `%s`", tmpFile.Name())
	}
	if err = os.Rename(tmpFile.Name(), path); err != nil {
		return errors.Wrapf(err, "rename `%s` to `%s`", tmpFile.Name(), path)
	}
	return nil
}

// SameContent tells whether the file at `path` already holds `data`. A
// missing file is not an error.
func SameContent(path string, data []byte) (bool, error) {
	current, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "read `%s`", path)
	}
	return len(current) == len(data) && Digest(current) == Digest(data), nil
}
