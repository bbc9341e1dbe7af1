package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var errFound = errors.New("found")

// FileExistsInTree reports whether a regular file called name exists anywhere
// under root. Only the name is compared; hidden directories below root are
// not searched.
func FileExistsInTree(fs afero.Fs, root, name string) (bool, error) {
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == name {
			return errFound
		}
		return nil
	})

	switch {
	case errors.Is(err, errFound):
		return true, nil
	case err != nil:
		return false, err
	default:
		return false, nil
	}
}

// RemoveIfExists removes path, ignoring a missing file
func RemoveIfExists(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
