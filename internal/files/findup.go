package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FindUp looks for a regular file called name in dir and then in each of its parents.
// It returns "" if no such file exists up to the filesystem root.
func FindUp(name, dir string) (string, error) {
	curDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", dir, err)
	}
	for {
		candidate := filepath.Join(curDir, name)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && info.Mode().IsRegular():
			return candidate, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("checking %q: %w", candidate, err)
		}
		newDir := filepath.Dir(curDir)
		if newDir == curDir {
			return "", nil
		}
		curDir = newDir
	}
}
