// Package fsutil holds the small filesystem helpers the observers' callers
// need: locating the running executable and managing scratch directories.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ExeParentDirectory returns the directory containing the running executable,
// with symlinks resolved.
func ExeParentDirectory() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// IsDirectory reports whether path exists and is a directory.
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CreateDirectory creates path and any missing parents. An existing directory
// is not an error.
func CreateDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// DeleteDirectory removes path and everything beneath it. A missing path is
// not an error. The tree is walked with an explicit stack.
func DeleteDirectory(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("delete directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("delete directory %s: not a directory", path)
	}

	pending := []string{path}
	var dirs []string
	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		dirs = append(dirs, dir)

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("delete directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			child := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				pending = append(pending, child)
				continue
			}
			if err := os.Remove(child); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("delete %s: %w", child, err)
			}
		}
	}

	// Parents were appended before their children.
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Remove(dirs[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete directory %s: %w", dirs[i], err)
		}
	}
	return nil
}
