package watcher

import (
	"os"
	"path/filepath"
	"strings"
)

// addTree watches root and, for recursive watches, every directory beneath
// it. Directories are collected with an explicit stack.
func (watch *watch) addTree(root string) error {
	pending := []string{root}
	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if err := watch.addDir(dir); err != nil {
			return err
		}
		if !watch.recursive {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			// The directory may already be gone again.
			watch.logger.Debug("read watched directory failed", map[string]string{
				"path":  dir,
				"error": err.Error(),
			})
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				pending = append(pending, filepath.Join(dir, entry.Name()))
			}
		}
	}
	return nil
}

func (watch *watch) addDir(dir string) error {
	if _, ok := watch.dirs[dir]; ok {
		return nil
	}
	if len(watch.dirs) >= watch.maxWatches {
		return ErrMaxWatchesExceeded
	}
	if err := watch.source.Add(dir); err != nil {
		return err
	}
	watch.dirs[dir] = struct{}{}
	return nil
}

// forgetTree drops dir and its descendants after a remove or rename.
func (watch *watch) forgetTree(dir string) {
	prefix := dir + string(filepath.Separator)
	for path := range watch.dirs {
		if path != dir && !strings.HasPrefix(path, prefix) {
			continue
		}
		if path == watch.path {
			continue
		}
		_ = watch.source.Remove(path)
		delete(watch.dirs, path)
	}
}
