package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExeParentDirectory(t *testing.T) {
	dir, err := ExeParentDirectory()
	if err != nil {
		t.Fatalf("exe parent: %v", err)
	}
	if !IsDirectory(dir) {
		t.Fatalf("expected %q to be a directory", dir)
	}
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("executable: %v", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	if !strings.HasPrefix(exe, dir) {
		t.Fatalf("expected %q to contain %q", dir, exe)
	}
}

func TestCreateDirectoryIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := CreateDirectory(path); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := CreateDirectory(path); err != nil {
		t.Fatalf("create again: %v", err)
	}
	if !IsDirectory(path) {
		t.Fatalf("expected directory %q", path)
	}
}

func TestDeleteDirectoryRemovesDeepTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "area")
	deep := root
	for i := 0; i < 40; i++ {
		deep = filepath.Join(deep, "d")
	}
	if err := CreateDirectory(deep); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, file := range []string{filepath.Join(root, "top"), filepath.Join(deep, "leaf")} {
		if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
			t.Fatalf("write %s: %v", file, err)
		}
	}

	if err := DeleteDirectory(root); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Fatalf("expected %q removed, stat err=%v", root, err)
	}
}

func TestDeleteDirectoryMissingIsNotError(t *testing.T) {
	if err := DeleteDirectory(filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestDeleteDirectoryRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := DeleteDirectory(file); err == nil {
		t.Fatalf("expected error for regular file")
	}
}
