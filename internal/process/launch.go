package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// LaunchOptions controls how a child is created.
type LaunchOptions struct {
	// Dir is the working directory; empty means the parent's.
	Dir string
	// Env replaces the environment; nil means inherit the parent's.
	Env []string
	// Stdin, Stdout and Stderr default to the parent's standard streams.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
	// PTY connects all three streams to a new pseudo-terminal. The
	// controlling side is available from Child.Terminal.
	PTY bool
}

// Spawn starts path with args. Only the three standard streams are passed to
// the child; every other descriptor or handle held by this process is
// close-on-exec or non-inheritable.
func Spawn(path string, args []string, opts LaunchOptions) (*Child, error) {
	resolved, err := resolveExecutable(path)
	if err != nil {
		return nil, newSpawnError(path, err)
	}

	files := []*os.File{
		fileOr(opts.Stdin, os.Stdin),
		fileOr(opts.Stdout, os.Stdout),
		fileOr(opts.Stderr, os.Stderr),
	}

	var terminal *os.File
	if opts.PTY {
		master, tty, err := openTerminal()
		if err != nil {
			return nil, &SpawnError{Kind: SpawnFailed, Path: path, Err: fmt.Errorf("open pty: %w", err)}
		}
		// The child holds its own copy of the tty once started.
		defer tty.Close()
		files = []*os.File{tty, tty, tty}
		terminal = master
	}

	argv := make([]string, 0, len(args)+1)
	argv = append(argv, path)
	argv = append(argv, args...)

	proc, err := os.StartProcess(resolved, argv, &os.ProcAttr{
		Dir:   opts.Dir,
		Env:   opts.Env,
		Files: files,
		Sys:   sysProcAttr(opts.PTY),
	})
	if err != nil {
		if terminal != nil {
			_ = terminal.Close()
		}
		return nil, newSpawnError(path, err)
	}

	return &Child{
		Path:     resolved,
		Args:     append([]string(nil), args...),
		Started:  time.Now().UTC(),
		process:  proc,
		terminal: terminal,
	}, nil
}

// resolveExecutable searches PATH for bare names and applies the platform
// executable extension to explicit paths.
func resolveExecutable(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", exec.ErrNotFound
	}
	if !strings.ContainsAny(path, `/\`) {
		return exec.LookPath(path)
	}
	candidate := path
	if runtime.GOOS == "windows" && filepath.Ext(candidate) == "" {
		candidate += ".exe"
	}
	if _, err := os.Stat(candidate); err != nil {
		return "", err
	}
	return candidate, nil
}

func fileOr(file, fallback *os.File) *os.File {
	if file != nil {
		return file
	}
	return fallback
}
