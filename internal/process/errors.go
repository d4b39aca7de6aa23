package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

var (
	ErrExecutableNotFound = errors.New("executable not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrResourceExhausted  = errors.New("resources exhausted")
	ErrAlreadyRunning     = errors.New("child already running")
	ErrWaitUnsupported    = errors.New("process wait not supported on this platform")
)

// SpawnKind classifies why a child could not be created.
type SpawnKind int

const (
	SpawnFailed SpawnKind = iota
	SpawnNotFound
	SpawnPermissionDenied
	SpawnResourceExhausted
)

func (k SpawnKind) String() string {
	switch k {
	case SpawnNotFound:
		return "not_found"
	case SpawnPermissionDenied:
		return "permission_denied"
	case SpawnResourceExhausted:
		return "resource_exhausted"
	default:
		return "failed"
	}
}

// SpawnError is returned when a child could not be created. No process
// exists when it is returned.
type SpawnError struct {
	Kind SpawnKind
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

func (e *SpawnError) Is(target error) bool {
	switch target {
	case ErrExecutableNotFound:
		return e.Kind == SpawnNotFound
	case ErrPermissionDenied:
		return e.Kind == SpawnPermissionDenied
	case ErrResourceExhausted:
		return e.Kind == SpawnResourceExhausted
	}
	return false
}

func newSpawnError(path string, err error) *SpawnError {
	kind := SpawnFailed
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		kind = SpawnNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = SpawnPermissionDenied
	case isResourceExhausted(err):
		kind = SpawnResourceExhausted
	}
	return &SpawnError{Kind: kind, Path: path, Err: err}
}

// MonitorError reports a failure of the wait primitive itself. The monitor
// that produced it has stopped and will not retry.
type MonitorError struct {
	Pid int
	Op  string
	Err error
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("monitor pid %d: %s: %v", e.Pid, e.Op, e.Err)
}

func (e *MonitorError) Unwrap() error {
	return e.Err
}
