package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"testing"
)

func TestNewSpawnErrorClassifies(t *testing.T) {
	cases := []struct {
		err      error
		kind     SpawnKind
		sentinel error
	}{
		{exec.ErrNotFound, SpawnNotFound, ErrExecutableNotFound},
		{fmt.Errorf("stat: %w", fs.ErrNotExist), SpawnNotFound, ErrExecutableNotFound},
		{fs.ErrPermission, SpawnPermissionDenied, ErrPermissionDenied},
		{errors.New("boom"), SpawnFailed, nil},
	}
	for _, tc := range cases {
		err := newSpawnError("child", tc.err)
		if err.Kind != tc.kind {
			t.Fatalf("%v: expected kind %s, got %s", tc.err, tc.kind, err.Kind)
		}
		if tc.sentinel != nil && !errors.Is(err, tc.sentinel) {
			t.Fatalf("%v: expected errors.Is %v", tc.err, tc.sentinel)
		}
		if !errors.Is(err, tc.err) {
			t.Fatalf("%v: expected cause to unwrap", tc.err)
		}
	}
}

func TestSpawnErrorDoesNotMatchOtherSentinels(t *testing.T) {
	err := newSpawnError("child", exec.ErrNotFound)
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("unexpected sentinel match for %v", err)
	}
}

func TestStateStrings(t *testing.T) {
	if StateCrashed.String() != "crashed" || MonitorCancelled.String() != "cancelled" {
		t.Fatalf("unexpected state names")
	}
	if SpawnResourceExhausted.String() != "resource_exhausted" {
		t.Fatalf("unexpected kind name %s", SpawnResourceExhausted)
	}
}
