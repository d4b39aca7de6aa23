package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestRegistryWritesPrometheusText(t *testing.T) {
	registry := &Registry{}
	registry.IncSpawned()
	registry.IncSpawned()
	registry.IncExited()
	registry.IncCrashed()
	registry.IncSpawnFailure("not_found")
	registry.IncSpawnFailure(`odd"kind`)
	registry.RecordChangeBatch(3)

	var out bytes.Buffer
	if err := registry.WritePrometheus(&out); err != nil {
		t.Fatalf("write: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"sysobserve_children_spawned_total 2\n",
		"sysobserve_children_exited_total 1\n",
		"sysobserve_children_crashed_total 1\n",
		"sysobserve_directory_change_batches_total 1\n",
		"sysobserve_directory_change_events_total 3\n",
		`sysobserve_spawn_failures_total{kind="not_found"} 1`,
		`sysobserve_spawn_failures_total{kind="odd\"kind"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestRegistryActiveObserversGauge(t *testing.T) {
	registry := &Registry{}
	registry.ObserverStarted()
	registry.ObserverStarted()
	registry.ObserverFinished()
	if got := registry.Snapshot().ActiveObservers; got != 1 {
		t.Fatalf("expected 1 active observer, got %d", got)
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var registry *Registry
	registry.IncSpawned()
	registry.RecordChangeBatch(1)
	if err := registry.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("expected nil registry to write nothing, got %v", err)
	}
	if registry.Snapshot().Spawned != 0 {
		t.Fatalf("expected empty snapshot")
	}
}
