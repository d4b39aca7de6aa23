package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry counts observer lifecycle events. A nil *Registry is a valid no-op.
type Registry struct {
	spawned         atomic.Int64
	exited          atomic.Int64
	crashed         atomic.Int64
	stopped         atomic.Int64
	monitorErrors   atomic.Int64
	cancellations   atomic.Int64
	changeBatches   atomic.Int64
	changeEvents    atomic.Int64
	activeObservers atomic.Int64
	spawnFailures   sync.Map
}

var Default = &Registry{}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Spawned         int64
	Exited          int64
	Crashed         int64
	Stopped         int64
	MonitorErrors   int64
	Cancellations   int64
	ChangeBatches   int64
	ChangeEvents    int64
	ActiveObservers int64
	SpawnFailures   map[string]int64
}

func (r *Registry) IncSpawned() {
	if r == nil {
		return
	}
	r.spawned.Add(1)
}

func (r *Registry) IncSpawnFailure(kind string) {
	if r == nil {
		return
	}
	if strings.TrimSpace(kind) == "" {
		kind = "unknown"
	}
	value, _ := r.spawnFailures.LoadOrStore(kind, &atomic.Int64{})
	value.(*atomic.Int64).Add(1)
}

func (r *Registry) IncExited() {
	if r == nil {
		return
	}
	r.exited.Add(1)
}

func (r *Registry) IncCrashed() {
	if r == nil {
		return
	}
	r.crashed.Add(1)
}

func (r *Registry) IncStopped() {
	if r == nil {
		return
	}
	r.stopped.Add(1)
}

func (r *Registry) IncMonitorError() {
	if r == nil {
		return
	}
	r.monitorErrors.Add(1)
}

func (r *Registry) IncCancelled() {
	if r == nil {
		return
	}
	r.cancellations.Add(1)
}

// RecordChangeBatch counts one delivered callback covering events raw OS events.
func (r *Registry) RecordChangeBatch(events int) {
	if r == nil {
		return
	}
	r.changeBatches.Add(1)
	r.changeEvents.Add(int64(events))
}

func (r *Registry) ObserverStarted() {
	if r == nil {
		return
	}
	r.activeObservers.Add(1)
}

func (r *Registry) ObserverFinished() {
	if r == nil {
		return
	}
	r.activeObservers.Add(-1)
}

func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	snapshot := Snapshot{
		Spawned:         r.spawned.Load(),
		Exited:          r.exited.Load(),
		Crashed:         r.crashed.Load(),
		Stopped:         r.stopped.Load(),
		MonitorErrors:   r.monitorErrors.Load(),
		Cancellations:   r.cancellations.Load(),
		ChangeBatches:   r.changeBatches.Load(),
		ChangeEvents:    r.changeEvents.Load(),
		ActiveObservers: r.activeObservers.Load(),
		SpawnFailures:   map[string]int64{},
	}
	r.spawnFailures.Range(func(key, value interface{}) bool {
		if kind, ok := key.(string); ok {
			snapshot.SpawnFailures[kind] = value.(*atomic.Int64).Load()
		}
		return true
	})
	return snapshot
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}
	snapshot := r.Snapshot()

	writeCounter(writer, "sysobserve_children_spawned_total", "Child processes spawned", snapshot.Spawned)
	writeCounter(writer, "sysobserve_children_exited_total", "Child processes that exited normally", snapshot.Exited)
	writeCounter(writer, "sysobserve_children_crashed_total", "Child processes that terminated abnormally", snapshot.Crashed)
	writeCounter(writer, "sysobserve_children_stopped_total", "Child processes stopped by their owner", snapshot.Stopped)
	writeCounter(writer, "sysobserve_monitor_errors_total", "Wait primitive failures", snapshot.MonitorErrors)
	writeCounter(writer, "sysobserve_monitor_cancellations_total", "Monitors cancelled before delivery", snapshot.Cancellations)
	writeCounter(writer, "sysobserve_directory_change_batches_total", "Directory change callbacks delivered", snapshot.ChangeBatches)
	writeCounter(writer, "sysobserve_directory_change_events_total", "Raw directory change events observed", snapshot.ChangeEvents)

	writeHelp(writer, "sysobserve_active_observers", "Observer goroutines currently running")
	fmt.Fprintln(writer, "# TYPE sysobserve_active_observers gauge")
	fmt.Fprintf(writer, "sysobserve_active_observers %d\n", snapshot.ActiveObservers)

	kinds := make([]string, 0, len(snapshot.SpawnFailures))
	for kind := range snapshot.SpawnFailures {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	writeHelp(writer, "sysobserve_spawn_failures_total", "Spawn failures by kind")
	fmt.Fprintln(writer, "# TYPE sysobserve_spawn_failures_total counter")
	for _, kind := range kinds {
		fmt.Fprintf(writer, "sysobserve_spawn_failures_total{kind=%s} %d\n", formatLabel(kind), snapshot.SpawnFailures[kind])
	}
	return nil
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
