package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"sysobserve/internal/metrics"
)

const (
	MetricSpawned        = "sysobserve.children.spawned"
	MetricExited         = "sysobserve.children.exited"
	MetricCrashed        = "sysobserve.children.crashed"
	MetricStopped        = "sysobserve.children.stopped"
	MetricSpawnFailures  = "sysobserve.spawn.failures"
	MetricMonitorErrors  = "sysobserve.monitor.errors"
	MetricChangeBatches  = "sysobserve.directory.change_batches"
	MetricChangeEvents   = "sysobserve.directory.change_events"
	MetricActiveObserver = "sysobserve.observers.active"
)

// RegisterObserverMetrics exposes registry through provider as observable
// instruments read at each collection.
func RegisterObserverMetrics(provider metric.MeterProvider, registry *metrics.Registry) (metric.Registration, error) {
	meter := provider.Meter("sysobserve")

	counters := make(map[string]metric.Int64ObservableCounter)
	for name, description := range map[string]string{
		MetricSpawned:       "Child processes spawned",
		MetricExited:        "Child processes that exited normally",
		MetricCrashed:       "Child processes that terminated abnormally",
		MetricStopped:       "Child processes stopped by their owner",
		MetricSpawnFailures: "Spawn failures by kind",
		MetricMonitorErrors: "Wait primitive and notification source failures",
		MetricChangeBatches: "Directory change callbacks delivered",
		MetricChangeEvents:  "Raw directory change events observed",
	} {
		counter, err := meter.Int64ObservableCounter(name, metric.WithDescription(description))
		if err != nil {
			return nil, err
		}
		counters[name] = counter
	}
	active, err := meter.Int64ObservableGauge(MetricActiveObserver, metric.WithDescription("Observer goroutines currently running"))
	if err != nil {
		return nil, err
	}

	instruments := []metric.Observable{active}
	for _, counter := range counters {
		instruments = append(instruments, counter)
	}

	return meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := registry.Snapshot()
		observer.ObserveInt64(counters[MetricSpawned], snapshot.Spawned)
		observer.ObserveInt64(counters[MetricExited], snapshot.Exited)
		observer.ObserveInt64(counters[MetricCrashed], snapshot.Crashed)
		observer.ObserveInt64(counters[MetricStopped], snapshot.Stopped)
		observer.ObserveInt64(counters[MetricMonitorErrors], snapshot.MonitorErrors)
		observer.ObserveInt64(counters[MetricChangeBatches], snapshot.ChangeBatches)
		observer.ObserveInt64(counters[MetricChangeEvents], snapshot.ChangeEvents)
		observer.ObserveInt64(active, snapshot.ActiveObservers)
		for kind, count := range snapshot.SpawnFailures {
			observer.ObserveInt64(counters[MetricSpawnFailures], count, metric.WithAttributes(attribute.String("kind", kind)))
		}
		return nil
	}, instruments...)
}
