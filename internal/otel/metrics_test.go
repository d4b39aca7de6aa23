package otel

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"sysobserve/internal/metrics"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var collected metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &collected); err != nil {
		t.Fatalf("collect: %v", err)
	}
	values := make(map[string]int64)
	for _, scope := range collected.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, point := range data.DataPoints {
					values[m.Name] += point.Value
				}
			case metricdata.Gauge[int64]:
				for _, point := range data.DataPoints {
					values[m.Name] += point.Value
				}
			}
		}
	}
	return values
}

func TestRegisterObserverMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	registry := &metrics.Registry{}
	registration, err := RegisterObserverMetrics(provider, registry)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer registration.Unregister()

	registry.IncSpawned()
	registry.IncSpawned()
	registry.IncCrashed()
	registry.IncSpawnFailure("not_found")
	registry.RecordChangeBatch(4)
	registry.ObserverStarted()

	values := collectSums(t, reader)
	expected := map[string]int64{
		MetricSpawned:        2,
		MetricCrashed:        1,
		MetricSpawnFailures:  1,
		MetricChangeBatches:  1,
		MetricChangeEvents:   4,
		MetricActiveObserver: 1,
	}
	for name, want := range expected {
		if got := values[name]; got != want {
			t.Fatalf("%s = %d, want %d (all %v)", name, got, want, values)
		}
	}
}
