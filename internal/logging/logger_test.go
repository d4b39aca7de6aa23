package logging

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	otellog "go.opentelemetry.io/otel/log"
	logglobal "go.opentelemetry.io/otel/log/global"
	lognoop "go.opentelemetry.io/otel/log/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestLoggerWritesToBuffer(t *testing.T) {
	buffer := NewLogBuffer(10)
	logger := NewLoggerWithOutput(buffer, LevelInfo, io.Discard)

	logger.Info("child started", map[string]string{"pid": "42"})

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != LevelInfo {
		t.Fatalf("expected info level, got %q", entry.Level)
	}
	if entry.Message != "child started" {
		t.Fatalf("expected message child started, got %q", entry.Message)
	}
	if entry.Context["pid"] != "42" {
		t.Fatalf("expected context pid=42, got %v", entry.Context)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	buffer := NewLogBuffer(10)
	logger := NewLoggerWithOutput(buffer, LevelWarning, io.Discard)

	logger.Info("info", nil)
	logger.Warn("warn", nil)

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != LevelWarning {
		t.Fatalf("expected warning level, got %q", entries[0].Level)
	}
}

func TestLoggerWithMergesFields(t *testing.T) {
	var out bytes.Buffer
	logger := NewLoggerWithOutput(nil, LevelDebug, &out).With(map[string]string{
		"component": "watcher",
	})

	logger.Debug("change batch", map[string]string{"path": "/tmp/a b"})

	line := strings.TrimSpace(out.String())
	if !strings.HasSuffix(line, `level=debug msg="change batch" component="watcher" path="/tmp/a b"`) {
		t.Fatalf("unexpected output line %q", line)
	}
	if len(logger.Buffer().List()) != 1 {
		t.Fatalf("expected derived logger to share the buffer")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Info("ignored", nil)
	if logger.Enabled(LevelError) {
		t.Fatalf("expected nil logger to be disabled")
	}
	if logger.With(map[string]string{"a": "b"}) != nil {
		t.Fatalf("expected nil logger from With")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warn":    LevelWarning,
		"warning": LevelWarning,
		"error":   LevelError,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}

type testLogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (exporter *testLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	for _, record := range records {
		exporter.records = append(exporter.records, record.Clone())
	}
	return nil
}

func (exporter *testLogExporter) Shutdown(context.Context) error {
	return nil
}

func (exporter *testLogExporter) ForceFlush(context.Context) error {
	return nil
}

func (exporter *testLogExporter) snapshot() []sdklog.Record {
	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	records := make([]sdklog.Record, len(exporter.records))
	copy(records, exporter.records)
	return records
}

func TestLoggerEmitsOTelLogRecord(t *testing.T) {
	exporter := &testLogExporter{}
	processor := sdklog.NewSimpleProcessor(exporter)
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
	logglobal.SetLoggerProvider(provider)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		logglobal.SetLoggerProvider(lognoop.NewLoggerProvider())
	})

	logger := NewLoggerWithOutput(NewLogBuffer(10), LevelInfo, io.Discard).With(map[string]string{
		"component": "process",
	})
	logger.Warn("child crashed", map[string]string{
		"pid":     "7",
		"test_id": "otel-log",
	})

	records := exporter.snapshot()
	var record *sdklog.Record
	for idx := range records {
		entry := &records[idx]
		matched := false
		entry.WalkAttributes(func(attr otellog.KeyValue) bool {
			if attr.Key == "test_id" && attr.Value.Kind() == otellog.KindString && attr.Value.AsString() == "otel-log" {
				matched = true
				return false
			}
			return true
		})
		if matched {
			record = entry
			break
		}
	}
	if record == nil {
		t.Fatalf("expected log record with test_id=otel-log, got %d records", len(records))
	}
	if record.Severity() != otellog.SeverityWarn {
		t.Fatalf("expected severity warn, got %v", record.Severity())
	}
	if record.SeverityText() != "warning" {
		t.Fatalf("expected severity text warning, got %q", record.SeverityText())
	}
	if record.Body().AsString() != "child crashed" {
		t.Fatalf("expected body child crashed, got %q", record.Body().AsString())
	}

	attrs := make(map[string]string)
	record.WalkAttributes(func(attr otellog.KeyValue) bool {
		if attr.Value.Kind() == otellog.KindString {
			attrs[attr.Key] = attr.Value.AsString()
		}
		return true
	})
	if attrs["pid"] != "7" {
		t.Fatalf("expected pid attribute, got %v", attrs["pid"])
	}
	if attrs["component"] != "process" {
		t.Fatalf("expected component attribute, got %v", attrs["component"])
	}
}
