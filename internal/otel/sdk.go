// Package otel wires the OpenTelemetry SDK: OTLP/HTTP export of log records
// emitted by internal/logging and of the observer counters kept by
// internal/metrics.
package otel

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	logglobal "go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
)

const (
	defaultServiceName  = "sysobserve"
	defaultHTTPEndpoint = "127.0.0.1:4318"

	EnvEnabled            = "SYSOBSERVE_OTEL_ENABLED"
	EnvEndpoint           = "SYSOBSERVE_OTEL_HTTP_ENDPOINT"
	EnvServiceName        = "SYSOBSERVE_OTEL_SERVICE_NAME"
	EnvResourceAttributes = "SYSOBSERVE_OTEL_RESOURCE_ATTRIBUTES"
)

// SDKOptions configures the OpenTelemetry SDK exporters and resources.
type SDKOptions struct {
	Enabled            bool
	HTTPEndpoint       string
	ServiceName        string
	ServiceVersion     string
	ResourceAttributes map[string]string
}

func SDKOptionsFromEnv() SDKOptions {
	options := SDKOptions{
		HTTPEndpoint:       strings.TrimSpace(os.Getenv(EnvEndpoint)),
		ServiceName:        strings.TrimSpace(os.Getenv(EnvServiceName)),
		ResourceAttributes: parseResourceAttributes(os.Getenv(EnvResourceAttributes)),
	}
	if rawEnabled, ok := os.LookupEnv(EnvEnabled); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(rawEnabled)); err == nil {
			options.Enabled = parsed
		}
	}
	if options.ServiceName == "" {
		options.ServiceName = defaultServiceName
	}
	return options
}

// SetupSDK installs global logger and meter providers exporting over
// OTLP/HTTP. When disabled it leaves the no-op globals in place.
func SetupSDK(ctx context.Context, options SDKOptions) (func(context.Context) error, error) {
	if !options.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	endpoint := normalizeEndpoint(options.HTTPEndpoint)
	if endpoint == "" {
		endpoint = defaultHTTPEndpoint
	}

	res, err := newResource(ctx, options)
	if err != nil {
		return nil, err
	}

	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(endpoint),
		otlploghttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		_ = logExporter.Shutdown(ctx)
		return nil, err
	}

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
	)
	logglobal.SetLoggerProvider(loggerProvider)
	otelapi.SetMeterProvider(meterProvider)

	return func(shutdownCtx context.Context) error {
		var shutdownErr error
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, err)
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, err)
		}
		return shutdownErr
	}, nil
}

func newResource(ctx context.Context, options SDKOptions) (*sdkresource.Resource, error) {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", options.ServiceName),
	}
	if strings.TrimSpace(options.ServiceVersion) != "" {
		attrs = append(attrs, attribute.String("service.version", options.ServiceVersion))
	}
	if host, err := os.Hostname(); err == nil && strings.TrimSpace(host) != "" {
		attrs = append(attrs, attribute.String("host.name", host))
	}
	for key, value := range options.ResourceAttributes {
		attrs = append(attrs, attribute.String(key, value))
	}
	return sdkresource.New(ctx, sdkresource.WithAttributes(attrs...))
}

func parseResourceAttributes(raw string) map[string]string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	attributes := make(map[string]string)
	for _, pair := range strings.Split(trimmed, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		attributes[key] = strings.TrimSpace(value)
	}
	if len(attributes) == 0 {
		return nil
	}
	return attributes
}

func normalizeEndpoint(raw string) string {
	endpoint := strings.TrimSpace(raw)
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimSuffix(endpoint, "/")
}
