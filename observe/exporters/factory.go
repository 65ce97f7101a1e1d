// Package exporters maps exporter names from the observe config onto
// OpenTelemetry span exporters and metric readers.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrEndpointNotConfigured is returned for otlp when the standard
	// OTEL_EXPORTER_OTLP_* endpoint variables are all empty.
	ErrEndpointNotConfigured = errors.New("exporters: otlp endpoint not configured")

	ErrUnknownExporter = errors.New("exporters: unknown exporter")
)

type Options struct {
	// Writer receives stdout exporter output; nil means os.Stdout.
	Writer io.Writer

	// Registerer receives the prometheus collector; nil means the default
	// registerer, which promhttp.Handler serves.
	Registerer promclient.Registerer
}

func (o Options) out() io.Writer {
	if o.Writer != nil {
		return o.Writer
	}
	return os.Stdout
}

func requireOTLPEndpoint(signal string) error {
	for _, v := range []string{"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_" + signal + "_ENDPOINT"} {
		if os.Getenv(v) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w for %s", ErrEndpointNotConfigured, signal)
}

// NewTracingExporter returns the span exporter called name: otlp, stdout or
// none. The empty name means none.
func NewTracingExporter(ctx context.Context, name string, opts Options) (sdktrace.SpanExporter, error) {
	switch name {
	case "", "none":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(opts.out()))
	case "otlp":
		if err := requireOTLPEndpoint("TRACES"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	}
	return nil, fmt.Errorf("%w %q for tracing", ErrUnknownExporter, name)
}

// NewMetricsReader returns the metric reader called name: prometheus, otlp,
// stdout or none. The empty name means none.
func NewMetricsReader(ctx context.Context, name string, opts Options) (sdkmetric.Reader, error) {
	switch name {
	case "", "none":
		return sdkmetric.NewManualReader(), nil
	case "prometheus":
		var popts []prometheus.Option
		if opts.Registerer != nil {
			popts = append(popts, prometheus.WithRegisterer(opts.Registerer))
		}
		return prometheus.New(popts...)
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(opts.out()))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "otlp":
		if err := requireOTLPEndpoint("METRICS"); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	}
	return nil, fmt.Errorf("%w %q for metrics", ErrUnknownExporter, name)
}
