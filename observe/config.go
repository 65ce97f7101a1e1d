package observe

import (
	"errors"
	"fmt"
)

var (
	ErrMissingServiceName     = errors.New("observe: service_name is required")
	ErrInvalidSamplePct       = errors.New("observe: tracing.sample_pct must be within [0, 1]")
	ErrInvalidTracingExporter = errors.New("observe: unsupported tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: unsupported metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: unsupported log level")
)

// Config is the observe section of the service configuration.
type Config struct {
	ServiceName string        `yaml:"service_name"`
	Version     string        `yaml:"version"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	// Exporter is otlp, stdout or none.
	Exporter string `yaml:"exporter"`
	// SamplePct is the fraction of root spans kept.
	SamplePct float64 `yaml:"sample_pct"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Exporter is prometheus, otlp, stdout or none. The prometheus exporter
	// registers with the default registry served on /metrics.
	Exporter string `yaml:"exporter"`
}

type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
}

var (
	tracingExporters = set("otlp", "stdout", "none", "")
	metricsExporters = set("otlp", "prometheus", "stdout", "none", "")
	logLevels        = set("debug", "info", "warn", "error", "")
)

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Validate reports every problem with c. Settings of disabled sections are
// not checked.
func (c *Config) Validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, ErrMissingServiceName)
	}
	if t := c.Tracing; t.Enabled {
		if !tracingExporters[t.Exporter] {
			errs = append(errs, fmt.Errorf("%w %q", ErrInvalidTracingExporter, t.Exporter))
		}
		if t.SamplePct < 0 || t.SamplePct > 1 {
			errs = append(errs, fmt.Errorf("%w: got %g", ErrInvalidSamplePct, t.SamplePct))
		}
	}
	if m := c.Metrics; m.Enabled && !metricsExporters[m.Exporter] {
		errs = append(errs, fmt.Errorf("%w %q", ErrInvalidMetricsExporter, m.Exporter))
	}
	if l := c.Logging; l.Enabled && !logLevels[l.Level] {
		errs = append(errs, fmt.Errorf("%w %q", ErrInvalidLogLevel, l.Level))
	}
	return errors.Join(errs...)
}
