package observe

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records badge and upstream outcomes plus fetch cache activity.
type Metrics interface {
	RecordExecution(ctx context.Context, op Operation, duration time.Duration, err error)

	// RecordCacheEvent counts one cache decision. mode is the fetch mode
	// (body, headers, size); event is hit, miss, coalesced, stored or evicted.
	RecordCacheEvent(ctx context.Context, mode, event string)
}

// Instrument names, as exported to Prometheus after unit suffixing.
const (
	metricCalls       = "badges.op.total"
	metricFailures    = "badges.op.errors"
	metricLatency     = "badges.op.duration_ms"
	metricCacheEvents = "badges.cache.events"
)

type otelMetrics struct {
	calls       metric.Int64Counter
	failures    metric.Int64Counter
	latency     metric.Float64Histogram
	cacheEvents metric.Int64Counter
}

// NewMetrics registers the badge instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	var m otelMetrics
	var err, e error

	m.calls, e = meter.Int64Counter(metricCalls,
		metric.WithDescription("Badge requests and upstream calls"), metric.WithUnit("{call}"))
	err = errors.Join(err, e)

	m.failures, e = meter.Int64Counter(metricFailures,
		metric.WithDescription("Badge requests and upstream calls that failed"), metric.WithUnit("{error}"))
	err = errors.Join(err, e)

	m.latency, e = meter.Float64Histogram(metricLatency,
		metric.WithDescription("Badge request and upstream call latency"), metric.WithUnit("ms"))
	err = errors.Join(err, e)

	m.cacheEvents, e = meter.Int64Counter(metricCacheEvents,
		metric.WithDescription("Fetch cache decisions by mode and event"), metric.WithUnit("{event}"))
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *otelMetrics) RecordExecution(ctx context.Context, op Operation, duration time.Duration, err error) {
	attrs := metric.WithAttributes(op.attributes()...)
	m.calls.Add(ctx, 1, attrs)
	if err != nil {
		m.failures.Add(ctx, 1, attrs)
	}
	m.latency.Record(ctx, millis(duration), attrs)
}

func (m *otelMetrics) RecordCacheEvent(ctx context.Context, mode, event string) {
	m.cacheEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.mode", mode),
		attribute.String("cache.event", event),
	))
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
