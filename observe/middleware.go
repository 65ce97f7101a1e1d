package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace/noop"
)

// Middleware wraps operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the operation receives the span context.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// NopMiddleware returns a middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(NewTracer(noop.NewTracerProvider().Tracer("noop")), nopMetrics{}, NopLogger())
}

// Run executes fn as op.
func (m *Middleware) Run(ctx context.Context, op Operation, fn func(context.Context) error) error {
	ctx, span := m.tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordExecution(ctx, op, duration, err)

	fields := append(op.fields(), F("duration_ms", millis(duration)))
	if err != nil {
		m.logger.Error(ctx, op.Kind+" failed", append(fields, F("error", err))...)
	} else {
		m.logger.Debug(ctx, op.Kind+" completed", fields...)
	}
	return err
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Metrics returns the middleware's metrics recorder.
func (m *Middleware) Metrics() Metrics { return m.metrics }

type nopMetrics struct{}

func (nopMetrics) RecordExecution(context.Context, Operation, time.Duration, error) {}
func (nopMetrics) RecordCacheEvent(context.Context, string, string)                {}
