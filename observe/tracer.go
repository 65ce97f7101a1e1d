package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation kinds.
const (
	KindBadge    = "badge"
	KindUpstream = "upstream"
)

// Operation describes a unit of work for telemetry purposes.
type Operation struct {
	Kind   string // KindBadge or KindUpstream
	Name   string // route for badges, host for upstream calls (required)
	Source string // travis, sauce, size, browsers (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: <kind>.<name>
func (o Operation) SpanName() string {
	kind := o.Kind
	if kind == "" {
		kind = KindBadge
	}
	return kind + "." + o.Name
}

func (o Operation) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("op.kind", o.Kind),
		attribute.String("op.name", o.Name),
	}
	if o.Source != "" {
		attrs = append(attrs, attribute.String("op.source", o.Source))
	}
	return attrs
}

func (o Operation) fields() []Field {
	fields := []Field{F("op.kind", o.Kind), F("op.name", o.Name)}
	if o.Source != "" {
		fields = append(fields, F("op.source", o.Source))
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing with operation-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for the operation.
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	kind := trace.SpanKindServer
	if op.Kind == KindUpstream {
		kind = trace.SpanKindClient
	}
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(op.attributes()...),
		trace.WithSpanKind(kind),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
