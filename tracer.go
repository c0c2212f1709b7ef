package tenantjwt

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer starts the span wrapping each Authenticate call.
type Tracer interface {
	StartSpan(ctx context.Context, operationName string) (context.Context, Span)
}

// Span is a unit of traced work.
type Span interface {
	Finish()
	SetTag(key string, value any)
	RecordError(err error)
}

// NoopTracer is the default.
type NoopTracer struct{}

func (NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, NoopSpan{}
}

// NoopSpan does nothing.
type NoopSpan struct{}

func (NoopSpan) Finish()            {}
func (NoopSpan) SetTag(string, any) {}
func (NoopSpan) RecordError(error)  {}

// NewOpenTelemetryTracer starts server spans on tracer.
func NewOpenTelemetryTracer(tracer oteltrace.Tracer) Tracer {
	return otelTracer{tracer}
}

type otelTracer struct{ tracer oteltrace.Tracer }

func (t otelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, oteltrace.WithSpanKind(oteltrace.SpanKindServer))
	return ctx, otelSpan{span}
}

type otelSpan struct{ span oteltrace.Span }

func (s otelSpan) Finish() { s.span.End() }

func (s otelSpan) SetTag(key string, value any) { s.span.SetAttributes(toAttribute(key, value)) }

// RecordError also marks the span as failed.
func (s otelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
