package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jingkaihe/skillvault"

// Attribute keys shared by skill operation spans
const (
	AttrSpaceID      = attribute.Key("skillvault.space_id")
	AttrOrgID        = attribute.Key("skillvault.organization_id")
	AttrSkillID      = attribute.Key("skillvault.skill_id")
	AttrSkillSlug    = attribute.Key("skillvault.skill_slug")
	AttrSkillVersion = attribute.Key("skillvault.skill_version")
	AttrFileCount    = attribute.Key("skillvault.file_count")
)

// Tracer returns the skillvault tracer from the global provider
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}

// WithSpan wraps a function with a span
// It automatically sets the status and records errors
func WithSpan(ctx context.Context, name string, f func(context.Context) error, attrs ...attribute.KeyValue) error {
	_, err := WithSpanValue(ctx, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f(ctx)
	}, attrs...)
	return err
}

// WithSpanValue is like WithSpan for functions that also produce a result
func WithSpanValue[T any](ctx context.Context, name string, f func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	out, err := f(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return out, err
}

// AddEvent adds an event to the current span
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes adds attributes to the current span
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
