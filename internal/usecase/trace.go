package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var usecaseTracer = otel.Tracer("vocalia/internal/usecase")

const matchIDAttrKey = attribute.Key("vocalia.match_id")

func matchAttr(matchID string) attribute.KeyValue {
	return matchIDAttrKey.String(matchID)
}

// startUsecaseSpan only opens a child span; calls outside a traced request
// get the parent (non-recording) span back.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if name == "" || !parent.SpanContext().IsValid() {
		return ctx, parent
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// failSpan marks span as errored for failures the caller did not cause.
// Validation, rule and conflict errors stay unset so they do not page anyone.
func failSpan(span trace.Span, err error) {
	if err == nil || isClientError(err) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
