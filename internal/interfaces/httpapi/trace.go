package httpapi

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var apiTracer = otel.Tracer("vocalia/internal/interfaces/httpapi")

// startSpan opens a child span for handlers and the auth check only. Other
// helpers, and anything outside a traced request, get the parent span back.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() || !shouldCreateHTTPAPISpan(name) {
		return ctx, noEnd{parent}
	}
	return apiTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// noEnd hands helpers the request span without letting their deferred End
// close it early.
type noEnd struct {
	trace.Span
}

func (noEnd) End(...trace.SpanEndOption) {}

func shouldCreateHTTPAPISpan(name string) bool {
	return strings.HasPrefix(name, "httpapi.Handler.") || name == "httpapi.RequireAuth"
}

// routeAttrs tags a handler span with the match the route addresses.
func routeAttrs(r *http.Request) []attribute.KeyValue {
	if id := strings.TrimSpace(r.PathValue("matchID")); id != "" {
		return []attribute.KeyValue{attribute.String("vocalia.match_id", id)}
	}
	return nil
}
