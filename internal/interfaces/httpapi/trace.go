package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Only handler entry points get their own span; otelhttp already covers the
// request as a whole.
const handlerSpanPrefix = "httpapi.Handler."

var apiTracer = otel.Tracer("forge/internal/interfaces/httpapi")

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !isHandlerSpan(name) || !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return apiTracer.Start(ctx, name)
}

func isHandlerSpan(name string) bool {
	return strings.HasPrefix(name, handlerSpanPrefix)
}
