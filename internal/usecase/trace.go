package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var usecaseTracer = otel.Tracer("forge/internal/usecase")

// startUsecaseSpan opens a child span only under an existing trace; background
// runs without a parent stay untraced.
func startUsecaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if name == "" || !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return usecaseTracer.Start(ctx, name)
}
