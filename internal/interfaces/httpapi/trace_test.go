package httpapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsHandlerSpan(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "httpapi.Handler.GetCurrentWeek", want: true},
		{in: "httpapi.Handler.ReceiveWebhook", want: true},
		{in: "httpapi.RequestLogging", want: false},
		{in: "httpapi.mapError", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, isHandlerSpan(tt.in))
		})
	}
}

func TestStartSpan_WithoutParentIsNoop(t *testing.T) {
	ctx := context.Background()
	got, span := startSpan(ctx, "httpapi.Handler.GetCurrentWeek")
	defer span.End()

	require.Equal(t, ctx, got)
	require.False(t, span.SpanContext().IsValid())
}
