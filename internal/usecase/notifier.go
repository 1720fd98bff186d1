package usecase

import (
	"context"

	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/week"
)

// Notifier receives lifecycle and progress events as plain data. Formatting and
// rate limiting belong to the implementation.
type Notifier interface {
	OnWeekOpened(ctx context.Context, w week.Week) error
	OnWeekClosed(ctx context.Context, w week.Week) error
	OnWeekEnded(ctx context.Context, w week.Week, summary recap.Summary) error
	OnPointsChanged(ctx context.Context, w week.Week) error
}

type noopNotifier struct{}

func (noopNotifier) OnWeekOpened(context.Context, week.Week) error               { return nil }
func (noopNotifier) OnWeekClosed(context.Context, week.Week) error               { return nil }
func (noopNotifier) OnWeekEnded(context.Context, week.Week, recap.Summary) error { return nil }
func (noopNotifier) OnPointsChanged(context.Context, week.Week) error            { return nil }

func NewNoopNotifier() Notifier {
	return noopNotifier{}
}
