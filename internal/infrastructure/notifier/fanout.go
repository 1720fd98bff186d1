package notifier

import (
	"context"

	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/usecase"
	"github.com/sourcegraph/conc/pool"
)

// Fanout delivers each event to every notifier concurrently and joins their errors.
type Fanout struct {
	targets []usecase.Notifier
}

func NewFanout(targets ...usecase.Notifier) *Fanout {
	out := make([]usecase.Notifier, 0, len(targets))
	for _, target := range targets {
		if target != nil {
			out = append(out, target)
		}
	}
	return &Fanout{targets: out}
}

func (f *Fanout) OnWeekOpened(ctx context.Context, w week.Week) error {
	return f.each(func(n usecase.Notifier) error { return n.OnWeekOpened(ctx, w) })
}

func (f *Fanout) OnWeekClosed(ctx context.Context, w week.Week) error {
	return f.each(func(n usecase.Notifier) error { return n.OnWeekClosed(ctx, w) })
}

func (f *Fanout) OnWeekEnded(ctx context.Context, w week.Week, summary recap.Summary) error {
	return f.each(func(n usecase.Notifier) error { return n.OnWeekEnded(ctx, w, summary) })
}

func (f *Fanout) OnPointsChanged(ctx context.Context, w week.Week) error {
	return f.each(func(n usecase.Notifier) error { return n.OnPointsChanged(ctx, w) })
}

func (f *Fanout) each(call func(usecase.Notifier) error) error {
	p := pool.New().WithErrors()
	for _, target := range f.targets {
		target := target
		p.Go(func() error { return call(target) })
	}
	return p.Wait()
}
