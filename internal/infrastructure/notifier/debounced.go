package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"github.com/riskibarqy/forge/internal/usecase"
)

// Debounced coalesces OnPointsChanged per week: the first call arms a timer and
// the highest total seen before it fires is forwarded. Lifecycle events are
// always forwarded.
type Debounced struct {
	next     usecase.Notifier
	interval time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	pending map[string]*pendingProgress
}

type pendingProgress struct {
	ctx   context.Context
	week  week.Week
	timer *time.Timer
}

func NewDebounced(next usecase.Notifier, interval time.Duration, logger *logging.Logger) usecase.Notifier {
	if interval <= 0 {
		return next
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Debounced{
		next:     next,
		interval: interval,
		logger:   logger,
		pending:  make(map[string]*pendingProgress),
	}
}

func (d *Debounced) OnWeekOpened(ctx context.Context, w week.Week) error {
	return d.next.OnWeekOpened(ctx, w)
}

func (d *Debounced) OnWeekClosed(ctx context.Context, w week.Week) error {
	return d.next.OnWeekClosed(ctx, w)
}

// OnWeekEnded drops any queued progress for the week; the recap supersedes it.
func (d *Debounced) OnWeekEnded(ctx context.Context, w week.Week, summary recap.Summary) error {
	d.mu.Lock()
	if p, ok := d.pending[w.ID]; ok {
		p.timer.Stop()
		delete(d.pending, w.ID)
	}
	d.mu.Unlock()
	return d.next.OnWeekEnded(ctx, w, summary)
}

func (d *Debounced) OnPointsChanged(ctx context.Context, w week.Week) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// The request context is gone by the time the timer fires.
	detached := context.WithoutCancel(ctx)
	if p, ok := d.pending[w.ID]; ok {
		if w.CurrentPoints >= p.week.CurrentPoints {
			p.ctx = detached
			p.week = w
		}
		return nil
	}

	p := &pendingProgress{ctx: detached, week: w}
	p.timer = time.AfterFunc(d.interval, func() { d.deliver(w.ID) })
	d.pending[w.ID] = p
	return nil
}

// Flush delivers every queued update now.
func (d *Debounced) Flush() {
	d.mu.Lock()
	ids := make([]string, 0, len(d.pending))
	for id, p := range d.pending {
		if p.timer.Stop() {
			ids = append(ids, id)
		}
	}
	d.mu.Unlock()

	for _, id := range ids {
		d.deliver(id)
	}
}

func (d *Debounced) deliver(weekID string) {
	d.mu.Lock()
	p, ok := d.pending[weekID]
	delete(d.pending, weekID)
	d.mu.Unlock()
	if !ok {
		return
	}

	if err := d.next.OnPointsChanged(p.ctx, p.week); err != nil {
		d.logger.WarnContext(p.ctx, "debounced progress update failed",
			"week_id", weekID,
			"current_points", p.week.CurrentPoints,
			"error", err,
		)
	}
}
