package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/forge/internal/domain/week"
)

type WeekRepository struct {
	binding
}

func (r *WeekRepository) Create(_ context.Context, w week.Week) error {
	return r.with(func(st *state) error {
		if _, exists := st.weeks[w.ID]; exists {
			return fmt.Errorf("week id=%s: %w", w.ID, week.ErrWeekExists)
		}
		for _, existing := range st.weeks {
			if existing.StartsAt.Equal(w.StartsAt) {
				return fmt.Errorf("week starting at %s: %w", w.StartsAt.Format(time.RFC3339), week.ErrWeekExists)
			}
			if existing.Status == w.Status && w.Status != week.StatusEnded {
				return fmt.Errorf("week with status %s: %w", w.Status, week.ErrWeekExists)
			}
		}
		st.weeks[w.ID] = w
		return nil
	})
}

func (r *WeekRepository) GetByID(_ context.Context, id string) (week.Week, bool, error) {
	var (
		out   week.Week
		found bool
	)
	_ = r.with(func(st *state) error {
		out, found = st.weeks[id]
		return nil
	})
	return out, found, nil
}

func (r *WeekRepository) GetByIDForUpdate(ctx context.Context, id string) (week.Week, bool, error) {
	return r.GetByID(ctx, id)
}

func (r *WeekRepository) FindByStatus(_ context.Context, status week.Status) (week.Week, bool, error) {
	return r.latest(func(w week.Week) bool { return w.Status == status })
}

func (r *WeekRepository) FindByStartsAt(_ context.Context, startsAt time.Time) (week.Week, bool, error) {
	return r.latest(func(w week.Week) bool { return w.StartsAt.Equal(startsAt) })
}

func (r *WeekRepository) FindContaining(_ context.Context, at time.Time) (week.Week, bool, error) {
	return r.latest(func(w week.Week) bool { return w.Contains(at) })
}

func (r *WeekRepository) FindCurrent(_ context.Context) (week.Week, bool, error) {
	return r.latest(func(w week.Week) bool {
		return w.Status == week.StatusOpen || w.Status == week.StatusActive
	})
}

func (r *WeekRepository) FindLatest(_ context.Context) (week.Week, bool, error) {
	return r.latest(func(week.Week) bool { return true })
}

func (r *WeekRepository) IncrementPoints(_ context.Context, id string, points int, at time.Time) (week.Week, error) {
	var out week.Week
	err := r.with(func(st *state) error {
		item, ok := st.weeks[id]
		if !ok {
			return week.ErrWeekNotFound
		}
		item.CurrentPoints += points
		item.UpdatedAt = at
		st.weeks[id] = item
		out = item
		return nil
	})
	return out, err
}

func (r *WeekRepository) Transition(_ context.Context, id string, from, to week.Status, goalPoints *int, at time.Time) (week.Week, bool, error) {
	var (
		out     week.Week
		applied bool
	)
	err := r.with(func(st *state) error {
		item, ok := st.weeks[id]
		if !ok || item.Status != from {
			return nil
		}
		if to != week.StatusEnded {
			for otherID, other := range st.weeks {
				if otherID != id && other.Status == to {
					return fmt.Errorf("week with status %s: %w", to, week.ErrWeekExists)
				}
			}
		}
		item.Status = to
		if goalPoints != nil {
			item.GoalPoints = *goalPoints
		}
		item.UpdatedAt = at
		st.weeks[id] = item
		out, applied = item, true
		return nil
	})
	return out, applied, err
}

func (r *WeekRepository) UpdateMessageRefs(_ context.Context, id string, update week.MessageRefsUpdate, at time.Time) (week.Week, bool, error) {
	var (
		out   week.Week
		found bool
	)
	_ = r.with(func(st *state) error {
		item, ok := st.weeks[id]
		if !ok {
			return nil
		}
		item = update.Apply(item)
		item.UpdatedAt = at
		st.weeks[id] = item
		out, found = item, true
		return nil
	})
	return out, found, nil
}

// latest returns the matching week with the greatest StartsAt.
func (r *WeekRepository) latest(match func(week.Week) bool) (week.Week, bool, error) {
	var (
		out   week.Week
		found bool
	)
	_ = r.with(func(st *state) error {
		for _, item := range st.weeks {
			if !match(item) {
				continue
			}
			if !found || item.StartsAt.After(out.StartsAt) {
				out, found = item, true
			}
		}
		return nil
	})
	return out, found, nil
}
