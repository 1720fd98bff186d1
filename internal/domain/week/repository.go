package week

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, w Week) error
	GetByID(ctx context.Context, id string) (Week, bool, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (Week, bool, error)
	FindByStatus(ctx context.Context, status Status) (Week, bool, error)
	FindByStartsAt(ctx context.Context, startsAt time.Time) (Week, bool, error)
	FindContaining(ctx context.Context, at time.Time) (Week, bool, error)
	// FindCurrent returns the latest OPEN or ACTIVE week by starts_at.
	FindCurrent(ctx context.Context) (Week, bool, error)
	FindLatest(ctx context.Context) (Week, bool, error)

	IncrementPoints(ctx context.Context, id string, points int, at time.Time) (Week, error)
	// Transition moves a week from one status to another and reports false when
	// the week was no longer in the expected status.
	Transition(ctx context.Context, id string, from, to Status, goalPoints *int, at time.Time) (Week, bool, error)
	UpdateMessageRefs(ctx context.Context, id string, update MessageRefsUpdate, at time.Time) (Week, bool, error)
}
