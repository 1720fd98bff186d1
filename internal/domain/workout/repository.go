package workout

import "context"

type Repository interface {
	// Insert reports false when (source, source_event_id) already exists.
	Insert(ctx context.Context, w Workout) (bool, error)
	GetBySourceEvent(ctx context.Context, source Source, sourceEventID string) (Workout, bool, error)
	CountByWeek(ctx context.Context, weekID string) (int, error)
	CountByWeekAndUser(ctx context.Context, weekID, userID string) (int, error)
	CountByWeekGroupedByUser(ctx context.Context, weekID string) ([]UserCount, error)
}
