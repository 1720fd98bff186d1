package commitment

import "context"

type Repository interface {
	Get(ctx context.Context, weekID, userID string) (Commitment, bool, error)
	// Upsert writes the last value for (userID, weekID); newID is used on insert.
	Upsert(ctx context.Context, newID, weekID, userID string, update Update) (Commitment, error)
	ListByWeek(ctx context.Context, weekID string) ([]Commitment, error)
	CountByWeek(ctx context.Context, weekID string) (int, error)
}
