package ledger

import "context"

type Repository interface {
	Append(ctx context.Context, entry Entry) error
	SumByWeek(ctx context.Context, weekID string) (int, error)
	ListByWeek(ctx context.Context, weekID string) ([]Entry, error)
}
