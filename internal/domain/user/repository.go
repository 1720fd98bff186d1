package user

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (User, bool, error)
	GetByExternalID(ctx context.Context, externalID string) (User, bool, error)
	// Upsert inserts with newID when the external id is unknown.
	Upsert(ctx context.Context, newID string, upsert Upsert) (User, error)
	SetActive(ctx context.Context, externalID string, active bool, at time.Time) (User, bool, error)
	CountActive(ctx context.Context) (int, error)
}
