package community

import "context"

type Repository interface {
	Get(ctx context.Context, communityID string) (Config, bool, error)
	Upsert(ctx context.Context, cfg Config) error
}
