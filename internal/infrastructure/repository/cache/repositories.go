package cache

import (
	"context"

	"github.com/riskibarqy/forge/internal/domain/community"
	basecache "github.com/riskibarqy/forge/internal/platform/cache"
)

type CommunityConfigRepository struct {
	next  community.Repository
	cache *basecache.Store
}

func NewCommunityConfigRepository(next community.Repository, cache *basecache.Store) *CommunityConfigRepository {
	return &CommunityConfigRepository{next: next, cache: cache}
}

func (r *CommunityConfigRepository) Get(ctx context.Context, communityID string) (community.Config, bool, error) {
	key := communityConfigKey(communityID)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.Get(ctx, communityID)
		if err != nil {
			return nil, err
		}
		return cachedCommunityConfig{value: item, exists: exists}, nil
	})
	if err != nil {
		return community.Config{}, false, err
	}

	cached, _ := v.(cachedCommunityConfig)
	return cached.value, cached.exists, nil
}

func (r *CommunityConfigRepository) Upsert(ctx context.Context, cfg community.Config) error {
	if err := r.next.Upsert(ctx, cfg); err != nil {
		return err
	}
	r.cache.Delete(ctx, communityConfigKey(cfg.CommunityID))
	return nil
}

func communityConfigKey(communityID string) string {
	return "community:config:" + communityID
}

type cachedCommunityConfig struct {
	value  community.Config
	exists bool
}
