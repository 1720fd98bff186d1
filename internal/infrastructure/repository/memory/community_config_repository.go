package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/forge/internal/domain/community"
)

type CommunityConfigRepository struct {
	mu    sync.RWMutex
	items map[string]community.Config
}

func NewCommunityConfigRepository() *CommunityConfigRepository {
	return &CommunityConfigRepository{items: make(map[string]community.Config)}
}

func (r *CommunityConfigRepository) Get(_ context.Context, communityID string) (community.Config, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[communityID]
	return item, ok, nil
}

func (r *CommunityConfigRepository) Upsert(_ context.Context, cfg community.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[cfg.CommunityID] = cfg
	return nil
}
