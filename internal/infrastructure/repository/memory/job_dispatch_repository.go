package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/riskibarqy/forge/internal/domain/jobscheduler"
)

type JobDispatchRepository struct {
	mu    sync.RWMutex
	items map[string]jobscheduler.DispatchEvent
}

func NewJobDispatchRepository() *JobDispatchRepository {
	return &JobDispatchRepository{items: make(map[string]jobscheduler.DispatchEvent)}
}

func (r *JobDispatchRepository) UpsertEvent(_ context.Context, event jobscheduler.DispatchEvent) error {
	if event.DispatchID == "" {
		return fmt.Errorf("dispatch id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	payload := make(map[string]any, len(event.Payload))
	for k, v := range event.Payload {
		payload[k] = v
	}
	event.Payload = payload
	r.items[event.DispatchID] = event
	return nil
}

func (r *JobDispatchRepository) GetEvent(_ context.Context, dispatchID string) (jobscheduler.DispatchEvent, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[dispatchID]
	return item, ok, nil
}
