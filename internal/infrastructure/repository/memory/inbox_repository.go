package memory

import (
	"context"
	"time"

	"github.com/riskibarqy/forge/internal/domain/inbox"
)

type InboxRepository struct {
	binding
}

func (r *InboxRepository) Ingest(_ context.Context, event inbox.Event) (inbox.Event, bool, error) {
	var (
		out     inbox.Event
		created bool
	)
	err := r.with(func(st *state) error {
		key := pairKey(string(event.Source), event.SourceEventID)
		if id, ok := st.inboxKeys[key]; ok {
			existing := st.inbox[id]
			if existing.Status == inbox.StatusPending || existing.Status == inbox.StatusFailed {
				existing.PayloadJSON = event.PayloadJSON
				st.inbox[id] = existing
			}
			out = existing
			return nil
		}

		event.Status = inbox.StatusPending
		event.ProcessedAt = nil
		st.inbox[event.ID] = event
		st.inboxKeys[key] = event.ID
		st.inboxOrder = append(st.inboxOrder, event.ID)
		out, created = event, true
		return nil
	})
	return out, created, err
}

func (r *InboxRepository) GetByID(_ context.Context, id string) (inbox.Event, bool, error) {
	var (
		out   inbox.Event
		found bool
	)
	_ = r.with(func(st *state) error {
		out, found = st.inbox[id]
		return nil
	})
	return out, found, nil
}

func (r *InboxRepository) MarkProcessing(_ context.Context, id string, at time.Time) (inbox.Event, bool, error) {
	var (
		out     inbox.Event
		claimed bool
	)
	_ = r.with(func(st *state) error {
		item, ok := st.inbox[id]
		if !ok || (item.Status != inbox.StatusPending && item.Status != inbox.StatusFailed) {
			return nil
		}
		item = processing(item, at)
		st.inbox[id] = item
		out, claimed = item, true
		return nil
	})
	return out, claimed, nil
}

func (r *InboxRepository) MarkCompleted(_ context.Context, id string, at time.Time) error {
	return r.finish(id, inbox.StatusCompleted, "", at)
}

func (r *InboxRepository) MarkFailed(_ context.Context, id string, reason string, at time.Time) error {
	return r.finish(id, inbox.StatusFailed, reason, at)
}

func (r *InboxRepository) ClaimPending(_ context.Context, limit int, at time.Time) ([]inbox.Event, error) {
	out := make([]inbox.Event, 0)
	_ = r.with(func(st *state) error {
		for _, id := range st.inboxOrder {
			if limit > 0 && len(out) >= limit {
				break
			}
			item := st.inbox[id]
			if item.Status != inbox.StatusPending {
				continue
			}
			item = processing(item, at)
			st.inbox[id] = item
			out = append(out, item)
		}
		return nil
	})
	return out, nil
}

func (r *InboxRepository) ReleaseStale(_ context.Context, claimedBefore time.Time) (int, error) {
	released := 0
	_ = r.with(func(st *state) error {
		for id, item := range st.inbox {
			if item.Status != inbox.StatusProcessing || item.ProcessedAt == nil || !item.ProcessedAt.Before(claimedBefore) {
				continue
			}
			item.Status = inbox.StatusPending
			item.ProcessedAt = nil
			st.inbox[id] = item
			released++
		}
		return nil
	})
	return released, nil
}

func (r *InboxRepository) CountByStatus(_ context.Context, status inbox.Status) (int, error) {
	count := 0
	_ = r.with(func(st *state) error {
		for _, item := range st.inbox {
			if item.Status == status {
				count++
			}
		}
		return nil
	})
	return count, nil
}

func (r *InboxRepository) finish(id string, status inbox.Status, reason string, at time.Time) error {
	return r.with(func(st *state) error {
		item, ok := st.inbox[id]
		if !ok {
			return nil
		}
		item.Status = status
		item.LastError = reason
		processedAt := at
		item.ProcessedAt = &processedAt
		st.inbox[id] = item
		return nil
	})
}

// processing stamps the claim time in ProcessedAt so stale claims can be released.
func processing(item inbox.Event, at time.Time) inbox.Event {
	item.Status = inbox.StatusProcessing
	claimedAt := at
	item.ProcessedAt = &claimedAt
	return item
}
