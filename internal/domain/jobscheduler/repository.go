package jobscheduler

import "context"

type Repository interface {
	UpsertEvent(ctx context.Context, event DispatchEvent) error
	GetEvent(ctx context.Context, dispatchID string) (DispatchEvent, bool, error)
}
