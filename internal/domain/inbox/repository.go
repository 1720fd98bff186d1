package inbox

import (
	"context"
	"time"
)

type Repository interface {
	// Ingest stores the event once per (source, source_event_id). An existing row
	// keeps its status; created is false in that case.
	Ingest(ctx context.Context, event Event) (stored Event, created bool, err error)
	GetByID(ctx context.Context, id string) (Event, bool, error)
	// MarkProcessing moves a PENDING or FAILED event to PROCESSING and reports
	// false when the event was in any other status.
	MarkProcessing(ctx context.Context, id string, at time.Time) (Event, bool, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string, at time.Time) error
	// ClaimPending moves up to limit PENDING events to PROCESSING, oldest first.
	ClaimPending(ctx context.Context, limit int, at time.Time) ([]Event, error)
	// ReleaseStale returns PROCESSING events claimed before the cutoff to PENDING.
	ReleaseStale(ctx context.Context, claimedBefore time.Time) (int, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
}
