package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/forge/internal/domain/inbox"
	qb "github.com/riskibarqy/forge/internal/platform/querybuilder"
)

type inboxInsertModel struct {
	ID            string    `db:"id"`
	Source        string    `db:"source"`
	SourceEventID string    `db:"source_event_id"`
	ReceivedAt    time.Time `db:"received_at"`
	Status        string    `db:"status"`
	Payload       string    `db:"payload"`
}

type inboxTableModel struct {
	ID            string         `db:"id"`
	Source        string         `db:"source"`
	SourceEventID string         `db:"source_event_id"`
	ReceivedAt    time.Time      `db:"received_at"`
	ProcessedAt   sql.NullTime   `db:"processed_at"`
	Status        string         `db:"status"`
	Payload       string         `db:"payload"`
	LastError     sql.NullString `db:"last_error"`
}

type inboxIngestRow struct {
	inboxTableModel
	Inserted bool `db:"inserted"`
}

type InboxRepository struct {
	db queryer
}

func NewInboxRepository(db *sqlx.DB) *InboxRepository {
	return &InboxRepository{db: db}
}

func (r *InboxRepository) Ingest(ctx context.Context, event inbox.Event) (inbox.Event, bool, error) {
	payload := strings.TrimSpace(event.PayloadJSON)
	if payload == "" {
		payload = "{}"
	}
	model := inboxInsertModel{
		ID:            event.ID,
		Source:        string(event.Source),
		SourceEventID: event.SourceEventID,
		ReceivedAt:    event.ReceivedAt.UTC(),
		Status:        string(inbox.StatusPending),
		Payload:       payload,
	}

	// xmax is zero only for a freshly inserted tuple.
	query, args, err := qb.InsertModel("inbox_events", model, `ON CONFLICT (source, source_event_id)
DO UPDATE SET
    payload = CASE
        WHEN inbox_events.status IN ('PENDING', 'FAILED') THEN EXCLUDED.payload
        ELSE inbox_events.payload
    END
RETURNING *, (xmax = 0) AS inserted`)
	if err != nil {
		return inbox.Event{}, false, fmt.Errorf("build ingest inbox event query: %w", err)
	}

	var row inboxIngestRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return inbox.Event{}, false, fmt.Errorf("ingest inbox event source=%s source_event_id=%s: %w", event.Source, event.SourceEventID, err)
	}
	return inboxFromRow(row.inboxTableModel), row.Inserted, nil
}

func (r *InboxRepository) GetByID(ctx context.Context, id string) (inbox.Event, bool, error) {
	query, args, err := qb.Select("*").From("inbox_events").Where(qb.Eq("id", id)).ToSQL()
	if err != nil {
		return inbox.Event{}, false, fmt.Errorf("build get inbox event query: %w", err)
	}

	var row inboxTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return inbox.Event{}, false, nil
		}
		return inbox.Event{}, false, fmt.Errorf("get inbox event id=%s: %w", id, err)
	}
	return inboxFromRow(row), true, nil
}

func (r *InboxRepository) MarkProcessing(ctx context.Context, id string, at time.Time) (inbox.Event, bool, error) {
	query, args, err := qb.Update("inbox_events").
		Set("status", string(inbox.StatusProcessing)).
		Set("processed_at", at.UTC()).
		Where(
			qb.Eq("id", id),
			qb.In("status", []any{string(inbox.StatusPending), string(inbox.StatusFailed)}),
		).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return inbox.Event{}, false, fmt.Errorf("build mark inbox processing query: %w", err)
	}

	var row inboxTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return inbox.Event{}, false, nil
		}
		return inbox.Event{}, false, fmt.Errorf("mark inbox event processing id=%s: %w", id, err)
	}
	return inboxFromRow(row), true, nil
}

func (r *InboxRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	query, args, err := qb.Update("inbox_events").
		Set("status", string(inbox.StatusCompleted)).
		Set("processed_at", at.UTC()).
		Set("last_error", nil).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark inbox completed query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark inbox event completed id=%s: %w", id, err)
	}
	return nil
}

func (r *InboxRepository) MarkFailed(ctx context.Context, id string, reason string, at time.Time) error {
	query, args, err := qb.Update("inbox_events").
		Set("status", string(inbox.StatusFailed)).
		Set("processed_at", at.UTC()).
		Set("last_error", optionalString(reason)).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark inbox failed query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark inbox event failed id=%s: %w", id, err)
	}
	return nil
}

func (r *InboxRepository) ClaimPending(ctx context.Context, limit int, at time.Time) ([]inbox.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	query, args, err := qb.Update("inbox_events").
		Set("status", string(inbox.StatusProcessing)).
		Set("processed_at", at.UTC()).
		Where(qb.Expr(
			"id IN (SELECT id FROM inbox_events WHERE status = ? ORDER BY received_at LIMIT ? FOR UPDATE SKIP LOCKED)",
			string(inbox.StatusPending),
			limit,
		)).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build claim inbox events query: %w", err)
	}

	var rows []inboxTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("claim pending inbox events: %w", err)
	}

	out := make([]inbox.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, inboxFromRow(row))
	}
	return out, nil
}

func (r *InboxRepository) ReleaseStale(ctx context.Context, claimedBefore time.Time) (int, error) {
	query, args, err := qb.Update("inbox_events").
		Set("status", string(inbox.StatusPending)).
		Where(
			qb.Eq("status", string(inbox.StatusProcessing)),
			qb.Lt("processed_at", claimedBefore.UTC()),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build release stale inbox events query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("release stale inbox events: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release stale inbox events rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *InboxRepository) CountByStatus(ctx context.Context, status inbox.Status) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("inbox_events").Where(qb.Eq("status", string(status))).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count inbox events query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count inbox events status=%s: %w", status, err)
	}
	return count, nil
}

func inboxFromRow(row inboxTableModel) inbox.Event {
	var processedAt *time.Time
	if row.ProcessedAt.Valid {
		value := row.ProcessedAt.Time.UTC()
		processedAt = &value
	}
	return inbox.Event{
		ID:            row.ID,
		Source:        inbox.Source(row.Source),
		SourceEventID: row.SourceEventID,
		ReceivedAt:    row.ReceivedAt.UTC(),
		ProcessedAt:   processedAt,
		Status:        inbox.Status(row.Status),
		PayloadJSON:   row.Payload,
		LastError:     stringValue(row.LastError),
	}
}
