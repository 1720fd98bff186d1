package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/forge/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/forge/internal/platform/querybuilder"
)

type JobDispatchRepository struct {
	db *sqlx.DB
}

func NewJobDispatchRepository(db *sqlx.DB) *JobDispatchRepository {
	return &JobDispatchRepository{db: db}
}

func (r *JobDispatchRepository) UpsertEvent(ctx context.Context, event jobscheduler.DispatchEvent) error {
	dispatchID := strings.TrimSpace(event.DispatchID)
	if dispatchID == "" {
		return fmt.Errorf("dispatch id is required")
	}

	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payloadJSON, err := marshalPayload(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal job dispatch payload: %w", err)
	}

	model := jobDispatchInsertModel{
		DispatchID:  dispatchID,
		JobName:     defaultString(event.JobName, "unknown"),
		JobPath:     defaultString(event.JobPath, "/unknown"),
		CommunityID: defaultString(event.CommunityID, "unknown"),
		Payload:     payloadJSON,
		Status:      string(event.Status),
		UpdatedAt:   occurredAt,
	}

	switch event.Status {
	case jobscheduler.StatusSent:
		model.SentAt = &occurredAt
		model.SentTraceID = optionalString(event.TraceID)
		model.SentSpanID = optionalString(event.SpanID)
	case jobscheduler.StatusCompleted, jobscheduler.StatusSkipped:
		model.CompletedAt = &occurredAt
		model.CompletedTraceID = optionalString(event.TraceID)
		model.CompletedSpanID = optionalString(event.SpanID)
	case jobscheduler.StatusFailed:
		model.FailedAt = &occurredAt
		model.FailedTraceID = optionalString(event.TraceID)
		model.FailedSpanID = optionalString(event.SpanID)
		model.LastError = optionalString(event.ErrorMessage)
	}

	query, args, err := qb.InsertModel("job_dispatches", model, `ON CONFLICT (dispatch_id)
DO UPDATE SET
    job_name = EXCLUDED.job_name,
    job_path = EXCLUDED.job_path,
    community_id = EXCLUDED.community_id,
    payload = EXCLUDED.payload,
    status = EXCLUDED.status,
    sent_at = COALESCE(EXCLUDED.sent_at, job_dispatches.sent_at),
    completed_at = COALESCE(EXCLUDED.completed_at, job_dispatches.completed_at),
    failed_at = CASE
        WHEN EXCLUDED.status IN ('completed', 'skipped') THEN NULL
        ELSE COALESCE(EXCLUDED.failed_at, job_dispatches.failed_at)
    END,
    last_error = EXCLUDED.last_error,
    sent_trace_id = COALESCE(EXCLUDED.sent_trace_id, job_dispatches.sent_trace_id),
    sent_span_id = COALESCE(EXCLUDED.sent_span_id, job_dispatches.sent_span_id),
    completed_trace_id = COALESCE(EXCLUDED.completed_trace_id, job_dispatches.completed_trace_id),
    completed_span_id = COALESCE(EXCLUDED.completed_span_id, job_dispatches.completed_span_id),
    failed_trace_id = COALESCE(EXCLUDED.failed_trace_id, job_dispatches.failed_trace_id),
    failed_span_id = COALESCE(EXCLUDED.failed_span_id, job_dispatches.failed_span_id),
    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert job dispatch query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job dispatch dispatch_id=%s status=%s: %w", dispatchID, event.Status, err)
	}
	return nil
}

func (r *JobDispatchRepository) GetEvent(ctx context.Context, dispatchID string) (jobscheduler.DispatchEvent, bool, error) {
	query, args, err := qb.Select("*").From("job_dispatches").Where(qb.Eq("dispatch_id", dispatchID)).ToSQL()
	if err != nil {
		return jobscheduler.DispatchEvent{}, false, fmt.Errorf("build get job dispatch query: %w", err)
	}

	var row jobDispatchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return jobscheduler.DispatchEvent{}, false, nil
		}
		return jobscheduler.DispatchEvent{}, false, fmt.Errorf("get job dispatch dispatch_id=%s: %w", dispatchID, err)
	}

	payload := map[string]any{}
	if err := jsoniter.UnmarshalFromString(row.Payload, &payload); err != nil {
		return jobscheduler.DispatchEvent{}, false, fmt.Errorf("decode job dispatch payload dispatch_id=%s: %w", dispatchID, err)
	}

	out := jobscheduler.DispatchEvent{
		DispatchID:   row.DispatchID,
		JobName:      row.JobName,
		JobPath:      row.JobPath,
		CommunityID:  row.CommunityID,
		Status:       jobscheduler.DispatchStatus(row.Status),
		Payload:      payload,
		ErrorMessage: stringValue(row.LastError),
		OccurredAt:   row.UpdatedAt.UTC(),
	}
	switch out.Status {
	case jobscheduler.StatusFailed:
		out.TraceID, out.SpanID = stringValue(row.FailedTraceID), stringValue(row.FailedSpanID)
	case jobscheduler.StatusSent:
		out.TraceID, out.SpanID = stringValue(row.SentTraceID), stringValue(row.SentSpanID)
	default:
		out.TraceID, out.SpanID = stringValue(row.CompletedTraceID), stringValue(row.CompletedSpanID)
	}
	return out, true, nil
}

func marshalPayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	raw, err := jsoniter.MarshalToString(payload)
	if err != nil {
		return "", err
	}
	return raw, nil
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
