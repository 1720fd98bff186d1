package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/domain/jobscheduler"
	"github.com/riskibarqy/forge/internal/observability"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"go.opentelemetry.io/otel/trace"
)

const (
	lifecyclePathTick             = "/v1/internal/jobs/lifecycle/tick"
	lifecyclePathEndAndOpen       = "/v1/internal/jobs/lifecycle/end-and-open"
	lifecyclePathCloseCommitments = "/v1/internal/jobs/lifecycle/close-commitments"
)

type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type LifecycleOrchestratorConfig struct {
	PollInterval time.Duration
}

type LifecycleTickResult struct {
	CommunityID      string
	Due              DueTriggers
	Ran              []Trigger
	EndAndOpen       EndAndOpenResult
	CloseCommitments CloseCommitmentsResult
}

// LifecycleOrchestrator is the single entry point that sequences lifecycle
// transitions, whether driven by the poll loop or by an internal job call.
type LifecycleOrchestrator struct {
	lifecycle    *LifecycleService
	configs      *CommunityConfigService
	dispatchRepo jobscheduler.Repository
	cfg          LifecycleOrchestratorConfig
	logger       *logging.Logger
	now          func() time.Time
}

func NewLifecycleOrchestrator(
	lifecycle *LifecycleService,
	configs *CommunityConfigService,
	dispatchRepo jobscheduler.Repository,
	cfg LifecycleOrchestratorConfig,
	logger *logging.Logger,
) *LifecycleOrchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}

	return &LifecycleOrchestrator{
		lifecycle:    lifecycle,
		configs:      configs,
		dispatchRepo: dispatchRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Run ticks immediately and then every poll interval until ctx is done.
func (s *LifecycleOrchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunTick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.ErrorContext(ctx, "lifecycle tick failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick evaluates which transitions are due at now and runs them, closing
// commitments before ending and opening weeks.
func (s *LifecycleOrchestrator) Tick(ctx context.Context, now time.Time) (LifecycleTickResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleOrchestrator.Tick")
	defer span.End()

	now = now.UTC()
	observability.RecordTick(now)

	cfg, err := s.configs.Get(ctx, "")
	if err != nil {
		return LifecycleTickResult{}, err
	}
	result := LifecycleTickResult{CommunityID: cfg.CommunityID, Ran: make([]Trigger, 0, 2)}

	due, err := s.lifecycle.DueTriggers(ctx, cfg, now)
	if err != nil {
		return LifecycleTickResult{}, err
	}
	result.Due = due

	if due.CloseCommitments {
		closed, err := s.closeCommitments(ctx, cfg, now, lifecyclePathTick)
		if err != nil {
			return result, err
		}
		result.CloseCommitments = closed
		result.Ran = append(result.Ran, TriggerCloseCommitments)
	}
	if due.EndAndOpen {
		opened, err := s.endAndOpen(ctx, cfg, now, lifecyclePathTick)
		if err != nil {
			return result, err
		}
		result.EndAndOpen = opened
		result.Ran = append(result.Ran, TriggerEndAndOpen)
	}

	return result, nil
}

// RunTick is Tick at the orchestrator's clock.
func (s *LifecycleOrchestrator) RunTick(ctx context.Context) (LifecycleTickResult, error) {
	return s.Tick(ctx, s.now())
}

// RunEndAndOpen fires the end-and-open transition without waiting for its
// scheduled instant. The ACTIVE week is only ended once now falls in a later
// community week; a call while now is still inside the ACTIVE week's span
// changes nothing.
func (s *LifecycleOrchestrator) RunEndAndOpen(ctx context.Context) (EndAndOpenResult, error) {
	cfg, err := s.configs.Get(ctx, "")
	if err != nil {
		return EndAndOpenResult{}, err
	}
	return s.endAndOpen(ctx, cfg, s.now().UTC(), lifecyclePathEndAndOpen)
}

// RunCloseCommitments fires the close-commitments transition regardless of the schedule.
func (s *LifecycleOrchestrator) RunCloseCommitments(ctx context.Context) (CloseCommitmentsResult, error) {
	cfg, err := s.configs.Get(ctx, "")
	if err != nil {
		return CloseCommitmentsResult{}, err
	}
	return s.closeCommitments(ctx, cfg, s.now().UTC(), lifecyclePathCloseCommitments)
}

func (s *LifecycleOrchestrator) endAndOpen(ctx context.Context, cfg community.Config, now time.Time, path string) (EndAndOpenResult, error) {
	name := string(TriggerEndAndOpen)
	dedupID := jobscheduler.DispatchID("lifecycle-"+name, cfg.CommunityID, now, s.cfg.PollInterval)

	result, err := s.lifecycle.EndAndOpen(ctx, cfg, now)
	payload := map[string]any{"community_id": cfg.CommunityID, "dispatch_id": dedupID}
	if result.Ended != nil {
		payload["ended_week_id"] = result.Ended.ID
	}
	if result.Opened != nil {
		payload["opened_week_id"] = result.Opened.ID
	}
	s.recordRun(ctx, dedupID, name, path, cfg.CommunityID, payload, result.Changed(), err, now)
	if err != nil {
		return result, fmt.Errorf("run %s community=%s: %w", name, cfg.CommunityID, err)
	}
	return result, nil
}

func (s *LifecycleOrchestrator) closeCommitments(ctx context.Context, cfg community.Config, now time.Time, path string) (CloseCommitmentsResult, error) {
	name := string(TriggerCloseCommitments)
	dedupID := jobscheduler.DispatchID("lifecycle-"+name, cfg.CommunityID, now, s.cfg.PollInterval)

	result, err := s.lifecycle.CloseCommitments(ctx, cfg, now)
	payload := map[string]any{"community_id": cfg.CommunityID, "dispatch_id": dedupID}
	if result.Closed != nil {
		payload["closed_week_id"] = result.Closed.ID
		payload["goal_points"] = result.Closed.GoalPoints
	}
	s.recordRun(ctx, dedupID, name, path, cfg.CommunityID, payload, result.Changed(), err, now)
	if err != nil {
		return result, fmt.Errorf("run %s community=%s: %w", name, cfg.CommunityID, err)
	}
	return result, nil
}

func (s *LifecycleOrchestrator) recordRun(
	ctx context.Context,
	dedupID, name, path, communityID string,
	payload map[string]any,
	changed bool,
	runErr error,
	now time.Time,
) {
	event := jobscheduler.DispatchEvent{
		DispatchID:  dedupID,
		JobName:     name,
		JobPath:     path,
		CommunityID: communityID,
		Status:      jobscheduler.OutcomeStatus(changed, runErr),
		Payload:     payload,
		OccurredAt:  now,
	}
	if runErr != nil {
		event.ErrorMessage = runErr.Error()
	}
	s.recordDispatchEvent(ctx, event)
}

func (s *LifecycleOrchestrator) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
