package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/forge/internal/domain/inbox"
	"github.com/riskibarqy/forge/internal/domain/jobscheduler"
	"github.com/riskibarqy/forge/internal/domain/storage"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/domain/workout"
	"github.com/riskibarqy/forge/internal/observability"
	"github.com/riskibarqy/forge/internal/platform/id"
	"github.com/riskibarqy/forge/internal/platform/logging"
)

const InboxProcessPath = "/v1/internal/jobs/inbox/process"

// errWeekNotOpened leaves an event claimed until the lease returns it to
// PENDING, by which time the covering week may exist.
var errWeekNotOpened = errors.New("covering week not opened yet")

type InboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Workers      int
	LeaseTimeout time.Duration
	// PushEnabled enqueues a process job for each new event in addition to polling.
	PushEnabled bool
}

type ReceiveEventInput struct {
	Source        string
	SourceEventID string
	Payload       []byte
}

type ReceiveEventResult struct {
	EventID string       `json:"event_id"`
	Status  inbox.Status `json:"status"`
	Created bool         `json:"created"`
}

type ProcessStatus string

const (
	ProcessCompleted ProcessStatus = "completed"
	ProcessSkipped   ProcessStatus = "skipped"
	ProcessFailed    ProcessStatus = "failed"
	ProcessRetry     ProcessStatus = "retry"
)

type ProcessResult struct {
	EventID string        `json:"event_id"`
	Status  ProcessStatus `json:"status"`
	Outcome RecordOutcome `json:"outcome,omitempty"`
	Message string        `json:"message,omitempty"`
}

type PollResult struct {
	Released  int `json:"released"`
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Retried   int `json:"retried"`
}

// InboxService stores external deliveries once and credits them through the
// accounting core asynchronously.
type InboxService struct {
	repos      storage.Repositories
	accounting *AccountingService
	configs    *CommunityConfigService
	resolver   PayloadResolver
	queue      JobQueue
	ids        id.Generator
	cfg        InboxConfig
	logger     *logging.Logger
	now        func() time.Time

	poolOnce sync.Once
	pool     *ants.Pool
	poolErr  error
}

func NewInboxService(
	repos storage.Repositories,
	accounting *AccountingService,
	configs *CommunityConfigService,
	resolver PayloadResolver,
	queue JobQueue,
	ids id.Generator,
	cfg InboxConfig,
	logger *logging.Logger,
) *InboxService {
	if resolver == nil {
		resolver = EnvelopeResolver{}
	}
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = 5 * time.Minute
	}

	return &InboxService{
		repos:      repos,
		accounting: accounting,
		configs:    configs,
		resolver:   resolver,
		queue:      queue,
		ids:        ids,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// ReceiveExternalEvent stores a provider delivery and acknowledges it. Points are
// credited later by the consumer.
func (s *InboxService) ReceiveExternalEvent(ctx context.Context, input ReceiveEventInput) (ReceiveEventResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.InboxService.ReceiveExternalEvent")
	defer span.End()

	source, err := inbox.ParseSource(input.Source)
	if err != nil {
		return ReceiveEventResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !jsoniter.Valid(input.Payload) {
		return ReceiveEventResult{}, fmt.Errorf("%w: payload must be valid JSON", ErrInvalidInput)
	}
	sourceEventID := strings.TrimSpace(input.SourceEventID)
	if sourceEventID == "" {
		sourceEventID = SourceEventIDFromPayload(source, input.Payload)
	}
	if sourceEventID == "" {
		return ReceiveEventResult{}, fmt.Errorf("%w: source event id is required", ErrInvalidInput)
	}

	eventID, err := s.ids.NewID()
	if err != nil {
		return ReceiveEventResult{}, fmt.Errorf("generate inbox event id: %w", err)
	}

	stored, created, err := s.repos.Inbox.Ingest(ctx, inbox.Event{
		ID:            eventID,
		Source:        source,
		SourceEventID: sourceEventID,
		ReceivedAt:    s.now().UTC(),
		Status:        inbox.StatusPending,
		PayloadJSON:   string(input.Payload),
	})
	if err != nil {
		return ReceiveEventResult{}, fmt.Errorf("ingest inbox event source=%s source_event_id=%s: %w", source, sourceEventID, err)
	}
	observability.RecordInboxIngest(string(source), created)

	if created && s.cfg.PushEnabled {
		payload := map[string]any{"event_id": stored.ID}
		if err := s.queue.Enqueue(ctx, InboxProcessPath, payload, 0, "inbox-process-"+jobscheduler.SafeSegment(stored.ID)); err != nil {
			s.logger.WarnContext(ctx, "enqueue inbox process job failed, leaving event to the poller",
				"event_id", stored.ID,
				"error", err,
			)
		}
	}

	return ReceiveEventResult{EventID: stored.ID, Status: stored.Status, Created: created}, nil
}

// ProcessEvent claims one event by id and credits it. COMPLETED events and
// events held by another consumer are skipped.
func (s *InboxService) ProcessEvent(ctx context.Context, eventID string) (ProcessResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.InboxService.ProcessEvent")
	defer span.End()

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return ProcessResult{}, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	event, found, err := s.repos.Inbox.GetByID(ctx, eventID)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("get inbox event id=%s: %w", eventID, err)
	}
	if !found {
		return ProcessResult{}, fmt.Errorf("%w: inbox event id=%s", ErrNotFound, eventID)
	}
	if event.Status == inbox.StatusCompleted {
		return ProcessResult{EventID: eventID, Status: ProcessSkipped, Message: "already completed"}, nil
	}

	claimed, ok, err := s.repos.Inbox.MarkProcessing(ctx, eventID, s.now().UTC())
	if err != nil {
		return ProcessResult{}, fmt.Errorf("claim inbox event id=%s: %w", eventID, err)
	}
	if !ok {
		return ProcessResult{EventID: eventID, Status: ProcessSkipped, Message: "claimed by another consumer"}, nil
	}

	return s.handle(ctx, claimed), nil
}

// PollOnce releases stale claims, claims a batch of PENDING events and
// processes them on the worker pool.
func (s *InboxService) PollOnce(ctx context.Context) (PollResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.InboxService.PollOnce")
	defer span.End()

	now := s.now().UTC()
	var result PollResult

	released, err := s.repos.Inbox.ReleaseStale(ctx, now.Add(-s.cfg.LeaseTimeout))
	if err != nil {
		return PollResult{}, fmt.Errorf("release stale inbox events: %w", err)
	}
	result.Released = released
	if released > 0 {
		s.logger.WarnContext(ctx, "released stale inbox claims", "count", released)
	}

	events, err := s.repos.Inbox.ClaimPending(ctx, s.cfg.BatchSize, now)
	if err != nil {
		return result, fmt.Errorf("claim pending inbox events: %w", err)
	}
	result.Claimed = len(events)
	if len(events) == 0 {
		return result, nil
	}

	pool, err := s.workerPool()
	if err != nil {
		return result, err
	}

	outcomes := make(chan ProcessResult, len(events))
	var workers sync.WaitGroup
	for _, event := range events {
		event := event
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			outcomes <- s.handle(ctx, event)
		}); err != nil {
			workers.Done()
			s.logger.ErrorContext(ctx, "submit inbox event to worker pool failed", "event_id", event.ID, "error", err)
			result.Retried++
		}
	}
	workers.Wait()
	close(outcomes)

	for outcome := range outcomes {
		switch outcome.Status {
		case ProcessCompleted:
			result.Completed++
		case ProcessFailed:
			result.Failed++
		case ProcessRetry:
			result.Retried++
		}
	}
	return result, nil
}

// Run polls until ctx is done.
func (s *InboxService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := s.PollOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.ErrorContext(ctx, "inbox poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *InboxService) Close() {
	if s.pool != nil {
		s.pool.Release()
	}
}

func (s *InboxService) workerPool() (*ants.Pool, error) {
	s.poolOnce.Do(func() {
		s.pool, s.poolErr = ants.NewPool(s.cfg.Workers)
	})
	if s.poolErr != nil {
		return nil, fmt.Errorf("create worker pool: %w", s.poolErr)
	}
	return s.pool, nil
}

// handle credits a PROCESSING event. Unrecoverable problems mark it FAILED;
// other errors leave it PROCESSING so the lease expiry returns it to PENDING.
func (s *InboxService) handle(ctx context.Context, event inbox.Event) ProcessResult {
	result := ProcessResult{EventID: event.ID}

	outcome, err := s.credit(ctx, event)
	now := s.now().UTC()
	switch {
	case err == nil:
		if markErr := s.repos.Inbox.MarkCompleted(ctx, event.ID, now); markErr != nil {
			s.logger.ErrorContext(ctx, "mark inbox event completed failed", "event_id", event.ID, "error", markErr)
			result.Status = ProcessRetry
			result.Message = markErr.Error()
			return result
		}
		result.Status = ProcessCompleted
		result.Outcome = outcome
	case isUnrecoverable(err):
		if markErr := s.repos.Inbox.MarkFailed(ctx, event.ID, err.Error(), now); markErr != nil {
			s.logger.ErrorContext(ctx, "mark inbox event as failed errored", "event_id", event.ID, "error", markErr)
		}
		s.logger.WarnContext(ctx, "inbox event rejected", "event_id", event.ID, "source", event.Source, "error", err)
		result.Status = ProcessFailed
		result.Message = err.Error()
	default:
		s.logger.ErrorContext(ctx, "inbox event processing error, will retry after lease",
			"event_id", event.ID,
			"source", event.Source,
			"error", err,
		)
		result.Status = ProcessRetry
		result.Message = err.Error()
	}

	observability.RecordInboxEvent(string(event.Source), string(result.Status))
	return result
}

func (s *InboxService) credit(ctx context.Context, event inbox.Event) (RecordOutcome, error) {
	resolved, err := s.resolver.Resolve(event)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	member, found, err := s.repos.Users.GetByExternalID(ctx, resolved.ExternalUserID)
	if err != nil {
		return "", fmt.Errorf("get user external_id=%s: %w", resolved.ExternalUserID, err)
	}
	if !found {
		return "", fmt.Errorf("%w: user external_id=%s", ErrNotFound, resolved.ExternalUserID)
	}

	target, err := s.accounting.FindWeekFor(ctx, resolved.OccurredAt)
	if err != nil {
		if !errors.Is(err, week.ErrWeekBoundaryMismatch) {
			return "", err
		}
		pending, pendingErr := s.awaitingWeek(ctx, resolved.OccurredAt)
		if pendingErr != nil {
			return "", pendingErr
		}
		if pending {
			return "", fmt.Errorf("occurred_at=%s: %w", resolved.OccurredAt.UTC().Format(time.RFC3339), errWeekNotOpened)
		}
		return "", err
	}
	cfg, err := s.configs.Get(ctx, "")
	if err != nil {
		return "", err
	}

	recorded, err := s.accounting.RecordWorkout(ctx, RecordWorkoutInput{
		WeekID:        target.ID,
		UserID:        member.ID,
		Source:        workout.Source(event.Source),
		SourceEventID: event.SourceEventID,
		OccurredAt:    resolved.OccurredAt,
		Points:        cfg.PointsPerWorkout,
	})
	if err != nil {
		return "", err
	}
	return recorded.Outcome, nil
}

// awaitingWeek reports whether at lies past the end of the latest week, i.e.
// in a week that Trigger A has not opened yet.
func (s *InboxService) awaitingWeek(ctx context.Context, at time.Time) (bool, error) {
	latest, found, err := s.repos.Weeks.FindLatest(ctx)
	if err != nil {
		return false, fmt.Errorf("find latest week: %w", err)
	}
	return !found || !at.Before(latest.EndsAt), nil
}

func isUnrecoverable(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, week.ErrWeekBoundaryMismatch) ||
		errors.Is(err, week.ErrWeekNotFound)
}
