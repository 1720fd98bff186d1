package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/forge/internal/domain/ledger"
	"github.com/riskibarqy/forge/internal/domain/storage"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/domain/workout"
	"github.com/riskibarqy/forge/internal/observability"
	"github.com/riskibarqy/forge/internal/platform/id"
	"github.com/riskibarqy/forge/internal/platform/logging"
)

type RecordOutcome string

const (
	OutcomeCreated         RecordOutcome = "created"
	OutcomeAlreadyRecorded RecordOutcome = "already_recorded"
)

type AccountingConfig struct {
	// MaxAttempts bounds immediate retries of a transaction aborted by contention.
	MaxAttempts int
}

type RecordWorkoutInput struct {
	WeekID        string
	UserID        string
	Source        workout.Source
	SourceEventID string
	OccurredAt    time.Time
	Points        int
}

type RecordWorkoutResult struct {
	Outcome RecordOutcome
	Workout workout.Workout
	Week    week.Week
}

type LedgerCheck struct {
	WeekID        string `json:"week_id"`
	LedgerSum     int    `json:"ledger_sum"`
	CurrentPoints int    `json:"current_points"`
	Consistent    bool   `json:"consistent"`
}

type AccountingService struct {
	tx       storage.TxRunner
	repos    storage.Repositories
	ids      id.Generator
	notifier Notifier
	cfg      AccountingConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewAccountingService(
	tx storage.TxRunner,
	repos storage.Repositories,
	ids id.Generator,
	notifier Notifier,
	cfg AccountingConfig,
	logger *logging.Logger,
) *AccountingService {
	if notifier == nil {
		notifier = NewNoopNotifier()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &AccountingService{
		tx:       tx,
		repos:    repos,
		ids:      ids,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordWorkout credits a workout to a week exactly once per (source, source event id).
// The workout row, its ledger entry and the week counter are written in one transaction.
func (s *AccountingService) RecordWorkout(ctx context.Context, input RecordWorkoutInput) (RecordWorkoutResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AccountingService.RecordWorkout")
	defer span.End()

	input.WeekID = strings.TrimSpace(input.WeekID)
	input.UserID = strings.TrimSpace(input.UserID)
	input.SourceEventID = strings.TrimSpace(input.SourceEventID)
	switch {
	case input.WeekID == "":
		return RecordWorkoutResult{}, fmt.Errorf("%w: week id is required", ErrInvalidInput)
	case input.UserID == "":
		return RecordWorkoutResult{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	case input.SourceEventID == "":
		return RecordWorkoutResult{}, fmt.Errorf("%w: source event id is required", ErrInvalidInput)
	case input.OccurredAt.IsZero():
		return RecordWorkoutResult{}, fmt.Errorf("%w: occurred at is required", ErrInvalidInput)
	case input.Points < 0:
		return RecordWorkoutResult{}, fmt.Errorf("%w: points must be >= 0", ErrInvalidInput)
	}
	if _, err := workout.ParseSource(string(input.Source)); err != nil {
		return RecordWorkoutResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	workoutID, err := s.ids.NewID()
	if err != nil {
		return RecordWorkoutResult{}, fmt.Errorf("generate workout id: %w", err)
	}
	entryID, err := s.ids.NewID()
	if err != nil {
		return RecordWorkoutResult{}, fmt.Errorf("generate ledger entry id: %w", err)
	}

	var result RecordWorkoutResult
	err = s.withRetry(ctx, func(ctx context.Context, repos storage.Repositories) error {
		result = RecordWorkoutResult{}
		now := s.now().UTC()

		current, found, err := repos.Weeks.GetByIDForUpdate(ctx, input.WeekID)
		if err != nil {
			return fmt.Errorf("lock week id=%s: %w", input.WeekID, err)
		}
		if !found {
			return fmt.Errorf("%w: week id=%s: %w", ErrNotFound, input.WeekID, week.ErrWeekNotFound)
		}
		if !current.Contains(input.OccurredAt) {
			return fmt.Errorf("%w: week id=%s occurred_at=%s: %w",
				ErrInvalidInput, input.WeekID, input.OccurredAt.UTC().Format(time.RFC3339), week.ErrWeekBoundaryMismatch)
		}

		item := workout.Workout{
			ID:            workoutID,
			WeekID:        current.ID,
			UserID:        input.UserID,
			Source:        input.Source,
			SourceEventID: input.SourceEventID,
			OccurredAt:    input.OccurredAt.UTC(),
			PointsAwarded: input.Points,
			CreatedAt:     now,
		}
		inserted, err := repos.Workouts.Insert(ctx, item)
		if err != nil {
			return fmt.Errorf("insert workout: %w", err)
		}
		if !inserted {
			existing, _, err := repos.Workouts.GetBySourceEvent(ctx, input.Source, input.SourceEventID)
			if err != nil {
				return fmt.Errorf("get recorded workout: %w", err)
			}
			result = RecordWorkoutResult{Outcome: OutcomeAlreadyRecorded, Workout: existing, Week: current}
			return nil
		}

		if err := repos.Ledger.Append(ctx, ledger.Entry{
			ID:        entryID,
			WeekID:    current.ID,
			UserID:    input.UserID,
			Reason:    ledger.ReasonWorkoutLogged,
			Points:    input.Points,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		updated, err := repos.Weeks.IncrementPoints(ctx, current.ID, input.Points, now)
		if err != nil {
			return fmt.Errorf("increment week points: %w", err)
		}

		result = RecordWorkoutResult{Outcome: OutcomeCreated, Workout: item, Week: updated}
		return nil
	})
	if err != nil {
		return RecordWorkoutResult{}, err
	}

	if result.Outcome == OutcomeCreated {
		observability.RecordWorkout(string(input.Source), string(result.Outcome), input.Points)
		if err := s.notifier.OnPointsChanged(ctx, result.Week); err != nil {
			observability.RecordNotificationError("points_changed")
			s.logger.WarnContext(ctx, "notify points changed failed", "week_id", result.Week.ID, "error", err)
		}
	} else {
		observability.RecordWorkout(string(input.Source), string(result.Outcome), 0)
	}

	return result, nil
}

// FindWeekFor returns the week whose [startsAt, endsAt) contains at.
func (s *AccountingService) FindWeekFor(ctx context.Context, at time.Time) (week.Week, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AccountingService.FindWeekFor")
	defer span.End()

	item, found, err := s.repos.Weeks.FindContaining(ctx, at.UTC())
	if err != nil {
		return week.Week{}, fmt.Errorf("find week containing %s: %w", at.UTC().Format(time.RFC3339), err)
	}
	if !found {
		return week.Week{}, fmt.Errorf("%w: no active week for this date: %w", ErrInvalidInput, week.ErrWeekBoundaryMismatch)
	}
	return item, nil
}

// VerifyLedger compares the ledger sum of a week against its counter.
func (s *AccountingService) VerifyLedger(ctx context.Context, weekID string) (LedgerCheck, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AccountingService.VerifyLedger")
	defer span.End()

	var check LedgerCheck
	err := s.tx.RunInTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		current, found, err := repos.Weeks.GetByID(ctx, weekID)
		if err != nil {
			return fmt.Errorf("get week id=%s: %w", weekID, err)
		}
		if !found {
			return fmt.Errorf("%w: week id=%s: %w", ErrNotFound, weekID, week.ErrWeekNotFound)
		}
		sum, err := repos.Ledger.SumByWeek(ctx, weekID)
		if err != nil {
			return fmt.Errorf("sum ledger for week id=%s: %w", weekID, err)
		}
		check = LedgerCheck{
			WeekID:        weekID,
			LedgerSum:     sum,
			CurrentPoints: current.CurrentPoints,
			Consistent:    sum == current.CurrentPoints,
		}
		return nil
	})
	if err != nil {
		return LedgerCheck{}, err
	}
	if !check.Consistent {
		s.logger.ErrorContext(ctx, "ledger and week counter diverged",
			"week_id", weekID,
			"ledger_sum", check.LedgerSum,
			"current_points", check.CurrentPoints,
		)
	}
	return check, nil
}

// withRetry runs fn in a transaction and retries immediately while the store
// reports a contention abort.
func (s *AccountingService) withRetry(ctx context.Context, fn func(ctx context.Context, repos storage.Repositories) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		err := s.tx.RunInTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrTxConflict) {
			return err
		}
		lastErr = err
		observability.RecordTxRetry()
		s.logger.WarnContext(ctx, "transaction aborted by contention", "attempt", attempt, "error", err)
	}
	return fmt.Errorf("%w: after %d attempts: %w", ErrTransaction, s.cfg.MaxAttempts, lastErr)
}
