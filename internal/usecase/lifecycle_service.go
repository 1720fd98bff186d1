package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/forge/internal/domain/commitment"
	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/storage"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/observability"
	"github.com/riskibarqy/forge/internal/platform/id"
	"github.com/riskibarqy/forge/internal/platform/logging"
)

type Trigger string

const (
	TriggerEndAndOpen       Trigger = "end-and-open"
	TriggerCloseCommitments Trigger = "close-commitments"
)

type EndAndOpenResult struct {
	Ended  *week.Week
	Recap  *recap.Summary
	Opened *week.Week
}

func (r EndAndOpenResult) Changed() bool {
	return r.Ended != nil || r.Opened != nil
}

type CloseCommitmentsResult struct {
	Closed *week.Week
}

func (r CloseCommitmentsResult) Changed() bool {
	return r.Closed != nil
}

// DueTriggers lists the transitions that persisted state says have not
// happened yet.
type DueTriggers struct {
	EndAndOpen       bool `json:"end_and_open"`
	CloseCommitments bool `json:"close_commitments"`
}

func (d DueTriggers) Any() bool {
	return d.EndAndOpen || d.CloseCommitments
}

// LifecycleService moves weeks through OPEN, ACTIVE and ENDED. Every transition
// takes the community config and the current instant as inputs.
type LifecycleService struct {
	tx       storage.TxRunner
	repos    storage.Repositories
	ids      id.Generator
	notifier Notifier
	logger   *logging.Logger
}

func NewLifecycleService(
	tx storage.TxRunner,
	repos storage.Repositories,
	ids id.Generator,
	notifier Notifier,
	logger *logging.Logger,
) *LifecycleService {
	if notifier == nil {
		notifier = NewNoopNotifier()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LifecycleService{
		tx:       tx,
		repos:    repos,
		ids:      ids,
		notifier: notifier,
		logger:   logger,
	}
}

// EndAndOpen ends the ACTIVE week when it started before the community week
// containing now, publishes its recap, then opens the week containing now
// unless one already exists.
func (s *LifecycleService) EndAndOpen(ctx context.Context, cfg community.Config, now time.Time) (EndAndOpenResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.EndAndOpen")
	defer span.End()

	bounds, err := cfg.WeekBounds(now)
	if err != nil {
		return EndAndOpenResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	now = now.UTC()

	var result EndAndOpenResult
	ended, err := s.endActive(ctx, bounds, now)
	if err != nil {
		return EndAndOpenResult{}, err
	}
	if ended != nil {
		observability.RecordTransition(string(week.StatusEnded))
		result.Ended = ended
		summary, err := s.BuildRecap(ctx, *ended)
		if err != nil {
			s.logTransitionFailure(ctx, "week_ended", ended.ID, fmt.Errorf("build recap: %w", err))
		} else {
			result.Recap = &summary
			if err := s.notifier.OnWeekEnded(ctx, *ended, summary); err != nil {
				s.logTransitionFailure(ctx, "week_ended", ended.ID, err)
			}
		}
	}

	opened, err := s.openWeek(ctx, bounds, now)
	if err != nil {
		return result, err
	}
	if opened != nil {
		observability.RecordTransition(string(week.StatusOpen))
		result.Opened = opened
		if err := s.notifier.OnWeekOpened(ctx, *opened); err != nil {
			s.logTransitionFailure(ctx, "week_opened", opened.ID, err)
		}
	}

	s.logger.InfoContext(ctx, "end and open evaluated",
		"community_id", cfg.CommunityID,
		"ended", ended != nil,
		"opened", opened != nil,
		"week_starts_at", bounds.StartsAt,
	)
	return result, nil
}

// CloseCommitments locks the OPEN week, fixes its goal from the commitments
// present at this instant and flips it to ACTIVE.
func (s *LifecycleService) CloseCommitments(ctx context.Context, cfg community.Config, now time.Time) (CloseCommitmentsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.CloseCommitments")
	defer span.End()

	if cfg.PointsPerWorkout <= 0 {
		return CloseCommitmentsResult{}, fmt.Errorf("%w: points per workout must be > 0", ErrInvalidInput)
	}
	now = now.UTC()

	var closed *week.Week
	err := s.tx.RunInTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		closed = nil
		open, found, err := repos.Weeks.FindByStatus(ctx, week.StatusOpen)
		if err != nil {
			return fmt.Errorf("find open week: %w", err)
		}
		if !found {
			return nil
		}
		locked, found, err := repos.Weeks.GetByIDForUpdate(ctx, open.ID)
		if err != nil {
			return fmt.Errorf("lock week id=%s: %w", open.ID, err)
		}
		if !found || locked.Status != week.StatusOpen {
			return nil
		}

		active, found, err := repos.Weeks.FindByStatus(ctx, week.StatusActive)
		if err != nil {
			return fmt.Errorf("find active week: %w", err)
		}
		if found {
			return fmt.Errorf("%w: week id=%s is still active", ErrConflict, active.ID)
		}

		items, err := repos.Commitments.ListByWeek(ctx, locked.ID)
		if err != nil {
			return fmt.Errorf("list commitments week_id=%s: %w", locked.ID, err)
		}
		goal := commitment.TotalCommitted(items) * cfg.PointsPerWorkout

		updated, applied, err := repos.Weeks.Transition(ctx, locked.ID, week.StatusOpen, week.StatusActive, &goal, now)
		if err != nil {
			return fmt.Errorf("activate week id=%s: %w", locked.ID, err)
		}
		if applied {
			closed = &updated
		}
		return nil
	})
	if err != nil {
		return CloseCommitmentsResult{}, err
	}
	if closed == nil {
		return CloseCommitmentsResult{}, nil
	}

	observability.RecordTransition(string(week.StatusActive))
	if err := s.notifier.OnWeekClosed(ctx, *closed); err != nil {
		s.logTransitionFailure(ctx, "week_closed", closed.ID, err)
	}
	s.logger.InfoContext(ctx, "commitments closed",
		"community_id", cfg.CommunityID,
		"week_id", closed.ID,
		"goal_points", closed.GoalPoints,
	)
	return CloseCommitmentsResult{Closed: closed}, nil
}

// DueTriggers inspects persisted weeks so a tick missed during downtime is
// caught up by the next evaluation.
func (s *LifecycleService) DueTriggers(ctx context.Context, cfg community.Config, now time.Time) (DueTriggers, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.DueTriggers")
	defer span.End()

	bounds, err := cfg.WeekBounds(now)
	if err != nil {
		return DueTriggers{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var due DueTriggers
	open, found, err := s.repos.Weeks.FindByStatus(ctx, week.StatusOpen)
	if err != nil {
		return DueTriggers{}, fmt.Errorf("find open week: %w", err)
	}
	if found && !open.CommitmentsCloseAt.After(now) {
		due.CloseCommitments = true
	}

	if now.Before(bounds.CommitmentsOpenAt) {
		return due, nil
	}

	_, exists, err := s.repos.Weeks.FindByStartsAt(ctx, bounds.StartsAt)
	if err != nil {
		return DueTriggers{}, fmt.Errorf("find week by start: %w", err)
	}
	if !exists {
		due.EndAndOpen = true
		return due, nil
	}

	active, found, err := s.repos.Weeks.FindByStatus(ctx, week.StatusActive)
	if err != nil {
		return DueTriggers{}, fmt.Errorf("find active week: %w", err)
	}
	if found && active.StartsAt.Before(bounds.StartsAt) {
		due.EndAndOpen = true
	}
	return due, nil
}

// BuildRecap classifies the members of a week and summarizes the community result.
func (s *LifecycleService) BuildRecap(ctx context.Context, w week.Week) (recap.Summary, error) {
	items, err := s.repos.Commitments.ListByWeek(ctx, w.ID)
	if err != nil {
		return recap.Summary{}, fmt.Errorf("list commitments week_id=%s: %w", w.ID, err)
	}
	counts, err := s.repos.Workouts.CountByWeekGroupedByUser(ctx, w.ID)
	if err != nil {
		return recap.Summary{}, fmt.Errorf("count workouts week_id=%s: %w", w.ID, err)
	}

	committed := make([]recap.Committed, 0, len(items))
	for _, item := range items {
		committed = append(committed, recap.Committed{UserID: item.UserID, Workouts: item.CommittedWorkouts})
	}
	total := 0
	for _, item := range counts {
		total += item.Count
	}
	return recap.Summarize(w, total, recap.Classify(committed, counts)), nil
}

func (s *LifecycleService) endActive(ctx context.Context, bounds week.Bounds, now time.Time) (*week.Week, error) {
	var ended *week.Week
	err := s.tx.RunInTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		ended = nil
		active, found, err := repos.Weeks.FindByStatus(ctx, week.StatusActive)
		if err != nil {
			return fmt.Errorf("find active week: %w", err)
		}
		if !found || !active.StartsAt.Before(bounds.StartsAt) {
			return nil
		}

		updated, applied, err := repos.Weeks.Transition(ctx, active.ID, week.StatusActive, week.StatusEnded, nil, now)
		if err != nil {
			return fmt.Errorf("end week id=%s: %w", active.ID, err)
		}
		if applied {
			ended = &updated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ended, nil
}

func (s *LifecycleService) openWeek(ctx context.Context, bounds week.Bounds, now time.Time) (*week.Week, error) {
	weekID, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate week id: %w", err)
	}

	var opened *week.Week
	err = s.tx.RunInTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		opened = nil
		if _, found, err := repos.Weeks.FindByStatus(ctx, week.StatusOpen); err != nil {
			return fmt.Errorf("find open week: %w", err)
		} else if found {
			return nil
		}
		if _, found, err := repos.Weeks.FindByStartsAt(ctx, bounds.StartsAt); err != nil {
			return fmt.Errorf("find week by start: %w", err)
		} else if found {
			return nil
		}

		item := week.Week{
			ID:                 weekID,
			StartsAt:           bounds.StartsAt,
			CommitmentsOpenAt:  bounds.CommitmentsOpenAt,
			CommitmentsCloseAt: bounds.CommitmentsCloseAt,
			EndsAt:             bounds.EndsAt,
			Status:             week.StatusOpen,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := repos.Weeks.Create(ctx, item); err != nil {
			return err
		}
		opened = &item
		return nil
	})
	if errors.Is(err, week.ErrWeekExists) {
		s.logger.InfoContext(ctx, "week already opened by another instance", "week_starts_at", bounds.StartsAt)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open week: %w", err)
	}
	return opened, nil
}

// logTransitionFailure records a failed step after the state change committed.
// The transition itself stays in place.
func (s *LifecycleService) logTransitionFailure(ctx context.Context, event, weekID string, err error) {
	observability.RecordNotificationError(event)
	s.logger.ErrorContext(ctx, "lifecycle notification failed",
		"event", event,
		"week_id", weekID,
		"error", fmt.Errorf("%w: %w", ErrSchedulerTransition, err),
	)
}
