package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/forge/internal/domain/commitment"
	"github.com/riskibarqy/forge/internal/domain/storage"
	"github.com/riskibarqy/forge/internal/domain/user"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/domain/workout"
	"github.com/riskibarqy/forge/internal/platform/id"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

const progressBarBlocks = 10

type SetCommitmentInput struct {
	ExternalID        string
	WeekID            string
	CommittedWorkouts int
}

type LogManualWorkoutInput struct {
	ExternalID string
	OccurredAt *time.Time
}

type LogWorkoutResult struct {
	Workout workout.Workout
	Week    week.Week
}

type CommunityProgress struct {
	GoalPoints    int
	CurrentPoints int
	TotalWorkouts int
}

type MemberStatus struct {
	User             user.User
	CurrentWeek      *week.Week
	Commitment       *commitment.Commitment
	WorkoutsThisWeek int
	Community        *CommunityProgress
}

type Progress struct {
	Percent           int
	Bar               string
	PointsRemaining   int
	WorkoutsRemaining int
}

type CurrentWeekView struct {
	Stats    week.Stats
	Progress Progress
}

// MemberService implements the member commands and read projections.
type MemberService struct {
	tx         storage.TxRunner
	repos      storage.Repositories
	accounting *AccountingService
	configs    *CommunityConfigService
	ids        id.Generator
	logger     *logging.Logger
	now        func() time.Time
}

func NewMemberService(
	tx storage.TxRunner,
	repos storage.Repositories,
	accounting *AccountingService,
	configs *CommunityConfigService,
	ids id.Generator,
	logger *logging.Logger,
) *MemberService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MemberService{
		tx:         tx,
		repos:      repos,
		accounting: accounting,
		configs:    configs,
		ids:        ids,
		logger:     logger,
		now:        time.Now,
	}
}

// JoinUser creates the member or reactivates a member who left.
func (s *MemberService) JoinUser(ctx context.Context, externalID string) (user.User, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MemberService.JoinUser")
	defer span.End()

	externalID, err := requireExternalID(externalID)
	if err != nil {
		return user.User{}, err
	}
	return s.ensureUser(ctx, s.repos.Users, externalID, user.Active(true))
}

func (s *MemberService) LeaveUser(ctx context.Context, externalID string) (user.User, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MemberService.LeaveUser")
	defer span.End()

	externalID, err := requireExternalID(externalID)
	if err != nil {
		return user.User{}, err
	}

	item, found, err := s.repos.Users.SetActive(ctx, externalID, false, s.now().UTC())
	if err != nil {
		return user.User{}, fmt.Errorf("deactivate user external_id=%s: %w", externalID, err)
	}
	if !found {
		return user.User{}, fmt.Errorf("%w: user external_id=%s", ErrNotFound, externalID)
	}
	return item, nil
}

// SetCommitment writes the member's commitment while the week is OPEN. The
// week row stays locked until the write commits so a concurrent close cannot
// interleave.
func (s *MemberService) SetCommitment(ctx context.Context, input SetCommitmentInput) (commitment.Commitment, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MemberService.SetCommitment")
	defer span.End()

	externalID, err := requireExternalID(input.ExternalID)
	if err != nil {
		return commitment.Commitment{}, err
	}
	weekID := strings.TrimSpace(input.WeekID)
	if weekID == "" {
		return commitment.Commitment{}, fmt.Errorf("%w: week id is required", ErrInvalidInput)
	}
	if err := commitment.ValidateCount(input.CommittedWorkouts); err != nil {
		return commitment.Commitment{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	commitmentID, err := s.ids.NewID()
	if err != nil {
		return commitment.Commitment{}, fmt.Errorf("generate commitment id: %w", err)
	}

	var out commitment.Commitment
	err = s.tx.RunInTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		target, found, err := repos.Weeks.GetByIDForUpdate(ctx, weekID)
		if err != nil {
			return fmt.Errorf("lock week id=%s: %w", weekID, err)
		}
		if !found {
			return fmt.Errorf("%w: week id=%s: %w", ErrNotFound, weekID, week.ErrWeekNotFound)
		}
		if !target.IsOpen() {
			return fmt.Errorf("%w: commitments are closed for week id=%s", ErrConflict, weekID)
		}

		member, err := s.ensureUser(ctx, repos.Users, externalID, nil)
		if err != nil {
			return err
		}

		out, err = repos.Commitments.Upsert(ctx, commitmentID, target.ID, member.ID, commitment.Update{
			CommittedWorkouts: input.CommittedWorkouts,
			At:                s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("upsert commitment week_id=%s user_id=%s: %w", target.ID, member.ID, err)
		}
		return nil
	})
	if err != nil {
		return commitment.Commitment{}, err
	}
	return out, nil
}

// LogManualWorkout credits a self-reported workout. Repeating the call for the
// same instant is rejected as a conflict.
func (s *MemberService) LogManualWorkout(ctx context.Context, input LogManualWorkoutInput) (LogWorkoutResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MemberService.LogManualWorkout")
	defer span.End()

	externalID, err := requireExternalID(input.ExternalID)
	if err != nil {
		return LogWorkoutResult{}, err
	}
	occurredAt := s.now().UTC()
	if input.OccurredAt != nil {
		occurredAt = input.OccurredAt.UTC()
	}

	member, err := s.ensureUser(ctx, s.repos.Users, externalID, nil)
	if err != nil {
		return LogWorkoutResult{}, err
	}
	target, err := s.accounting.FindWeekFor(ctx, occurredAt)
	if err != nil {
		return LogWorkoutResult{}, err
	}
	cfg, err := s.configs.Get(ctx, "")
	if err != nil {
		return LogWorkoutResult{}, err
	}

	recorded, err := s.accounting.RecordWorkout(ctx, RecordWorkoutInput{
		WeekID:        target.ID,
		UserID:        member.ID,
		Source:        workout.SourceManual,
		SourceEventID: workout.ManualSourceEventID(member.ID, occurredAt),
		OccurredAt:    occurredAt,
		Points:        cfg.PointsPerWorkout,
	})
	if err != nil {
		return LogWorkoutResult{}, err
	}
	if recorded.Outcome == OutcomeAlreadyRecorded {
		return LogWorkoutResult{}, fmt.Errorf("%w: this workout has already been logged", ErrConflict)
	}
	return LogWorkoutResult{Workout: recorded.Workout, Week: recorded.Week}, nil
}

// GetStatus is the read projection of one member against the current week.
func (s *MemberService) GetStatus(ctx context.Context, externalID string) (MemberStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MemberService.GetStatus")
	defer span.End()

	externalID, err := requireExternalID(externalID)
	if err != nil {
		return MemberStatus{}, err
	}

	member, found, err := s.repos.Users.GetByExternalID(ctx, externalID)
	if err != nil {
		return MemberStatus{}, fmt.Errorf("get user external_id=%s: %w", externalID, err)
	}
	if !found {
		return MemberStatus{}, fmt.Errorf("%w: user external_id=%s", ErrNotFound, externalID)
	}

	status := MemberStatus{User: member}
	current, found, err := s.repos.Weeks.FindCurrent(ctx)
	if err != nil {
		return MemberStatus{}, fmt.Errorf("find current week: %w", err)
	}
	if !found {
		return status, nil
	}
	status.CurrentWeek = &current

	var (
		own         commitment.Commitment
		hasOwn      bool
		ownWorkouts int
		total       int
	)
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		own, hasOwn, err = s.repos.Commitments.Get(ctx, current.ID, member.ID)
		if err != nil {
			return fmt.Errorf("get commitment: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		ownWorkouts, err = s.repos.Workouts.CountByWeekAndUser(ctx, current.ID, member.ID)
		if err != nil {
			return fmt.Errorf("count member workouts: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		total, err = s.repos.Workouts.CountByWeek(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("count week workouts: %w", err)
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		return MemberStatus{}, err
	}

	if hasOwn {
		status.Commitment = &own
	}
	status.WorkoutsThisWeek = ownWorkouts
	status.Community = &CommunityProgress{
		GoalPoints:    current.GoalPoints,
		CurrentPoints: current.CurrentPoints,
		TotalWorkouts: total,
	}
	return status, nil
}

// CurrentWeek returns the latest OPEN or ACTIVE week with its counts and progress.
func (s *MemberService) CurrentWeek(ctx context.Context) (CurrentWeekView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MemberService.CurrentWeek")
	defer span.End()

	current, found, err := s.repos.Weeks.FindCurrent(ctx)
	if err != nil {
		return CurrentWeekView{}, fmt.Errorf("find current week: %w", err)
	}
	if !found {
		return CurrentWeekView{}, fmt.Errorf("%w: no current week", ErrNotFound)
	}
	cfg, err := s.configs.Get(ctx, "")
	if err != nil {
		return CurrentWeekView{}, err
	}

	stats := week.Stats{Week: current}
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		stats.CommitmentsCount, err = s.repos.Commitments.CountByWeek(ctx, current.ID)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		stats.WorkoutsCount, err = s.repos.Workouts.CountByWeek(ctx, current.ID)
		return err
	})
	if err := p.Wait(); err != nil {
		return CurrentWeekView{}, fmt.Errorf("count current week id=%s: %w", current.ID, err)
	}

	return CurrentWeekView{
		Stats:    stats,
		Progress: ComputeProgress(current.GoalPoints, current.CurrentPoints, cfg.PointsPerWorkout),
	}, nil
}

// UpdateMessageRefs stores where the announcements of a week were posted.
func (s *MemberService) UpdateMessageRefs(ctx context.Context, weekID string, update week.MessageRefsUpdate) (week.Week, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MemberService.UpdateMessageRefs")
	defer span.End()

	weekID = strings.TrimSpace(weekID)
	if weekID == "" {
		return week.Week{}, fmt.Errorf("%w: week id is required", ErrInvalidInput)
	}
	item, found, err := s.repos.Weeks.UpdateMessageRefs(ctx, weekID, update, s.now().UTC())
	if err != nil {
		return week.Week{}, fmt.Errorf("update message refs week_id=%s: %w", weekID, err)
	}
	if !found {
		return week.Week{}, fmt.Errorf("%w: week id=%s: %w", ErrNotFound, weekID, week.ErrWeekNotFound)
	}
	return item, nil
}

// ComputeProgress renders the community progress toward the goal.
func ComputeProgress(goalPoints, currentPoints, pointsPerWorkout int) Progress {
	if pointsPerWorkout <= 0 {
		pointsPerWorkout = workout.DefaultPointsPerWorkout
	}

	percent := 0
	if goalPoints > 0 {
		percent = currentPoints * 100 / goalPoints
		if percent > 100 {
			percent = 100
		}
	}
	filled := percent * progressBarBlocks / 100
	remaining := goalPoints - currentPoints
	if remaining < 0 {
		remaining = 0
	}

	return Progress{
		Percent:           percent,
		Bar:               strings.Repeat("█", filled) + strings.Repeat("░", progressBarBlocks-filled),
		PointsRemaining:   remaining,
		WorkoutsRemaining: (remaining + pointsPerWorkout - 1) / pointsPerWorkout,
	}
}

func (s *MemberService) ensureUser(ctx context.Context, repo user.Repository, externalID string, active *bool) (user.User, error) {
	newID, err := s.ids.NewID()
	if err != nil {
		return user.User{}, fmt.Errorf("generate user id: %w", err)
	}
	cfg, err := s.configs.Get(ctx, "")
	if err != nil {
		return user.User{}, err
	}

	item, err := repo.Upsert(ctx, newID, user.Upsert{
		ExternalID: externalID,
		Timezone:   cfg.Timezone,
		IsActive:   active,
		At:         s.now().UTC(),
	})
	if err != nil {
		return user.User{}, fmt.Errorf("upsert user external_id=%s: %w", externalID, err)
	}
	return item, nil
}

func requireExternalID(externalID string) (string, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", fmt.Errorf("%w: external id is required", ErrInvalidInput)
	}
	return externalID, nil
}

// IsExpectedOutcome reports errors that callers render as friendly messages
// rather than log as failures.
func IsExpectedOutcome(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound)
}
