package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/forge/internal/domain/week"
)

func TestMemberService_JoinAndLeave(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testWeekStart)
	ctx := context.Background()

	joined, err := env.members.JoinUser(ctx, " 42 ")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.ExternalID != "42" || !joined.IsActive || joined.Timezone != "Europe/Dublin" {
		t.Fatalf("unexpected joined user: %+v", joined)
	}

	left, err := env.members.LeaveUser(ctx, "42")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if left.IsActive || left.ID != joined.ID {
		t.Fatalf("unexpected user after leave: %+v", left)
	}

	rejoined, err := env.members.JoinUser(ctx, "42")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !rejoined.IsActive || rejoined.ID != joined.ID {
		t.Fatalf("expected the same user reactivated: %+v", rejoined)
	}

	if _, err := env.members.LeaveUser(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown member, got %v", err)
	}
	if _, err := env.members.JoinUser(ctx, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank id, got %v", err)
	}
}

func TestMemberService_SetCommitment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testWeekStart.Add(22*time.Hour))
	ctx := context.Background()
	env.seedWeek(t, "wk1", testWeekStart, week.StatusOpen)

	first, err := env.members.SetCommitment(ctx, SetCommitmentInput{ExternalID: "42", WeekID: "wk1", CommittedWorkouts: 3})
	if err != nil {
		t.Fatalf("set commitment: %v", err)
	}
	second, err := env.members.SetCommitment(ctx, SetCommitmentInput{ExternalID: "42", WeekID: "wk1", CommittedWorkouts: 5})
	if err != nil {
		t.Fatalf("update commitment: %v", err)
	}
	if second.ID != first.ID || second.CommittedWorkouts != 5 {
		t.Fatalf("expected the commitment to be replaced in place: first=%+v second=%+v", first, second)
	}

	count, err := env.store.Repositories().Commitments.CountByWeek(ctx, "wk1")
	if err != nil || count != 1 {
		t.Fatalf("unexpected commitment count=%d err=%v", count, err)
	}

	tests := []struct {
		name  string
		input SetCommitmentInput
		want  error
	}{
		{name: "above range", input: SetCommitmentInput{ExternalID: "42", WeekID: "wk1", CommittedWorkouts: 8}, want: ErrInvalidInput},
		{name: "below range", input: SetCommitmentInput{ExternalID: "42", WeekID: "wk1", CommittedWorkouts: -1}, want: ErrInvalidInput},
		{name: "missing week id", input: SetCommitmentInput{ExternalID: "42", CommittedWorkouts: 1}, want: ErrInvalidInput},
		{name: "unknown week", input: SetCommitmentInput{ExternalID: "42", WeekID: "nope", CommittedWorkouts: 1}, want: ErrNotFound},
	}
	for _, tc := range tests {
		if _, err := env.members.SetCommitment(ctx, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	// Zero is a valid commitment.
	zero, err := env.members.SetCommitment(ctx, SetCommitmentInput{ExternalID: "43", WeekID: "wk1", CommittedWorkouts: 0})
	if err != nil || zero.CommittedWorkouts != 0 {
		t.Fatalf("expected zero commitment to be stored: %+v err=%v", zero, err)
	}
}

func TestMemberService_SetCommitment_RejectsClosedWeek(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testWeekStart.Add(40*time.Hour))
	env.seedWeek(t, "wk1", testWeekStart, week.StatusActive)

	_, err := env.members.SetCommitment(context.Background(), SetCommitmentInput{ExternalID: "42", WeekID: "wk1", CommittedWorkouts: 2})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMemberService_LogManualWorkout(t *testing.T) {
	t.Parallel()

	now := testWeekStart.Add(50 * time.Hour)
	env := newTestEnv(t, now)
	ctx := context.Background()
	env.seedWeek(t, "wk1", testWeekStart, week.StatusActive)

	logged, err := env.members.LogManualWorkout(ctx, LogManualWorkoutInput{ExternalID: "42"})
	if err != nil {
		t.Fatalf("log manual workout: %v", err)
	}
	if logged.Week.CurrentPoints != 10 || !logged.Workout.OccurredAt.Equal(now) {
		t.Fatalf("unexpected logged workout: %+v", logged)
	}

	// Same member, same instant.
	if _, err := env.members.LogManualWorkout(ctx, LogManualWorkoutInput{ExternalID: "42"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for duplicate, got %v", err)
	}
	if env.week(t, "wk1").CurrentPoints != 10 {
		t.Fatalf("duplicate changed the points")
	}

	earlier := now.Add(-time.Hour)
	if _, err := env.members.LogManualWorkout(ctx, LogManualWorkoutInput{ExternalID: "42", OccurredAt: &earlier}); err != nil {
		t.Fatalf("log backdated workout: %v", err)
	}
	if env.week(t, "wk1").CurrentPoints != 20 {
		t.Fatalf("unexpected points after second workout: %d", env.week(t, "wk1").CurrentPoints)
	}

	outside := testWeekStart.AddDate(0, 0, 7)
	if _, err := env.members.LogManualWorkout(ctx, LogManualWorkoutInput{ExternalID: "42", OccurredAt: &outside}); !errors.Is(err, ErrWeekBoundaryMismatch) {
		t.Fatalf("expected boundary mismatch, got %v", err)
	}
}

func TestMemberService_GetStatus(t *testing.T) {
	t.Parallel()

	now := testWeekStart.Add(50 * time.Hour)
	env := newTestEnv(t, now)
	ctx := context.Background()

	if _, err := env.members.GetStatus(ctx, "42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found before join, got %v", err)
	}
	if _, err := env.members.JoinUser(ctx, "42"); err != nil {
		t.Fatalf("join: %v", err)
	}

	status, err := env.members.GetStatus(ctx, "42")
	if err != nil {
		t.Fatalf("status without week: %v", err)
	}
	if status.CurrentWeek != nil || status.Commitment != nil || status.Community != nil {
		t.Fatalf("expected an empty status without a week: %+v", status)
	}

	env.seedWeek(t, "wk1", testWeekStart, week.StatusOpen)
	if _, err := env.members.SetCommitment(ctx, SetCommitmentInput{ExternalID: "42", WeekID: "wk1", CommittedWorkouts: 4}); err != nil {
		t.Fatalf("set commitment: %v", err)
	}
	if _, err := env.lifecycle.CloseCommitments(ctx, defaultCommunityConfig(), now); err != nil {
		t.Fatalf("close commitments: %v", err)
	}
	if _, err := env.members.LogManualWorkout(ctx, LogManualWorkoutInput{ExternalID: "42"}); err != nil {
		t.Fatalf("log workout: %v", err)
	}
	if _, err := env.members.LogManualWorkout(ctx, LogManualWorkoutInput{ExternalID: "7"}); err != nil {
		t.Fatalf("log other workout: %v", err)
	}

	status, err = env.members.GetStatus(ctx, "42")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CurrentWeek == nil || status.CurrentWeek.ID != "wk1" {
		t.Fatalf("unexpected current week: %+v", status.CurrentWeek)
	}
	if status.Commitment == nil || status.Commitment.CommittedWorkouts != 4 {
		t.Fatalf("unexpected commitment: %+v", status.Commitment)
	}
	if status.WorkoutsThisWeek != 1 {
		t.Fatalf("unexpected member workouts: %d", status.WorkoutsThisWeek)
	}
	if status.Community == nil || status.Community.GoalPoints != 40 || status.Community.CurrentPoints != 20 || status.Community.TotalWorkouts != 2 {
		t.Fatalf("unexpected community progress: %+v", status.Community)
	}

	view, err := env.members.CurrentWeek(ctx)
	if err != nil {
		t.Fatalf("current week: %v", err)
	}
	if view.Stats.CommitmentsCount != 1 || view.Stats.WorkoutsCount != 2 || view.Progress.Percent != 50 {
		t.Fatalf("unexpected current week view: %+v", view)
	}
}

func TestComputeProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		goal, current, ppw int
		want               Progress
	}{
		{name: "halfway", goal: 100, current: 50, ppw: 10, want: Progress{Percent: 50, Bar: "█████░░░░░", PointsRemaining: 50, WorkoutsRemaining: 5}},
		{name: "rounds workouts up", goal: 100, current: 35, ppw: 10, want: Progress{Percent: 35, Bar: "███░░░░░░░", PointsRemaining: 65, WorkoutsRemaining: 7}},
		{name: "past goal", goal: 40, current: 60, ppw: 10, want: Progress{Percent: 100, Bar: "██████████", PointsRemaining: 0, WorkoutsRemaining: 0}},
		{name: "no goal", goal: 0, current: 0, ppw: 10, want: Progress{Percent: 0, Bar: "░░░░░░░░░░", PointsRemaining: 0, WorkoutsRemaining: 0}},
	}
	for _, tc := range tests {
		if got := ComputeProgress(tc.goal, tc.current, tc.ppw); got != tc.want {
			t.Fatalf("%s: got=%+v want=%+v", tc.name, got, tc.want)
		}
	}
}
