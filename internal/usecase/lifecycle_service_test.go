package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/forge/internal/domain/commitment"
	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/domain/workout"
	usecasemock "github.com/riskibarqy/forge/internal/mocks/usecase"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func seedCommitment(t *testing.T, env *testEnv, weekID, userID string, count int) {
	t.Helper()

	_, err := env.store.Repositories().Commitments.Upsert(context.Background(), "c-"+userID, weekID, userID, commitment.Update{
		CommittedWorkouts: count,
		At:                testWeekStart,
	})
	if err != nil {
		t.Fatalf("seed commitment: %v", err)
	}
}

func TestLifecycleService_CloseCommitments_ComputesGoal(t *testing.T) {
	t.Parallel()

	now := testWeekStart.Add(33 * time.Hour)
	env := newTestEnv(t, now)
	env.seedWeek(t, "wk1", testWeekStart, week.StatusOpen)
	seedCommitment(t, env, "wk1", "A", 3)
	seedCommitment(t, env, "wk1", "B", 5)
	seedCommitment(t, env, "wk1", "C", 2)

	result, err := env.lifecycle.CloseCommitments(context.Background(), defaultCommunityConfig(), now)
	if err != nil {
		t.Fatalf("close commitments: %v", err)
	}
	if result.Closed == nil {
		t.Fatalf("expected a closed week")
	}
	if result.Closed.GoalPoints != 100 || result.Closed.Status != week.StatusActive {
		t.Fatalf("unexpected closed week: goal=%d status=%s", result.Closed.GoalPoints, result.Closed.Status)
	}
	if len(env.notifier.closed) != 1 {
		t.Fatalf("expected one closed notification, got=%d", len(env.notifier.closed))
	}

	// Later commitment changes are rejected and the goal stays fixed.
	_, err = env.members.SetCommitment(context.Background(), SetCommitmentInput{ExternalID: "late", WeekID: "wk1", CommittedWorkouts: 7})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict after close, got %v", err)
	}
	if got := env.week(t, "wk1").GoalPoints; got != 100 {
		t.Fatalf("goal changed after close: %d", got)
	}
}

func TestLifecycleService_TriggersAreIdempotentNoOps(t *testing.T) {
	t.Parallel()

	now := testWeekStart.Add(10 * time.Hour)
	env := newTestEnv(t, now)
	ctx := context.Background()
	cfg := defaultCommunityConfig()

	closed, err := env.lifecycle.CloseCommitments(ctx, cfg, now)
	if err != nil || closed.Changed() {
		t.Fatalf("expected close no-op without an OPEN week, changed=%v err=%v", closed.Changed(), err)
	}

	env.seedWeek(t, "wk1", testWeekStart, week.StatusOpen)
	ended, err := env.lifecycle.EndAndOpen(ctx, cfg, now)
	if err != nil || ended.Changed() {
		t.Fatalf("expected end-and-open no-op without an ACTIVE week, changed=%v err=%v", ended.Changed(), err)
	}
	if len(env.store.ListWeeks()) != 1 {
		t.Fatalf("unexpected week count: %d", len(env.store.ListWeeks()))
	}
}

func TestLifecycleService_EndAndOpen_KeepsActiveWeekInsideItsSpan(t *testing.T) {
	t.Parallel()

	// Wednesday of wk1: the community week containing now is wk1 itself.
	now := testWeekStart.AddDate(0, 0, 3)
	env := newTestEnv(t, now)
	env.seedWeek(t, "wk1", testWeekStart, week.StatusActive)

	result, err := env.orchestrator.RunEndAndOpen(context.Background())
	if err != nil {
		t.Fatalf("end and open: %v", err)
	}
	if result.Changed() {
		t.Fatalf("expected no transition mid-week: %+v", result)
	}
	if env.week(t, "wk1").Status != week.StatusActive || len(env.store.ListWeeks()) != 1 {
		t.Fatalf("active week must stay untouched")
	}
}

func TestLifecycleService_EndAndOpen_OpensFirstWeek(t *testing.T) {
	t.Parallel()

	now := testWeekStart.Add(21*time.Hour + 30*time.Second)
	env := newTestEnv(t, now)

	result, err := env.lifecycle.EndAndOpen(context.Background(), defaultCommunityConfig(), now)
	if err != nil {
		t.Fatalf("end and open: %v", err)
	}
	if result.Ended != nil || result.Opened == nil {
		t.Fatalf("expected only an opened week: %+v", result)
	}

	opened := *result.Opened
	if !opened.StartsAt.Equal(testWeekStart) ||
		!opened.CommitmentsOpenAt.Equal(testWeekStart.Add(21*time.Hour)) ||
		!opened.CommitmentsCloseAt.Equal(testWeekStart.Add(33*time.Hour)) ||
		!opened.EndsAt.Equal(testWeekStart.AddDate(0, 0, 7)) {
		t.Fatalf("unexpected bounds: %+v", opened)
	}
	if opened.Status != week.StatusOpen || opened.GoalPoints != 0 || opened.CurrentPoints != 0 {
		t.Fatalf("unexpected new week state: %+v", opened)
	}
	if len(env.notifier.opened) != 1 {
		t.Fatalf("expected one opened notification, got=%d", len(env.notifier.opened))
	}
}

func TestLifecycleService_EndAndOpen_EndsPreviousWeekWithRecap(t *testing.T) {
	t.Parallel()

	previous := testWeekStart.AddDate(0, 0, -7)
	now := testWeekStart.Add(21 * time.Hour)
	env := newTestEnv(t, now)
	ctx := context.Background()

	env.seedWeek(t, "wk0", previous, week.StatusActive)
	seedCommitment(t, env, "wk0", "A", 3)
	seedCommitment(t, env, "wk0", "B", 5)
	seedCommitment(t, env, "wk0", "C", 2)
	logged := map[string]int{"A": 4, "B": 5, "C": 1, "D": 2}
	n := 0
	for userID, count := range logged {
		for i := 0; i < count; i++ {
			n++
			_, err := env.accounting.RecordWorkout(ctx, RecordWorkoutInput{
				WeekID:        "wk0",
				UserID:        userID,
				Source:        workout.SourceManual,
				SourceEventID: userID + "-" + time.Duration(n).String(),
				OccurredAt:    previous.Add(time.Duration(n) * time.Hour),
				Points:        10,
			})
			if err != nil {
				t.Fatalf("record workout: %v", err)
			}
		}
	}

	result, err := env.lifecycle.EndAndOpen(ctx, defaultCommunityConfig(), now)
	if err != nil {
		t.Fatalf("end and open: %v", err)
	}
	if result.Ended == nil || result.Ended.Status != week.StatusEnded {
		t.Fatalf("expected previous week to end: %+v", result.Ended)
	}
	if result.Opened == nil || !result.Opened.StartsAt.Equal(testWeekStart) {
		t.Fatalf("expected new week to open: %+v", result.Opened)
	}
	if result.Recap == nil {
		t.Fatalf("expected a recap")
	}

	got := result.Recap.Result
	if len(got.AboveAndBeyond) != 1 || got.AboveAndBeyond[0] != (recap.Overachiever{UserID: "A", Overage: 1}) {
		t.Fatalf("unexpected above and beyond: %+v", got.AboveAndBeyond)
	}
	if len(got.SteadyHands) != 1 || got.SteadyHands[0] != "B" {
		t.Fatalf("unexpected steady hands: %+v", got.SteadyHands)
	}
	if len(got.ExtraSparks) != 1 || got.ExtraSparks[0] != "D" {
		t.Fatalf("unexpected extra sparks: %+v", got.ExtraSparks)
	}
	if result.Recap.TotalWorkouts != 12 || result.Recap.CurrentPoints != 120 {
		t.Fatalf("unexpected recap totals: %+v", result.Recap)
	}
	if len(env.notifier.ended) != 1 || len(env.notifier.opened) != 1 {
		t.Fatalf("unexpected notifications: ended=%d opened=%d", len(env.notifier.ended), len(env.notifier.opened))
	}
}

func TestLifecycleService_NotificationFailureDoesNotRollBack(t *testing.T) {
	t.Parallel()

	now := testWeekStart.Add(22 * time.Hour)
	env := newTestEnv(t, now)
	env.seedWeek(t, "wk0", testWeekStart.AddDate(0, 0, -7), week.StatusActive)

	notifier := usecasemock.NewNotifier(t)
	notifier.On("OnWeekEnded", mock.Anything, mock.MatchedBy(func(w week.Week) bool { return w.ID == "wk0" }), mock.Anything).
		Return(errors.New("webhook down")).
		Once()
	notifier.On("OnWeekOpened", mock.Anything, mock.Anything).
		Return(errors.New("webhook down")).
		Once()

	svc := NewLifecycleService(env.store, env.store.Repositories(), &seqIDs{}, notifier, logging.NewNop())
	result, err := svc.EndAndOpen(context.Background(), defaultCommunityConfig(), now)
	if err != nil {
		t.Fatalf("end and open: %v", err)
	}
	if result.Ended == nil || result.Opened == nil {
		t.Fatalf("expected both transitions despite notification failures: %+v", result)
	}
	if env.week(t, "wk0").Status != week.StatusEnded {
		t.Fatalf("ended week was rolled back")
	}
}

func TestLifecycleService_RepeatedFiringsKeepSingleOpenAndActive(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testWeekStart)
	ctx := context.Background()
	cfg := defaultCommunityConfig()

	instants := []time.Time{
		testWeekStart.Add(21 * time.Hour),
		testWeekStart.Add(21 * time.Hour),
		testWeekStart.Add(33 * time.Hour),
		testWeekStart.Add(34 * time.Hour),
		testWeekStart.AddDate(0, 0, 7).Add(21 * time.Hour),
		testWeekStart.AddDate(0, 0, 7).Add(21 * time.Hour),
		testWeekStart.AddDate(0, 0, 8).Add(9 * time.Hour),
	}
	for _, at := range instants {
		for i := 0; i < 2; i++ {
			if _, err := env.lifecycle.CloseCommitments(ctx, cfg, at); err != nil {
				t.Fatalf("close commitments at %s: %v", at, err)
			}
			if _, err := env.lifecycle.EndAndOpen(ctx, cfg, at); err != nil {
				t.Fatalf("end and open at %s: %v", at, err)
			}
			if open, active := env.countStatus(week.StatusOpen), env.countStatus(week.StatusActive); open > 1 || active > 1 {
				t.Fatalf("invariant broken at %s: open=%d active=%d", at, open, active)
			}
		}
	}
}

func TestLifecycleService_DueTriggers(t *testing.T) {
	t.Parallel()

	cfg := defaultCommunityConfig()
	tests := []struct {
		name string
		seed func(t *testing.T, env *testEnv)
		now  time.Time
		want DueTriggers
	}{
		{
			name: "fresh install before evening",
			now:  testWeekStart.Add(20 * time.Hour),
			want: DueTriggers{},
		},
		{
			name: "fresh install after evening",
			now:  testWeekStart.Add(21 * time.Hour),
			want: DueTriggers{EndAndOpen: true},
		},
		{
			name: "open week before close time",
			seed: func(t *testing.T, env *testEnv) { env.seedWeek(t, "wk1", testWeekStart, week.StatusOpen) },
			now:  testWeekStart.Add(32 * time.Hour),
			want: DueTriggers{},
		},
		{
			name: "open week past close time",
			seed: func(t *testing.T, env *testEnv) { env.seedWeek(t, "wk1", testWeekStart, week.StatusOpen) },
			now:  testWeekStart.Add(33 * time.Hour),
			want: DueTriggers{CloseCommitments: true},
		},
		{
			name: "active week mid-week",
			seed: func(t *testing.T, env *testEnv) { env.seedWeek(t, "wk1", testWeekStart, week.StatusActive) },
			now:  testWeekStart.AddDate(0, 0, 3),
			want: DueTriggers{},
		},
		{
			name: "downtime spanned the weekend trigger",
			seed: func(t *testing.T, env *testEnv) { env.seedWeek(t, "wk1", testWeekStart, week.StatusActive) },
			now:  testWeekStart.AddDate(0, 0, 9),
			want: DueTriggers{EndAndOpen: true},
		},
		{
			name: "downtime spanned both triggers with an open week left behind",
			seed: func(t *testing.T, env *testEnv) { env.seedWeek(t, "wk1", testWeekStart, week.StatusOpen) },
			now:  testWeekStart.AddDate(0, 0, 9),
			want: DueTriggers{EndAndOpen: true, CloseCommitments: true},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, tc.now)
			if tc.seed != nil {
				tc.seed(t, env)
			}
			got, err := env.lifecycle.DueTriggers(context.Background(), cfg, tc.now)
			if err != nil {
				t.Fatalf("due triggers: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected due triggers: got=%+v want=%+v", got, tc.want)
			}
		})
	}
}
