package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/forge/internal/domain/inbox"
	"github.com/riskibarqy/forge/internal/domain/storage"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/domain/workout"
	"github.com/stretchr/testify/require"
)

func testWeek(id string, startsAt time.Time, status week.Status) week.Week {
	return week.Week{
		ID:                 id,
		StartsAt:           startsAt,
		CommitmentsOpenAt:  startsAt.Add(12 * time.Hour),
		CommitmentsCloseAt: startsAt.Add(36 * time.Hour),
		EndsAt:             startsAt.Add(7 * 24 * time.Hour),
		Status:             status,
	}
}

func TestStore_RunInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	startsAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Repositories().Weeks.Create(ctx, testWeek("wk1", startsAt, week.StatusActive)))

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		if _, err := repos.Weeks.IncrementPoints(ctx, "wk1", 10, startsAt); err != nil {
			return err
		}
		inserted, err := repos.Workouts.Insert(ctx, workout.Workout{ID: "w1", WeekID: "wk1", UserID: "u1", Source: workout.SourceManual, SourceEventID: "e1"})
		require.True(t, inserted)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, found, err := store.Repositories().Weeks.GetByID(ctx, "wk1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 0, got.CurrentPoints)

	count, err := store.Repositories().Workouts.CountByWeek(ctx, "wk1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestWeekRepository_RejectsSecondOpenWeek(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	startsAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Weeks.Create(ctx, testWeek("wk1", startsAt, week.StatusOpen)))
	require.ErrorIs(t, repos.Weeks.Create(ctx, testWeek("wk2", startsAt.AddDate(0, 0, 7), week.StatusOpen)), week.ErrWeekExists)
	require.ErrorIs(t, repos.Weeks.Create(ctx, testWeek("wk3", startsAt, week.StatusEnded)), week.ErrWeekExists)
}

func TestWeekRepository_TransitionRequiresExpectedStatus(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	startsAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Weeks.Create(ctx, testWeek("wk1", startsAt, week.StatusOpen)))

	goal := 50
	got, applied, err := repos.Weeks.Transition(ctx, "wk1", week.StatusOpen, week.StatusActive, &goal, startsAt)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, 50, got.GoalPoints)

	_, applied, err = repos.Weeks.Transition(ctx, "wk1", week.StatusOpen, week.StatusActive, &goal, startsAt)
	require.NoError(t, err)
	require.False(t, applied)
}

func TestInboxRepository_ClaimAndRelease(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	receivedAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	stored, created, err := repos.Inbox.Ingest(ctx, inbox.Event{ID: "ev1", Source: inbox.SourceStrava, SourceEventID: "s1", ReceivedAt: receivedAt, PayloadJSON: "{}"})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, inbox.StatusPending, stored.Status)

	_, created, err = repos.Inbox.Ingest(ctx, inbox.Event{ID: "ev2", Source: inbox.SourceStrava, SourceEventID: "s1", ReceivedAt: receivedAt, PayloadJSON: "{}"})
	require.NoError(t, err)
	require.False(t, created)

	claimed, err := repos.Inbox.ClaimPending(ctx, 10, receivedAt)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, inbox.StatusProcessing, claimed[0].Status)

	again, err := repos.Inbox.ClaimPending(ctx, 10, receivedAt)
	require.NoError(t, err)
	require.Empty(t, again)

	released, err := repos.Inbox.ReleaseStale(ctx, receivedAt.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, released)

	pending, err := repos.Inbox.CountByStatus(ctx, inbox.StatusPending)
	require.NoError(t, err)
	require.Equal(t, 1, pending)
}

func TestWorkoutRepository_GroupedCountsKeepFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	for i, userID := range []string{"u2", "u1", "u2"} {
		inserted, err := repos.Workouts.Insert(ctx, workout.Workout{
			ID:            string(rune('a' + i)),
			WeekID:        "wk1",
			UserID:        userID,
			Source:        workout.SourceManual,
			SourceEventID: string(rune('a' + i)),
		})
		require.NoError(t, err)
		require.True(t, inserted)
	}

	counts, err := repos.Workouts.CountByWeekGroupedByUser(ctx, "wk1")
	require.NoError(t, err)
	require.Equal(t, []workout.UserCount{{UserID: "u2", Count: 2}, {UserID: "u1", Count: 1}}, counts)
}
