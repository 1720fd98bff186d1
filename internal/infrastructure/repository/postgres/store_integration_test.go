//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/forge/internal/domain/commitment"
	"github.com/riskibarqy/forge/internal/domain/inbox"
	"github.com/riskibarqy/forge/internal/domain/user"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/domain/workout"
	"github.com/riskibarqy/forge/internal/infrastructure/repository/postgres"
	idgen "github.com/riskibarqy/forge/internal/platform/id"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"github.com/riskibarqy/forge/internal/usecase"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("forge"),
		postgrescontainer.WithUsername("forge"),
		postgrescontainer.WithPassword("forge"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	migrations := filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "db", "migrations")
	m, err := migrate.New("file://"+filepath.ToSlash(migrations), dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	srcErr, dbErr := m.Close()
	require.NoError(t, srcErr)
	require.NoError(t, dbErr)

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedMemberAndWeek(t *testing.T, store *postgres.Store, startsAt time.Time) (user.User, week.Week) {
	t.Helper()
	ctx := context.Background()
	repos := store.Repositories()

	member, err := repos.Users.Upsert(ctx, uuid.NewString(), user.Upsert{ExternalID: "discord-1", Timezone: "Europe/Dublin", At: startsAt})
	require.NoError(t, err)

	item := week.Week{
		ID:                 uuid.NewString(),
		StartsAt:           startsAt,
		CommitmentsOpenAt:  startsAt.Add(21 * time.Hour),
		CommitmentsCloseAt: startsAt.Add(33 * time.Hour),
		EndsAt:             startsAt.AddDate(0, 0, 7),
		Status:             week.StatusActive,
		CreatedAt:          startsAt,
		UpdatedAt:          startsAt,
	}
	require.NoError(t, repos.Weeks.Create(ctx, item))
	return member, item
}

func TestStore_RecordWorkoutIsExactlyOnceUnderConcurrency(t *testing.T) {
	db := startPostgres(t)
	store := postgres.NewStore(db)
	startsAt := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	member, current := seedMemberAndWeek(t, store, startsAt)

	accounting := usecase.NewAccountingService(store, store.Repositories(), idgen.NewUUIDGenerator(), nil, usecase.AccountingConfig{MaxAttempts: 5}, logging.NewNop())

	const events = 8
	const deliveries = 3
	var wg sync.WaitGroup
	errs := make(chan error, events*deliveries)
	for i := 0; i < events; i++ {
		for d := 0; d < deliveries; d++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := accounting.RecordWorkout(context.Background(), usecase.RecordWorkoutInput{
					WeekID:        current.ID,
					UserID:        member.ID,
					Source:        workout.SourceStrava,
					SourceEventID: fmt.Sprintf("activity-%d", i),
					OccurredAt:    startsAt.Add(time.Duration(i+40) * time.Hour),
					Points:        10,
				})
				errs <- err
			}(i)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	check, err := accounting.VerifyLedger(context.Background(), current.ID)
	require.NoError(t, err)
	require.True(t, check.Consistent)
	require.Equal(t, events*10, check.CurrentPoints)

	count, err := store.Repositories().Workouts.CountByWeekAndUser(context.Background(), current.ID, member.ID)
	require.NoError(t, err)
	require.Equal(t, events, count)
}

func TestStore_CommitmentUpsertKeepsID(t *testing.T) {
	db := startPostgres(t)
	store := postgres.NewStore(db)
	startsAt := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	member, current := seedMemberAndWeek(t, store, startsAt)
	repos := store.Repositories()
	ctx := context.Background()

	first, err := repos.Commitments.Upsert(ctx, "c-1", current.ID, member.ID, commitment.Update{CommittedWorkouts: 3, At: startsAt.Add(22 * time.Hour)})
	require.NoError(t, err)
	second, err := repos.Commitments.Upsert(ctx, "c-2", current.ID, member.ID, commitment.Update{CommittedWorkouts: 5, At: startsAt.Add(23 * time.Hour)})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 5, second.CommittedWorkouts)
}

func TestStore_InboxIngestIsIdempotent(t *testing.T) {
	db := startPostgres(t)
	repos := postgres.NewStore(db).Repositories()
	ctx := context.Background()
	at := time.Date(2026, time.March, 2, 7, 0, 0, 0, time.UTC)

	event := inbox.Event{
		ID:            uuid.NewString(),
		Source:        inbox.SourceStrava,
		SourceEventID: "activity-99",
		ReceivedAt:    at,
		PayloadJSON:   `{"object_id":"activity-99"}`,
	}
	stored, created, err := repos.Inbox.Ingest(ctx, event)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, inbox.StatusPending, stored.Status)

	event.ID = uuid.NewString()
	again, created, err := repos.Inbox.Ingest(ctx, event)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, stored.ID, again.ID)
}
