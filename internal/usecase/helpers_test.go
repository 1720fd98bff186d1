package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/forge/internal/platform/logging"
)

// 2026-03-01 is a Sunday; Europe/Dublin is on UTC+0 until 2026-03-29.
var testWeekStart = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

type seqIDs struct {
	next atomic.Int64
}

func (g *seqIDs) NewID() (string, error) {
	return fmt.Sprintf("id-%d", g.next.Add(1)), nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	opened  []week.Week
	closed  []week.Week
	ended   []week.Week
	recaps  []recap.Summary
	changed []week.Week
	failing error
}

func (n *recordingNotifier) OnWeekOpened(_ context.Context, w week.Week) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.opened = append(n.opened, w)
	return n.failing
}

func (n *recordingNotifier) OnWeekClosed(_ context.Context, w week.Week) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, w)
	return n.failing
}

func (n *recordingNotifier) OnWeekEnded(_ context.Context, w week.Week, summary recap.Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ended = append(n.ended, w)
	n.recaps = append(n.recaps, summary)
	return n.failing
}

func (n *recordingNotifier) OnPointsChanged(_ context.Context, w week.Week) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, w)
	return n.failing
}

type testEnv struct {
	store        *memory.Store
	dispatches   *memory.JobDispatchRepository
	notifier     *recordingNotifier
	configs      *CommunityConfigService
	accounting   *AccountingService
	lifecycle    *LifecycleService
	orchestrator *LifecycleOrchestrator
	members      *MemberService
	inbox        *InboxService
	clock        *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}

func defaultCommunityConfig() community.Config {
	return community.Config{
		CommunityID:        "forge",
		Timezone:           "Europe/Dublin",
		WeekStartDay:       time.Sunday,
		CommitmentsOpenAt:  community.ClockTime{Hour: 21},
		CommitmentsCloseAt: community.ClockTime{Hour: 9},
		PointsPerWorkout:   10,
	}
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	logger := logging.NewNop()
	clock := &testClock{now: now}
	ids := &seqIDs{}
	store := memory.NewStore()
	repos := store.Repositories()
	notifier := &recordingNotifier{}
	dispatches := memory.NewJobDispatchRepository()

	configs := NewCommunityConfigService(memory.NewCommunityConfigRepository(), defaultCommunityConfig(), logger)
	configs.now = clock.Now
	accounting := NewAccountingService(store, repos, ids, notifier, AccountingConfig{MaxAttempts: 3}, logger)
	accounting.now = clock.Now
	lifecycle := NewLifecycleService(store, repos, ids, notifier, logger)
	orchestrator := NewLifecycleOrchestrator(lifecycle, configs, dispatches, LifecycleOrchestratorConfig{PollInterval: time.Minute}, logger)
	orchestrator.now = clock.Now
	members := NewMemberService(store, repos, accounting, configs, ids, logger)
	members.now = clock.Now
	inboxSvc := NewInboxService(repos, accounting, configs, nil, nil, ids, InboxConfig{Workers: 2, BatchSize: 10, LeaseTimeout: time.Minute}, logger)
	inboxSvc.now = clock.Now
	t.Cleanup(inboxSvc.Close)

	return &testEnv{
		store:        store,
		dispatches:   dispatches,
		notifier:     notifier,
		configs:      configs,
		accounting:   accounting,
		lifecycle:    lifecycle,
		orchestrator: orchestrator,
		members:      members,
		inbox:        inboxSvc,
		clock:        clock,
	}
}

// seedWeek stores a week starting at startsAt with the default cadence.
func (e *testEnv) seedWeek(t *testing.T, id string, startsAt time.Time, status week.Status) week.Week {
	t.Helper()

	item := week.Week{
		ID:                 id,
		StartsAt:           startsAt,
		CommitmentsOpenAt:  startsAt.Add(21 * time.Hour),
		CommitmentsCloseAt: startsAt.Add(33 * time.Hour),
		EndsAt:             startsAt.AddDate(0, 0, 7),
		Status:             status,
	}
	if err := e.store.Repositories().Weeks.Create(context.Background(), item); err != nil {
		t.Fatalf("seed week %s: %v", id, err)
	}
	return item
}

func (e *testEnv) week(t *testing.T, id string) week.Week {
	t.Helper()

	item, found, err := e.store.Repositories().Weeks.GetByID(context.Background(), id)
	if err != nil || !found {
		t.Fatalf("get week %s: found=%v err=%v", id, found, err)
	}
	return item
}

func (e *testEnv) countStatus(status week.Status) int {
	count := 0
	for _, item := range e.store.ListWeeks() {
		if item.Status == status {
			count++
		}
	}
	return count
}
