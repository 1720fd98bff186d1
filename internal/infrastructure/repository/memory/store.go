package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/forge/internal/domain/commitment"
	"github.com/riskibarqy/forge/internal/domain/inbox"
	"github.com/riskibarqy/forge/internal/domain/ledger"
	"github.com/riskibarqy/forge/internal/domain/storage"
	"github.com/riskibarqy/forge/internal/domain/user"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/domain/workout"
)

// Store keeps every aggregate behind one mutex. A transaction holds the mutex
// for its whole duration and restores a snapshot when it fails, so concurrent
// transactions are serialized.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// Repositories returns repositories that lock the store per call.
func (s *Store) Repositories() storage.Repositories {
	return s.bind(false)
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos storage.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, s.bind(true)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) bind(inTx bool) storage.Repositories {
	b := binding{store: s, inTx: inTx}
	return storage.Repositories{
		Users:       &UserRepository{b},
		Weeks:       &WeekRepository{b},
		Commitments: &CommitmentRepository{b},
		Workouts:    &WorkoutRepository{b},
		Ledger:      &LedgerRepository{b},
		Inbox:       &InboxRepository{b},
	}
}

type binding struct {
	store *Store
	inTx  bool
}

// with runs fn against the live state. Inside a transaction the mutex is
// already held by RunInTx.
func (b binding) with(fn func(st *state) error) error {
	if !b.inTx {
		b.store.mu.Lock()
		defer b.store.mu.Unlock()
	}
	return fn(b.store.state)
}

type state struct {
	users           map[string]user.User
	usersByExternal map[string]string
	weeks           map[string]week.Week
	commitments     map[string]commitment.Commitment
	workouts        []workout.Workout
	workoutKeys     map[string]int
	ledger          []ledger.Entry
	inbox           map[string]inbox.Event
	inboxOrder      []string
	inboxKeys       map[string]string
}

func newState() *state {
	return &state{
		users:           make(map[string]user.User),
		usersByExternal: make(map[string]string),
		weeks:           make(map[string]week.Week),
		commitments:     make(map[string]commitment.Commitment),
		workoutKeys:     make(map[string]int),
		inbox:           make(map[string]inbox.Event),
		inboxKeys:       make(map[string]string),
	}
}

func (s *state) clone() *state {
	out := &state{
		users:           make(map[string]user.User, len(s.users)),
		usersByExternal: make(map[string]string, len(s.usersByExternal)),
		weeks:           make(map[string]week.Week, len(s.weeks)),
		commitments:     make(map[string]commitment.Commitment, len(s.commitments)),
		workouts:        append([]workout.Workout(nil), s.workouts...),
		workoutKeys:     make(map[string]int, len(s.workoutKeys)),
		ledger:          append([]ledger.Entry(nil), s.ledger...),
		inbox:           make(map[string]inbox.Event, len(s.inbox)),
		inboxOrder:      append([]string(nil), s.inboxOrder...),
		inboxKeys:       make(map[string]string, len(s.inboxKeys)),
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.usersByExternal {
		out.usersByExternal[k] = v
	}
	for k, v := range s.weeks {
		out.weeks[k] = v
	}
	for k, v := range s.commitments {
		out.commitments[k] = v
	}
	for k, v := range s.workoutKeys {
		out.workoutKeys[k] = v
	}
	for k, v := range s.inbox {
		out.inbox[k] = v
	}
	for k, v := range s.inboxKeys {
		out.inboxKeys[k] = v
	}
	return out
}

func pairKey(a, b string) string {
	return a + "::" + b
}

// ListWeeks returns every stored week ordered by StartsAt.
func (s *Store) ListWeeks() []week.Week {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]week.Week, 0, len(s.state.weeks))
	for _, item := range s.state.weeks {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}
