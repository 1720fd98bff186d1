package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker guards an outbound dependency (chat webhook, job queue).
// A disabled breaker admits every call and records nothing.
type CircuitBreaker struct {
	mu   sync.Mutex
	name string
	cfg  CircuitBreakerConfig

	state     CircuitState
	failures  int
	openedAt  time.Time
	probes    int
	successes int
	now       func() time.Time
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg.normalized(),
		state: CircuitStateClosed,
		now:   time.Now,
	}
}

func (b *CircuitBreaker) Name() string {
	return b.name
}

// Execute runs fn when the breaker admits it. Only errors for which
// countsAsFailure reports true trip the breaker; a nil countsAsFailure
// counts every error.
func (b *CircuitBreaker) Execute(fn func() error, countsAsFailure func(error) bool) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil && (countsAsFailure == nil || countsAsFailure(err)) {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return err
}

func (b *CircuitBreaker) Allow() error {
	if !b.cfg.Enabled {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		b.transition(CircuitStateHalfOpen)
		b.probes++
	case CircuitStateHalfOpen:
		if b.probes >= b.cfg.HalfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	if !b.cfg.Enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		b.successes++
		if b.successes >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
			b.transition(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	if !b.cfg.Enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		b.transition(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

// State reports half-open once the open timeout has elapsed, even before the
// next Allow performs the transition.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	b.probes = 0
	b.successes = 0
	switch to {
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}
