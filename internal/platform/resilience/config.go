package resilience

import "time"

// StateListener observes breaker transitions. It runs with the breaker lock held
// and must not call back into the breaker.
type StateListener func(name string, from, to CircuitState)

type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
	OnStateChange    StateListener
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      15 * time.Second,
		HalfOpenMaxReq:   2,
	}
}

func (c CircuitBreakerConfig) normalized() CircuitBreakerConfig {
	defaults := DefaultCircuitBreakerConfig()
	if c.FailureThreshold < 1 {
		c.FailureThreshold = defaults.FailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaults.OpenTimeout
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = defaults.HalfOpenMaxReq
	}
	return c
}
