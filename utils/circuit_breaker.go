package utils

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the breaker refuses calls.
var ErrBreakerOpen = errors.New("circuit breaker is open")

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// CircuitBreaker guards the outbound gateway HTTP calls so a flapping
// provider does not hold every purchase request on a 10s timeout.
type CircuitBreaker struct {
	name         string
	maxRequests  uint32
	interval     time.Duration
	timeout      time.Duration
	failureRatio float64

	mu         sync.Mutex
	state      BreakerState
	generation uint64
	requests   uint32
	failures   uint32
	expiry     time.Time
}

func NewCircuitBreaker(name string) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxRequests:  5,
		interval:     60 * time.Second,
		timeout:      30 * time.Second,
		failureRatio: 0.6,
		state:        BreakerClosed,
	}
}

// Do runs fn unless the breaker is open, recording the outcome.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	generation, err := cb.before()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.after(generation, err == nil)
	return err
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh(time.Now())
	return cb.state
}

func (cb *CircuitBreaker) before() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cb.refresh(now)

	switch {
	case cb.state == BreakerOpen:
		return cb.generation, ErrBreakerOpen
	case cb.state == BreakerHalfOpen && cb.requests >= cb.maxRequests:
		return cb.generation, ErrBreakerOpen
	}

	cb.requests++
	return cb.generation, nil
}

func (cb *CircuitBreaker) after(generation uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.refresh(time.Now())
	if generation != cb.generation {
		return
	}

	if success {
		if cb.state == BreakerHalfOpen {
			cb.toState(BreakerClosed)
		}
		return
	}

	cb.failures++
	if cb.state == BreakerHalfOpen {
		cb.toState(BreakerOpen)
		return
	}
	if cb.requests >= cb.maxRequests &&
		float64(cb.failures)/float64(cb.requests) >= cb.failureRatio {
		cb.toState(BreakerOpen)
	}
}

// refresh advances open->half-open after the timeout and rolls the
// counting window while closed. Callers hold cb.mu.
func (cb *CircuitBreaker) refresh(now time.Time) {
	switch cb.state {
	case BreakerClosed:
		if !cb.expiry.IsZero() && cb.expiry.Before(now) {
			cb.newGeneration(now)
		}
	case BreakerOpen:
		if cb.expiry.Before(now) {
			cb.state = BreakerHalfOpen
			cb.newGeneration(now)
		}
	}
}

func (cb *CircuitBreaker) toState(state BreakerState) {
	cb.state = state
	cb.newGeneration(time.Now())
}

func (cb *CircuitBreaker) newGeneration(now time.Time) {
	cb.generation++
	cb.requests = 0
	cb.failures = 0

	switch cb.state {
	case BreakerClosed:
		cb.expiry = now.Add(cb.interval)
	case BreakerOpen:
		cb.expiry = now.Add(cb.timeout)
	default:
		cb.expiry = time.Time{}
	}
}
