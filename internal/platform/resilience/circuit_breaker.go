package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError is returned while the breaker refuses calls. It matches
// ErrCircuitOpen under errors.Is.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s, retry after %s", ErrCircuitOpen, e.RetryAfter)
	}
	return fmt.Sprintf("%s: %s, retry after %s", e.Name, ErrCircuitOpen, e.RetryAfter)
}

func (e *OpenError) Unwrap() error { return ErrCircuitOpen }

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
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
	d := DefaultCircuitBreakerConfig()
	if c.FailureThreshold < 1 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = d.HalfOpenMaxReq
	}
	return c
}

type Option func(*CircuitBreaker)

// OnStateChange registers fn to run after every transition, outside the lock.
func OnStateChange(fn func(name string, from, to CircuitState)) Option {
	return func(b *CircuitBreaker) { b.onChange = fn }
}

func withClock(now func() time.Time) Option {
	return func(b *CircuitBreaker) { b.now = now }
}

// CircuitBreaker guards calls to one outbound dependency (identity service,
// standings publisher). A disabled breaker passes every call through.
type CircuitBreaker struct {
	name     string
	cfg      CircuitBreakerConfig
	now      func() time.Time
	onChange func(name string, from, to CircuitState)

	mu        sync.Mutex
	state     CircuitState
	failures  int
	openUntil time.Time
	probes    int
	passed    int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, opts ...Option) *CircuitBreaker {
	b := &CircuitBreaker{
		name:  name,
		cfg:   cfg.normalized(),
		now:   time.Now,
		state: CircuitStateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *CircuitBreaker) Name() string { return b.name }

// Execute runs fn when the breaker admits it and records the outcome.
// isFailure picks which errors count against the dependency; nil counts all
// of them. A cancelled caller context never counts as a failure.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error, isFailure func(error) bool) error {
	if !b.cfg.Enabled {
		return fn(ctx)
	}
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	switch {
	case err == nil:
		b.record(true)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		b.release()
	case isFailure == nil || isFailure(err):
		b.record(false)
	default:
		b.record(true)
	}
	return err
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitStateOpen && !b.now().Before(b.openUntil) {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) admit() error {
	b.mu.Lock()
	from := b.state
	now := b.now()
	if b.state == CircuitStateOpen {
		if now.Before(b.openUntil) {
			wait := b.openUntil.Sub(now)
			b.mu.Unlock()
			return &OpenError{Name: b.name, RetryAfter: wait}
		}
		b.setLocked(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen {
		if b.probes >= b.cfg.HalfOpenMaxReq {
			b.mu.Unlock()
			b.notify(from, CircuitStateHalfOpen)
			return &OpenError{Name: b.name}
		}
		b.probes++
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
	return nil
}

func (b *CircuitBreaker) record(ok bool) {
	b.mu.Lock()
	from := b.state
	switch b.state {
	case CircuitStateClosed:
		if ok {
			b.failures = 0
		} else if b.failures++; b.failures >= b.cfg.FailureThreshold {
			b.tripLocked()
		}
	case CircuitStateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		if !ok {
			b.tripLocked()
			break
		}
		if b.passed++; b.passed >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
			b.setLocked(CircuitStateClosed)
		}
	case CircuitStateOpen:
		if !ok {
			b.openUntil = b.now().Add(b.cfg.OpenTimeout)
		}
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
}

// release frees a half-open probe slot without judging the dependency.
func (b *CircuitBreaker) release() {
	b.mu.Lock()
	if b.state == CircuitStateHalfOpen && b.probes > 0 {
		b.probes--
	}
	b.mu.Unlock()
}

func (b *CircuitBreaker) tripLocked() {
	b.setLocked(CircuitStateOpen)
	b.openUntil = b.now().Add(b.cfg.OpenTimeout)
}

func (b *CircuitBreaker) setLocked(s CircuitState) {
	b.state = s
	b.failures = 0
	b.probes = 0
	b.passed = 0
	if s == CircuitStateClosed {
		b.openUntil = time.Time{}
	}
}

func (b *CircuitBreaker) notify(from, to CircuitState) {
	if from != to && b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
