package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errDown = errors.New("connection refused")

func fail(context.Context) error { return errDown }
func pass(context.Context) error { return nil }

func newTestBreaker(cfg CircuitBreakerConfig, now *time.Time, opts ...Option) *CircuitBreaker {
	cfg.Enabled = true
	opts = append(opts, withClock(func() time.Time { return *now }))
	return NewCircuitBreaker("test", cfg, opts...)
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: 5 * time.Second, HalfOpenMaxReq: 1}, &now)
	ctx := t.Context()

	_ = b.Execute(ctx, fail, nil)
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}
	_ = b.Execute(ctx, fail, nil)
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}

	err := b.Execute(ctx, pass, nil)
	var openErr *OpenError
	if !errors.As(err, &openErr) || !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open error, got %v", err)
	}
	if openErr.RetryAfter != 5*time.Second || openErr.Name != "test" {
		t.Fatalf("unexpected open error details: %+v", openErr)
	}

	now = now.Add(6 * time.Second)
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("expected half-open once the timeout passed, got %s", state)
	}
	if err := b.Execute(ctx, pass, nil); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful probe, got %s", state)
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second, HalfOpenMaxReq: 1}, &now)

	_ = b.Execute(t.Context(), fail, nil)
	now = now.Add(2 * time.Second)
	_ = b.Execute(t.Context(), fail, nil)

	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after failed probe, got %s", state)
	}
}

func TestCircuitBreaker_ExecuteIgnoresNonFailures(t *testing.T) {
	t.Parallel()

	now := time.Now()
	b := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute}, &now)
	errRejected := errors.New("rejected by broker")

	err := b.Execute(t.Context(), func(context.Context) error { return errRejected }, func(error) bool { return false })
	if !errors.Is(err, errRejected) {
		t.Fatalf("expected passthrough error, got %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("non-failure should keep breaker closed, got %s", state)
	}

	_ = b.Execute(t.Context(), fail, nil)
	called := false
	err = b.Execute(t.Context(), func(context.Context) error { called = true; return nil }, nil)
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("expected short circuit without calling fn, err=%v called=%t", err, called)
	}
}

func TestCircuitBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	t.Parallel()

	now := time.Now()
	b := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute}, &now)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := b.Execute(ctx, func(ctx context.Context) error { return ctx.Err() }, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after cancelled call, got %s", state)
	}
}

func TestCircuitBreaker_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker("off", CircuitBreakerConfig{Enabled: false, FailureThreshold: 1})
	for range 3 {
		_ = b.Execute(t.Context(), fail, nil)
	}
	if err := b.Execute(t.Context(), pass, nil); err != nil {
		t.Fatalf("disabled breaker should never reject, got %v", err)
	}
}

func TestCircuitBreaker_ReportsTransitions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	var seen []string
	b := newTestBreaker(
		CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second, HalfOpenMaxReq: 1},
		&now,
		OnStateChange(func(_ string, from, to CircuitState) {
			seen = append(seen, string(from)+">"+string(to))
		}),
	)

	_ = b.Execute(t.Context(), fail, nil)
	now = now.Add(time.Second)
	_ = b.Execute(t.Context(), pass, nil)

	want := []string{"closed>open", "open>half_open", "half_open>closed"}
	if len(seen) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestDefaultCircuitBreakerConfig_FillsZeroValues(t *testing.T) {
	t.Parallel()

	got := CircuitBreakerConfig{Enabled: true}.normalized()
	want := DefaultCircuitBreakerConfig()
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
