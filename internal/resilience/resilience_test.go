package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"counto/internal/resilience"

	"github.com/sony/gobreaker"
)

func TestRetryWithBackoff_RetriesUntilSuccess(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_ZeroBackoff(t *testing.T) {
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), resilience.Config{MaxRetries: 1}, func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil || calls != 2 {
		t.Fatalf("expected 2 failing calls, got %d (%v)", calls, err)
	}
}

func TestRetryWithBackoff_PermanentStops(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Millisecond}
	sentinel := errors.New("bad request")

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return &resilience.Permanent{Err: sentinel}
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}, func() error {
		return errors.New("error")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test")

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (any, error) { return nil, errors.New("down") })
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", cb.State())
	}
	_, err := cb.Execute(func() (any, error) { return "ok", nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
}

func TestNewLimiter_Unlimited(t *testing.T) {
	l := resilience.NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("unlimited limiter refused request %d", i)
		}
	}
}

func TestNewLimiter_Burst(t *testing.T) {
	l := resilience.NewLimiter(0.001, 2)
	if !l.Allow() || !l.Allow() {
		t.Fatal("expected burst of 2")
	}
	if l.Allow() {
		t.Fatal("expected third request to be limited")
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(1)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := bh.Acquire(ctx); err == nil {
		t.Fatal("expected timeout on second acquire")
	}

	bh.Release()
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}
