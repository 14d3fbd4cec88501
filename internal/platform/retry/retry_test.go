package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/platform/retry"
	"github.com/jonboulle/clockwork"
)

var fastPolicy = retry.Policy{
	InitialBackoff: 1 * time.Millisecond,
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	_, err := retry.Do(context.Background(), fastPolicy, alwaysRetry, func() (struct{}, error) {
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy, alwaysRetry, func() (struct{}, error) {
		calls++
		if calls < 3 {
			return struct{}{}, errors.New("transient")
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ReturnsValue(t *testing.T) {
	calls := 0
	val, err := retry.Do(context.Background(), fastPolicy, alwaysRetry, func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if val != 42 {
		t.Fatalf("expected 42, got %d", val)
	}
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy, alwaysStop, func() (struct{}, error) {
		calls++
		return struct{}{}, permanent
	})
	var permErr *retry.PermanentError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected PermanentError, got %T: %v", err, err)
	}
	if !errors.Is(err, permanent) {
		t.Fatalf("expected wrapped permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancellationDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := retry.Policy{
		InitialBackoff: 10 * time.Second, // long enough that context cancels first
	}

	calls := 0
	_, err := retry.Do(ctx, p, alwaysRetry, func() (struct{}, error) {
		calls++
		cancel() // cancel context after the first attempt
		return struct{}{}, errors.New("transient")
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancel, got %d", calls)
	}
}

func TestDo_UnlimitedAttempts(t *testing.T) {
	p := retry.Policy{InitialBackoff: time.Microsecond}

	calls := 0
	val, err := retry.Do(context.Background(), p, alwaysRetry, func() (int, error) {
		calls++
		if calls < 25 {
			return 0, errors.New("source not ready")
		}
		return calls, nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if val != 25 {
		t.Fatalf("expected 25, got %d", val)
	}
}

func TestDo_UsesInjectedClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := retry.Policy{
		InitialBackoff: time.Hour,
		Clock:          clock,
	}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := retry.Do(context.Background(), p, alwaysRetry, func() (struct{}, error) {
			calls++
			if calls == 1 {
				return struct{}{}, errors.New("first attempt fails")
			}
			return struct{}{}, nil
		})
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("retry never waited on the clock: %v", err)
	}
	clock.Advance(time.Hour)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not resume after the fake clock advanced")
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	var recorded []int
	p := fastPolicy
	p.OnRetry = func(attempt int, _ error, _ time.Duration) {
		recorded = append(recorded, attempt)
	}

	calls := 0
	_, _ = retry.Do(context.Background(), p, alwaysRetry, func() (struct{}, error) {
		calls++
		if calls < 3 {
			return struct{}{}, errors.New("fail")
		}
		return struct{}{}, nil
	})

	// Called before each wait, never after the successful attempt.
	expected := []int{1, 2}
	if len(recorded) != len(expected) {
		t.Fatalf("expected %d OnRetry calls, got %d", len(expected), len(recorded))
	}
	for i, v := range expected {
		if recorded[i] != v {
			t.Fatalf("OnRetry call %d: expected attempt %d, got %d", i, v, recorded[i])
		}
	}
}

func TestDo_BackoffCappedAtMax(t *testing.T) {
	var observed []time.Duration
	p := retry.Policy{
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		OnRetry: func(_ int, _ error, backoff time.Duration) {
			observed = append(observed, backoff)
		},
	}

	calls := 0
	_, _ = retry.Do(context.Background(), p, alwaysRetry, func() (struct{}, error) {
		calls++
		if calls < 6 {
			return struct{}{}, errors.New("fail")
		}
		return struct{}{}, nil
	})

	expected := []time.Duration{1 * time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond}
	if len(observed) != len(expected) {
		t.Fatalf("expected %d backoffs, got %d (%v)", len(expected), len(observed), observed)
	}
	for i, v := range expected {
		if observed[i] != v {
			t.Fatalf("backoff %d: expected %v, got %v", i, v, observed[i])
		}
	}
}

func TestDo_InitialBackoffAboveCapIsCapped(t *testing.T) {
	var observed time.Duration
	p := retry.Policy{
		InitialBackoff: time.Second,
		MaxBackoff:     time.Millisecond,
		OnRetry:        func(_ int, _ error, backoff time.Duration) { observed = backoff },
	}

	calls := 0
	_, err := retry.Do(context.Background(), p, alwaysRetry, func() (struct{}, error) {
		calls++
		if calls == 1 {
			return struct{}{}, errors.New("fail")
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if observed != time.Millisecond {
		t.Fatalf("expected capped backoff of 1ms, got %v", observed)
	}
}

func alwaysRetry(error) retry.Action { return retry.Retry }
func alwaysStop(error) retry.Action  { return retry.Stop }
