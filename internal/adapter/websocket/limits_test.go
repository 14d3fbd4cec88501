package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestConnectionLimits_Global(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewFakeClock(), 2, 10, 100, 100)

	ok, _ := l.Acquire("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Acquire("10.0.0.2")
	assert.True(t, ok)

	ok, reason := l.Acquire("10.0.0.3")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonGlobal, reason)

	l.Release("10.0.0.1")
	ok, _ = l.Acquire("10.0.0.3")
	assert.True(t, ok)
	assert.Equal(t, int64(2), l.Current())
}

func TestConnectionLimits_PerIPRollsBackGlobal(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewFakeClock(), 10, 1, 100, 100)

	ok, _ := l.Acquire("10.0.0.1")
	assert.True(t, ok)

	ok, reason := l.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonPerIP, reason)
	assert.Equal(t, int64(1), l.Current(), "rejected per-IP attempt must not hold a global slot")

	l.Release("10.0.0.1")
	assert.Equal(t, 0, l.Count("10.0.0.1"))
	assert.Equal(t, int64(0), l.Current())
}

func TestConnectionLimits_RateRefillsWithClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionLimits(clock, 100, 100, 1, 2)

	for range 2 {
		ok, _ := l.Acquire("10.0.0.1")
		assert.True(t, ok)
	}
	ok, reason := l.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonRate, reason)

	ok, _ = l.Acquire("10.0.0.2")
	assert.True(t, ok, "rate limits are tracked per IP")

	clock.Advance(time.Second)
	ok, _ = l.Acquire("10.0.0.1")
	assert.True(t, ok)
}

func TestConnectionLimits_SweepsIdleRateLimiters(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionLimits(clock, 100, 100, 10, 10)

	_, _ = l.Acquire("10.0.0.1")
	_, _ = l.Acquire("10.0.0.2")
	assert.Equal(t, 2, l.trackedIPs())

	clock.Advance(rateLimiterIdleTTL + time.Second)
	_, _ = l.Acquire("10.0.0.3")
	assert.Equal(t, 1, l.trackedIPs())
}

func TestConnectionLimits_Concurrent(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewRealClock(), 50, 1000, 1e6, 1e6)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Acquire("10.0.0.1"); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, granted)
	assert.Equal(t, int64(50), l.Current())
}
