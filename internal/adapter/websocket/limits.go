package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	rateLimiterCleanupInterval = 5 * time.Minute
	rateLimiterIdleTTL         = 10 * time.Minute
)

// LimitReason describes why a connection was rejected.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

// ConnectionLimits gates new live-channel connections by a global cap, a
// per-IP cap and a per-IP token bucket for connection attempts.
type ConnectionLimits struct {
	clock clockwork.Clock

	current   atomic.Int64
	globalMax int64

	ipMu   sync.Mutex
	perIP  map[string]int
	ipMax  int
	rateMu sync.Mutex
	rates  map[string]*rateEntry
	limit  rate.Limit
	burst  int
	sweep  time.Time
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewConnectionLimits(clock clockwork.Clock, globalMax int64, perIPMax int, connectionsPerSecond float64, burst int) *ConnectionLimits {
	return &ConnectionLimits{
		clock:     clock,
		globalMax: globalMax,
		perIP:     make(map[string]int),
		ipMax:     perIPMax,
		rates:     make(map[string]*rateEntry),
		limit:     rate.Limit(connectionsPerSecond),
		burst:     burst,
		sweep:     clock.Now().Add(rateLimiterCleanupInterval),
	}
}

// Acquire reserves a slot for ip. On success the caller must Release it.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	// Rate first: a rejected attempt must not hold a slot.
	if !l.allow(ip) {
		return false, LimitReasonRate
	}
	if !l.acquireGlobal() {
		return false, LimitReasonGlobal
	}
	if !l.acquireIP(ip) {
		l.current.Add(-1)
		return false, LimitReasonPerIP
	}
	return true, ""
}

func (l *ConnectionLimits) Release(ip string) {
	l.ipMu.Lock()
	if n := l.perIP[ip]; n > 1 {
		l.perIP[ip] = n - 1
	} else {
		delete(l.perIP, ip)
	}
	l.ipMu.Unlock()

	l.current.Add(-1)
}

// Current returns the number of held connection slots.
func (l *ConnectionLimits) Current() int64 {
	return l.current.Load()
}

// Count returns the number of slots held by ip.
func (l *ConnectionLimits) Count(ip string) int {
	l.ipMu.Lock()
	defer l.ipMu.Unlock()
	return l.perIP[ip]
}

func (l *ConnectionLimits) acquireGlobal() bool {
	for {
		current := l.current.Load()
		if current >= l.globalMax {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *ConnectionLimits) acquireIP(ip string) bool {
	l.ipMu.Lock()
	defer l.ipMu.Unlock()

	if l.perIP[ip] >= l.ipMax {
		return false
	}
	l.perIP[ip]++
	return true
}

func (l *ConnectionLimits) allow(ip string) bool {
	l.rateMu.Lock()
	defer l.rateMu.Unlock()

	now := l.clock.Now()
	if now.After(l.sweep) {
		cutoff := now.Add(-rateLimiterIdleTTL)
		for key, entry := range l.rates {
			if entry.lastSeen.Before(cutoff) {
				delete(l.rates, key)
			}
		}
		l.sweep = now.Add(rateLimiterCleanupInterval)
	}

	entry, ok := l.rates[ip]
	if !ok {
		entry = &rateEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.rates[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *ConnectionLimits) trackedIPs() int {
	l.rateMu.Lock()
	defer l.rateMu.Unlock()
	return len(l.rates)
}
