package hub

import (
	"sync"
	"sync/atomic"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/google/uuid"
)

// CloseReason tells the forwarding side why a subscriber's Done channel closed.
type CloseReason string

const (
	ReasonUnsubscribed CloseReason = "unsubscribed"
	ReasonPruned       CloseReason = "too slow"
	ReasonShutdown     CloseReason = "server shutting down"
)

type offerResult int

const (
	offerDelivered offerResult = iota
	offerDropped
	offerDead
)

// Subscriber is one live consumer registered with the Hub.
//
// The delivery channel is never closed by the hub; Done is closed exactly once
// when the subscriber is removed, and Reason reports why.
type Subscriber struct {
	id       uuid.UUID
	readings chan domain.Reading
	done     chan struct{}

	alive     atomic.Bool
	closeOnce sync.Once
	reason    atomic.Value // CloseReason

	// consecutiveDrops is only touched by the hub's publish loop.
	consecutiveDrops int
	dropped          atomic.Uint64
}

func newSubscriber(buffer int) *Subscriber {
	s := &Subscriber{
		id:       uuid.New(),
		readings: make(chan domain.Reading, buffer),
		done:     make(chan struct{}),
	}
	s.alive.Store(true)
	return s
}

func (s *Subscriber) ID() uuid.UUID { return s.id }

// Readings delivers published readings in publish order.
func (s *Subscriber) Readings() <-chan domain.Reading { return s.readings }

// Done is closed once the subscriber has been removed from the hub.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Alive reports whether the subscriber still accepts deliveries.
func (s *Subscriber) Alive() bool { return s.alive.Load() }

// Dropped returns how many readings were dropped for this subscriber.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// Reason returns why Done was closed, or "" while the subscriber is alive.
func (s *Subscriber) Reason() CloseReason {
	r, _ := s.reason.Load().(CloseReason)
	return r
}

// offer attempts a non-blocking enqueue.
func (s *Subscriber) offer(r domain.Reading) offerResult {
	if !s.alive.Load() {
		return offerDead
	}
	select {
	case s.readings <- r:
		s.consecutiveDrops = 0
		return offerDelivered
	default:
		s.consecutiveDrops++
		s.dropped.Add(1)
		return offerDropped
	}
}

func (s *Subscriber) close(reason CloseReason) {
	s.closeOnce.Do(func() {
		s.reason.Store(reason)
		s.alive.Store(false)
		close(s.done)
	})
}
