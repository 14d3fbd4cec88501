package hub

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/adapter/metrics"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/state"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	defaultSubscriberBuffer = 1
	defaultReconnectDelay   = 5 * time.Second
	defaultMaxBackoff       = time.Minute
)

// State is the hub's connection state machine.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateStopped      State = "stopped"
)

// Options tunes the hub. Zero values fall back to defaults, except
// MaxConsecutiveDrops where 0 disables pruning.
type Options struct {
	SubscriberBuffer    int
	MaxConsecutiveDrops int
	ReconnectDelay      time.Duration
	MaxBackoff          time.Duration
}

func (o Options) withDefaults() Options {
	if o.SubscriberBuffer <= 0 {
		o.SubscriberBuffer = defaultSubscriberBuffer
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = defaultReconnectDelay
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	if o.MaxBackoff < o.ReconnectDelay {
		o.MaxBackoff = o.ReconnectDelay
	}
	return o
}

// Hub owns the source stream, the latest-value store and the subscriber registry.
type Hub struct {
	source  domain.Source
	store   *state.Store
	clock   clockwork.Clock
	opts    Options
	metrics *metrics.HubMetrics

	mu          sync.Mutex
	subscribers map[uuid.UUID]*Subscriber
	stopped     bool

	running    atomic.Bool
	state      atomic.Value // State
	reconnects atomic.Int64
}

// NewHub creates a hub. m may be nil.
func NewHub(source domain.Source, store *state.Store, clock clockwork.Clock, opts Options, m *metrics.HubMetrics) *Hub {
	h := &Hub{
		source:      source,
		store:       store,
		clock:       clock,
		opts:        opts.withDefaults(),
		metrics:     m,
		subscribers: make(map[uuid.UUID]*Subscriber),
	}
	h.state.Store(StateIdle)
	return h
}

// Subscribe registers a new subscriber with an empty delivery channel.
// After the hub has stopped the returned subscriber is already closed.
func (h *Hub) Subscribe() *Subscriber {
	sub, _, _ := h.SubscribeWithCurrent()
	return sub
}

// SubscribeWithCurrent registers a subscriber and returns the stored reading
// as of registration, false if there is none yet. The subscriber receives
// every reading published after that one and none before it.
func (h *Hub) SubscribeWithCurrent() (*Subscriber, domain.Reading, bool) {
	sub := newSubscriber(h.opts.SubscriberBuffer)

	h.mu.Lock()
	current, ok := h.store.Get()
	if h.stopped {
		h.mu.Unlock()
		sub.close(ReasonShutdown)
		return sub, current, ok
	}
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.observeSubscribers(count)
	slog.Debug("Subscriber registered", "subscriber_id", sub.id.String(), "total_subscribers", count)
	return sub, current, ok
}

// Unsubscribe removes sub from the registry and closes it.
// Calling it twice, or with a subscriber this hub never saw, is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.remove(sub, ReasonUnsubscribed)
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// State returns the current connection state.
func (h *Hub) State() State {
	return h.state.Load().(State)
}

// Reconnects returns how many times the source stream ended and was re-requested.
func (h *Hub) Reconnects() int64 {
	return h.reconnects.Load()
}

func (h *Hub) remove(sub *Subscriber, reason CloseReason) {
	h.mu.Lock()
	current, ok := h.subscribers[sub.id]
	removed := ok && current == sub
	if removed {
		delete(h.subscribers, sub.id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if removed {
		sub.close(reason)
		h.observeSubscribers(count)
		slog.Debug("Subscriber removed", "subscriber_id", sub.id.String(), "reason", string(reason), "remaining_subscribers", count)
	}
}

// snapshotLocked copies the registry. Callers hold h.mu.
func (h *Hub) snapshotLocked() []*Subscriber {
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		subs = append(subs, s)
	}
	return subs
}

// publish stores r and offers it to every registered subscriber.
// Only the Run goroutine calls publish.
func (h *Hub) publish(r domain.Reading) {
	start := h.clock.Now()

	// Storing and snapshotting under one lock orders each publish against
	// SubscribeWithCurrent.
	h.mu.Lock()
	h.store.Set(r)
	subs := h.snapshotLocked()
	h.mu.Unlock()

	var dead, pruned []*Subscriber
	for _, sub := range subs {
		switch sub.offer(r) {
		case offerDelivered:
		case offerDropped:
			if h.metrics != nil {
				h.metrics.DeliveriesDropped.Inc()
			}
			if h.opts.MaxConsecutiveDrops > 0 && sub.consecutiveDrops >= h.opts.MaxConsecutiveDrops {
				pruned = append(pruned, sub)
			}
		case offerDead:
			dead = append(dead, sub)
		}
	}

	for _, sub := range dead {
		h.remove(sub, ReasonUnsubscribed)
	}
	for _, sub := range pruned {
		slog.Warn("Pruning slow subscriber", "subscriber_id", sub.id.String(), "consecutive_drops", sub.consecutiveDrops)
		if h.metrics != nil {
			h.metrics.SubscribersPruned.Inc()
		}
		h.remove(sub, ReasonPruned)
	}

	if h.metrics != nil {
		h.metrics.ReadingsPublished.Inc()
		h.metrics.CurrentBPM.Set(float64(r.Value))
		h.metrics.PublishDuration.Observe(h.clock.Since(start).Seconds())
	}
}

// closeAll removes every subscriber and refuses new ones.
func (h *Hub) closeAll() {
	h.mu.Lock()
	h.stopped = true
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for id, s := range h.subscribers {
		subs = append(subs, s)
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.close(ReasonShutdown)
	}
	h.observeSubscribers(0)
	slog.Info("Hub closed all subscribers", "disconnected_subscribers", len(subs))
}

func (h *Hub) setState(s State) {
	h.state.Store(s)
	if h.metrics == nil {
		return
	}
	if s == StateConnected {
		h.metrics.SourceConnected.Set(1)
	} else {
		h.metrics.SourceConnected.Set(0)
	}
}

func (h *Hub) observeSubscribers(count int) {
	if h.metrics != nil {
		h.metrics.Subscribers.Set(float64(count))
	}
}
