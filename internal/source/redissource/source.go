// Package redissource receives raw Heart Rate Measurement notifications from a
// Redis Pub/Sub channel. A BLE bridge process next to the strap publishes each
// GATT notification payload unchanged; this package decodes them into readings.
//
// go-redis resubscribes transparently after network errors, so a subscription
// never reports a dropped strap on its own. A stream that stays silent for
// longer than the idle timeout is therefore treated as a disconnected link and
// closed, which hands control back to the hub's reconnect loop.
package redissource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/adapter/metrics"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/source/hrm"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

const sourceName = "redis"

const (
	DefaultChannel     = "heart-rate:notifications"
	DefaultIdleTimeout = 15 * time.Second
)

type Options struct {
	Channel string
	// IdleTimeout closes the stream when no frame arrives for this long. Zero disables it.
	IdleTimeout time.Duration
}

type Source struct {
	client  *goredis.Client
	clock   clockwork.Clock
	opts    Options
	metrics *metrics.SourceMetrics
}

var _ domain.Source = (*Source)(nil)

// New creates a Source on an existing client. m may be nil.
func New(client *goredis.Client, clock clockwork.Clock, opts Options, m *metrics.SourceMetrics) *Source {
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	return &Source{client: client, clock: clock, opts: opts, metrics: m}
}

// Connect opens a fresh subscription and waits for Redis to confirm it.
func (s *Source) Connect(ctx context.Context) (<-chan domain.Reading, error) {
	sub := s.client.Subscribe(ctx, s.opts.Channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w: %w", s.opts.Channel, domain.ErrSourceUnavailable, err)
	}

	slog.Info("Subscribed to heart rate notifications", "channel", s.opts.Channel)

	out := make(chan domain.Reading)
	go s.pump(ctx, sub, out)
	return out, nil
}

// Ping reports whether the broker is reachable.
func (s *Source) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Source) pump(ctx context.Context, sub *goredis.PubSub, out chan<- domain.Reading) {
	defer close(out)
	defer func() { _ = sub.Close() }()

	var idle <-chan time.Time
	var timer clockwork.Timer
	if s.opts.IdleTimeout > 0 {
		timer = s.clock.NewTimer(s.opts.IdleTimeout)
		defer timer.Stop()
		idle = timer.Chan()
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-idle:
			slog.Warn("Heart rate link silent, treating as disconnected",
				"channel", s.opts.Channel, "idle_timeout", s.opts.IdleTimeout)
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if timer != nil {
				timer.Reset(s.opts.IdleTimeout)
			}

			r, err := hrm.Reading([]byte(msg.Payload), s.clock.Now().Unix())
			if err != nil {
				slog.Warn("Dropping malformed heart rate frame", "channel", msg.Channel, "error", err)
				if s.metrics != nil {
					s.metrics.MalformedFrames.WithLabelValues(sourceName).Inc()
				}
				continue
			}
			if s.metrics != nil {
				s.metrics.FramesReceived.WithLabelValues(sourceName).Inc()
			}

			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}
}
