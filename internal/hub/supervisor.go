package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/platform/retry"
)

// Run consumes the source until ctx is cancelled.
//
// Connected -> (stream ends) -> Reconnecting -> (new stream) -> Connected.
// The store is never cleared on disconnect. Run returns nil on cancellation,
// domain.ErrHubRunning if called while another Run is active, and an error if
// the source or publish path panicked; the hub cannot be restarted after that,
// so callers treat it as fatal. On return every subscriber is closed with
// ReasonShutdown.
func (h *Hub) Run(ctx context.Context) (runErr error) {
	if !h.running.CompareAndSwap(false, true) {
		return domain.ErrHubRunning
	}
	defer h.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered, stopping", "panic", r)
			runErr = fmt.Errorf("hub panicked: %v", r)
		}
		h.setState(StateStopped)
		h.closeAll()
	}()

	h.setState(StateConnecting)
	for {
		stream, err := h.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connect heart rate source: %w", err)
		}

		h.setState(StateConnected)
		slog.Info("Heart rate source connected")

		count := h.consume(ctx, stream)
		if ctx.Err() != nil {
			return nil
		}

		h.setState(StateReconnecting)
		h.reconnects.Add(1)
		if h.metrics != nil {
			h.metrics.Reconnects.Inc()
		}
		slog.Warn("Heart rate source disconnected, keeping last reading",
			"readings_in_session", count,
			"reconnect_delay", h.opts.ReconnectDelay,
		)

		if !h.sleep(ctx, h.opts.ReconnectDelay) {
			return nil
		}
	}
}

// connect requests a fresh stream, retrying with capped exponential backoff
// until it succeeds or ctx is cancelled.
func (h *Hub) connect(ctx context.Context) (<-chan domain.Reading, error) {
	policy := retry.Policy{
		InitialBackoff: h.opts.ReconnectDelay,
		MaxBackoff:     h.opts.MaxBackoff,
		Clock:          h.clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Heart rate source connect failed, retrying",
				"attempt", attempt,
				"backoff", backoff,
				"error", err,
			)
		},
	}

	classify := func(error) retry.Action {
		return classifySourceError(ctx)
	}
	stream, err := retry.Do(ctx, policy, classify, func() (<-chan domain.Reading, error) {
		return h.source.Connect(ctx)
	})
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return nil, fmt.Errorf("%w: source returned a nil stream", domain.ErrSourceUnavailable)
	}
	return stream, nil
}

// consume publishes readings until the stream closes or ctx is done.
func (h *Hub) consume(ctx context.Context, stream <-chan domain.Reading) int {
	count := 0
	for {
		select {
		case <-ctx.Done():
			return count
		case r, ok := <-stream:
			if !ok {
				return count
			}
			h.publish(r)
			count++
		}
	}
}

func (h *Hub) sleep(ctx context.Context, d time.Duration) bool {
	timer := h.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return true
	case <-ctx.Done():
		return false
	}
}

// classifySourceError treats every source failure as transient while the hub
// is running, whatever the error wraps: the device may come back at any time.
func classifySourceError(ctx context.Context) retry.Action {
	if ctx.Err() != nil {
		return retry.Stop
	}
	return retry.Retry
}
