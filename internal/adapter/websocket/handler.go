// Package websocket serves the live heart-rate channel. Each connection
// registers a hub subscriber and forwards every delivered reading as one JSON
// text frame until the client leaves or the hub closes the subscriber.
package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/adapter/metrics"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/hub"
	apperrors "github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/platform/errors"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

type subscriptions interface {
	SubscribeWithCurrent() (*hub.Subscriber, domain.Reading, bool)
	Unsubscribe(sub *hub.Subscriber)
}

type Options struct {
	// PushCurrent sends the stored reading right after the upgrade.
	PushCurrent    bool
	AllowedOrigins []string
	// Limits may be nil to accept every connection.
	Limits *ConnectionLimits
}

type Handler struct {
	hub      subscriptions
	clock    clockwork.Clock
	opts     Options
	upgrader websocket.Upgrader
	metrics  *metrics.WebSocketMetrics

	conns sync.WaitGroup
}

// NewHandler creates the live channel handler. m may be nil.
func NewHandler(h subscriptions, clock clockwork.Clock, opts Options, m *metrics.WebSocketMetrics) *Handler {
	return &Handler{
		hub:   h,
		clock: clock,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     NewCheckOrigin(opts.AllowedOrigins),
		},
		metrics: m,
	}
}

// Handle upgrades the request and blocks until the connection ends.
func (h *Handler) Handle(c echo.Context) error {
	ip := c.RealIP()
	if h.opts.Limits != nil {
		ok, reason := h.opts.Limits.Acquire(ip)
		if !ok {
			h.reject(string(reason))
			if reason == LimitReasonRate {
				return apperrors.RateLimitedError("too many connection attempts").WithContext("reason", string(reason))
			}
			return apperrors.UnavailableError("live channel at capacity", nil).WithContext("reason", string(reason))
		}
		defer h.opts.Limits.Release(ip)
	}

	// Counted while the server still owns the request, so Wait cannot start
	// from zero after the HTTP server has drained.
	h.conns.Add(1)
	defer h.conns.Done()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error response.
		h.reject("upgrade_failed")
		slog.DebugContext(c.Request().Context(), "WebSocket upgrade failed", "remote_addr", ip, "error", err)
		return nil
	}

	h.serve(c.Request().Context(), conn, ip)
	return nil
}

// Wait blocks until every open connection has finished or ctx is done.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, ip string) {
	sub, current, hasCurrent := h.hub.SubscribeWithCurrent()
	defer h.hub.Unsubscribe(sub)

	if h.metrics != nil {
		h.metrics.ActiveConnections.Inc()
		defer h.metrics.ActiveConnections.Dec()
	}

	logger := slog.With("subscriber_id", sub.ID(), "remote_addr", ip)
	logger.InfoContext(ctx, "Live channel client connected")

	cc := newClientConn(conn, h.clock, h.metrics)
	go cc.readLoop()
	defer cc.close()

	// current is exactly the reading before the subscriber's first delivery.
	if h.opts.PushCurrent && hasCurrent {
		if err := cc.writeReading(current); err != nil {
			logger.DebugContext(ctx, "Failed to push current reading", "error", err)
			return
		}
	}

	reason := cc.forward(sub)
	logger.InfoContext(ctx, "Live channel client disconnected", "reason", reason, "dropped", sub.Dropped())
}

func (h *Handler) reject(reason string) {
	if h.metrics != nil {
		h.metrics.RejectedConnections.WithLabelValues(reason).Inc()
	}
}
