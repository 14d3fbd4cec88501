package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/adapter/metrics"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/hub"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline  = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongDeadline   = 60 * time.Second
	maxInboundSize = 512

	textPing = "ping"
	textPong = "pong"
)

// clientConn owns one upgraded connection. All data frames are written from
// the forward loop; the read loop only signals.
type clientConn struct {
	conn    *websocket.Conn
	clock   clockwork.Clock
	metrics *metrics.WebSocketMetrics

	pings     chan struct{}
	readDone  chan struct{}
	closeOnce sync.Once
}

func newClientConn(conn *websocket.Conn, clock clockwork.Clock, m *metrics.WebSocketMetrics) *clientConn {
	cc := &clientConn{
		conn:     conn,
		clock:    clock,
		metrics:  m,
		pings:    make(chan struct{}, 1),
		readDone: make(chan struct{}),
	}
	conn.SetReadLimit(maxInboundSize)
	cc.extendReadDeadline()
	conn.SetPongHandler(func(string) error {
		cc.extendReadDeadline()
		return nil
	})
	return cc
}

// readLoop discards inbound frames. A text "ping" is answered with "pong" by
// the forward loop.
func (cc *clientConn) readLoop() {
	defer close(cc.readDone)
	for {
		kind, data, err := cc.conn.ReadMessage()
		if err != nil {
			return
		}
		cc.extendReadDeadline()
		if kind == websocket.TextMessage && string(data) == textPing {
			select {
			case cc.pings <- struct{}{}:
			default:
			}
		}
	}
}

// forward writes readings until the client goes away or the subscriber is
// closed, and returns why it stopped.
func (cc *clientConn) forward(sub *hub.Subscriber) string {
	ticker := cc.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case r := <-sub.Readings():
			if err := cc.writeReading(r); err != nil {
				return "write failed"
			}

		case <-cc.pings:
			if err := cc.writeText([]byte(textPong)); err != nil {
				return "write failed"
			}

		case <-ticker.Chan():
			if err := cc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return "ping failed"
			}

		case <-cc.readDone:
			return "client closed"

		case <-sub.Done():
			reason := sub.Reason()
			cc.sendClose(closeCode(reason), string(reason))
			return string(reason)
		}
	}
}

func (cc *clientConn) writeReading(r domain.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	start := cc.clock.Now()
	if err := cc.writeText(payload); err != nil {
		return err
	}
	if cc.metrics != nil {
		cc.metrics.MessagesSent.Inc()
		cc.metrics.SendDuration.Observe(cc.clock.Since(start).Seconds())
	}
	return nil
}

func (cc *clientConn) writeText(payload []byte) error {
	// Socket deadlines are enforced against wall time, not the injected clock.
	_ = cc.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := cc.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (cc *clientConn) sendClose(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = cc.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeDeadline))
}

func (cc *clientConn) extendReadDeadline() {
	_ = cc.conn.SetReadDeadline(time.Now().Add(pongDeadline))
}

// close tears down the socket and waits for the read loop to exit.
func (cc *clientConn) close() {
	cc.closeOnce.Do(func() {
		_ = cc.conn.Close()
		<-cc.readDone
	})
}

func closeCode(reason hub.CloseReason) int {
	switch reason {
	case hub.ReasonPruned:
		return websocket.CloseTryAgainLater
	case hub.ReasonShutdown:
		return websocket.CloseGoingAway
	default:
		return websocket.CloseNormalClosure
	}
}
