package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"codeberg.org/kcchat/server/internal/chat/ratelimit"
	"codeberg.org/kcchat/server/internal/logger"
)

// Connection tuning constants, kept at the values the teacher's
// websocket.Client uses.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// onFrame is invoked from ReadPump for every raw frame a connection
// receives. It must enqueue the actual handling onto the single chat
// event loop rather than act on it inline — ReadPump's only job is
// decoding bytes off the wire.
type onFrame func(c *Conn, raw []byte)

// onClose is invoked once, from ReadPump's deferred cleanup, after the
// socket is no longer readable.
type onClose func(c *Conn)

// Conn wraps one gorilla/websocket connection. It implements
// registry.Socket so the event-loop-owned registry can address it
// directly. Grounded on the teacher's websocket.Client ReadPump/
// WritePump pair; adapted so inbound frames are handed off to the
// single-goroutine event loop instead of processed inline.
type Conn struct {
	id int64

	ws *websocket.Conn

	send chan []byte

	limiter *ratelimit.Window

	remoteHost string

	mu     sync.RWMutex
	closed bool

	frame onFrame
	close onClose
}

// NewConn wraps ws, ready to have its pumps started.
func NewConn(id int64, ws *websocket.Conn, remoteHost string, frame onFrame, close onClose) *Conn {
	return &Conn{
		id:         id,
		ws:         ws,
		send:       make(chan []byte, 64),
		limiter:    ratelimit.NewWindow(),
		remoteHost: remoteHost,
		frame:      frame,
		close:      close,
	}
}

// ID is this connection's locally unique identifier (not the
// authenticated user id — a user may hold several Conns).
func (c *Conn) ID() int64 { return c.id }

// RemoteHost is the peer address used for host-level bans.
func (c *Conn) RemoteHost() string { return c.remoteHost }

// Allow reports whether another inbound frame is within this
// connection's 10-per-second rate-limit window (spec.md §4.1 step 2).
func (c *Conn) Allow(nowMillis int64) bool {
	return c.limiter.Allow(nowMillis)
}

// Send implements registry.Socket. It must never block or panic on a
// closed connection.
func (c *Conn) Send(frame []byte) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	select {
	case c.send <- frame:
	default:
		// outbound buffer full: a slow reader is worse than a dropped
		// connection.
		c.Close()
	}
}

// Close marks the connection closed and releases the send channel.
// Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Conn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ReadPump decodes frames off the wire and hands each one to c.frame.
// It never interprets frame contents itself — that's the event loop's
// job — so a slow or malicious peer can never stall the registry.
func (c *Conn) ReadPump() {
	defer func() {
		if c.close != nil {
			c.close(c)
		}
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("websocket read error", "conn_id", c.id, "error", err)
			}
			return
		}
		if c.frame != nil {
			c.frame(c, raw)
		}
	}
}

// WritePump drains c.send onto the wire and keeps the connection alive
// with periodic pings.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
