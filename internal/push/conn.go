package push

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a single push channel. Outbound frames go through a growable
// queue drained by the write pump, so senders never block on the socket.
type Conn struct {
	cfg    Config
	logger *slog.Logger

	ws  *websocket.Conn
	out *outQueue

	// Write serialization
	writeMu sync.Mutex

	// State
	mu     sync.Mutex
	closed bool
	userID string // set once on successful auth
}

func newConn(cfg Config, ws *websocket.Conn, logger *slog.Logger) *Conn {
	return &Conn{
		cfg:    cfg,
		logger: logger,
		ws:     ws,
		out:    newOutQueue(cfg.SendBuffer, cfg.SendBufferCeiling),
	}
}

// Send queues a frame for delivery. Reports false when the connection is
// closed or its queue is full at the ceiling; callers treat false as a
// signal to detach the connection.
func (c *Conn) Send(frame []byte) bool {
	return c.out.push(frame)
}

// Close tears the connection down. Safe to call multiple times and from
// any goroutine.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.out.close()
	return c.ws.Close()
}

// UserID returns the owning user id, empty until authenticated.
func (c *Conn) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Conn) setUserID(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

// writeFrame writes a single text frame with the configured deadline.
func (c *Conn) writeFrame(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// writePump drains the outbound queue onto the socket. A write failure
// closes the connection; the read pump's exit path then detaches it.
func (c *Conn) writePump() {
	for {
		frame, ok := c.out.pop()
		if !ok {
			return
		}
		if err := c.writeFrame(frame); err != nil {
			c.logger.Debug("write failed, closing connection", "error", err)
			c.Close()
			return
		}
	}
}

// pingLoop sends keepalive pings until the connection closes.
func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		c.writeMu.Lock()
		c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		err := c.ws.WriteMessage(websocket.PingMessage, nil)
		c.writeMu.Unlock()
		if err != nil {
			c.Close()
			return
		}
	}
}
