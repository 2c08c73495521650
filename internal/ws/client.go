package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"team-chat-service/internal/observability"
)

var ErrBackpressure = errors.New("backpressure")

const sendBuffer = 32

// Client is one live gateway connection. Outbound frames go through a
// buffered channel drained by writePump; a full buffer drops the frame
// rather than blocking the broadcaster.
type Client struct {
	id       string
	userID   int
	username string
	conn     *websocket.Conn
	send     chan []byte

	mu     sync.RWMutex
	closed bool
}

func newClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// ID returns the opaque connection id.
func (c *Client) ID() string { return c.id }

// UserID returns the identified user, zero until user:join.
func (c *Client) UserID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Username returns the identified username.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *Client) identify(userID int, username string) {
	c.mu.Lock()
	c.userID = userID
	c.username = username
	c.mu.Unlock()
}

// TrySend queues a frame without blocking. Frames to slow consumers are
// dropped and counted; broadcasts are fire-and-forget.
func (c *Client) TrySend(frame []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- frame:
	default:
		observability.IncWSDroppedFrame()
		return ErrBackpressure
	}
	return nil
}

// Close marks the client closed and releases the underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.conn.Close()
}

func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}
