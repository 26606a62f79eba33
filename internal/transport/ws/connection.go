// Package ws is the websocket transport: it upgrades client connections,
// runs the admission gate (options, token, access, single-session rule),
// and pumps client frames into the session layer.
package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	platformerrors "captionkit-server-go/internal/platform/errors"
)

// Connection wraps a gorilla websocket connection with serialized writes.
// It is the session layer's view of the client socket.
type Connection struct {
	id         string
	socket     *websocket.Conn
	mu         sync.Mutex
	closed     atomic.Bool
	lastActive atomic.Int64
}

// NewConnection creates a tracked websocket connection.
func NewConnection(id string, socket *websocket.Conn) *Connection {
	conn := &Connection{
		id:     id,
		socket: socket,
	}
	conn.touch()
	return conn
}

// SendText writes one text frame to the client.
func (c *Connection) SendText(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return platformerrors.New(platformerrors.KindTransport, "ws.send",
			"connection "+c.id+" already closed")
	}
	if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
		return err
	}
	c.touch()
	return nil
}

// Close sends a close frame with the given code and reason, then tears the
// socket down. Idempotent.
func (c *Connection) Close(code int, reason string) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	deadline := time.Now().Add(time.Second)
	_ = c.socket.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	c.mu.Unlock()

	return c.socket.Close()
}

// ReadMessage receives one frame from the client.
func (c *Connection) ReadMessage() (int, []byte, error) {
	messageType, payload, err := c.socket.ReadMessage()
	if err == nil {
		c.touch()
	}
	return messageType, payload, err
}

// ID returns the connection identifier (the session id it serves).
func (c *Connection) ID() string {
	return c.id
}

// IsClosed reports whether the connection has already been closed.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// LastActive exposes when the client last interacted with the server.
func (c *Connection) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Connection) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}
