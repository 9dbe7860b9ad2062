package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// Transport opens gateway connections. The production implementation dials a
// real websocket; tests substitute a scripted fake.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is a single gateway socket. Read blocks until a text frame arrives or
// the socket fails. Write must be safe for concurrent use.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

// CloseError is returned from Conn.Read when the peer (or a local Close)
// terminated the socket with a close frame.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("discord: connection closed (code %d): %s", e.Code, e.Reason)
}

// WebsocketTransport dials gateway connections over a real websocket.
type WebsocketTransport struct{}

var _ Transport = (*WebsocketTransport)(nil)

// NewWebsocketTransport creates the production Transport.
func NewWebsocketTransport() *WebsocketTransport {
	return &WebsocketTransport{}
}

// Dial implements Transport.
func (t *WebsocketTransport) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	// Gateway payloads can exceed the library default of 32 KiB.
	conn.SetReadLimit(1 << 22)
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		if status := websocket.CloseStatus(err); status != -1 {
			return nil, &CloseError{Code: int(status), Reason: err.Error()}
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(code int, reason string) error {
	return c.conn.Close(websocket.StatusCode(code), reason)
}
