// Package client provides the two controller counterparts of the signaling
// protocol: the desktop side, which owns a session and applies remote
// commands, and the phone side, which joins by scanned id and sends them.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	infraWebsocket "github.com/remotedeck/remotedeck/pkg/infra/websocket"
)

const dialTimeout = 10 * time.Second

// SessionIDFromURL extracts the session id from a scanned join link. An
// unparseable link or a missing parameter yields "", which Join rejects.
func SessionIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("session")
}

// wsClient holds the shared dial/write plumbing of both controllers.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) dial(ctx context.Context, wsURL string) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("server at capacity: %w", err)
		}
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *wsClient) writeEnvelope(env *infraWebsocket.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(env)
}

func (c *wsClient) readEnvelope(env *infraWebsocket.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	return conn.ReadJSON(env)
}

func (c *wsClient) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := c.conn.Close()
	c.conn = nil
	return err
}
