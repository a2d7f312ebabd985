package realtime

import (
	"context"
	"errors"
	"fmt"

	"nhooyr.io/websocket"
)

// Close codes used on the wire. 4000+ is the application range; the heartbeat
// code is distinguishable from a normal closure so the close path reconnects.
const (
	CloseNormal           = 1000
	CloseGoingAway        = 1001
	CloseHeartbeatTimeout = 4000
)

// Conn is the transport handle owned exclusively by the Manager. Exactly one
// live Conn exists per manager at any time.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

// DialFunc opens a transport. Production uses Dial; tests inject fakes.
type DialFunc func(ctx context.Context, endpoint string) (Conn, error)

// CloseError reports the close code a Read ended with.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed (code %d): %s", e.Code, e.Reason)
}

// CloseCode extracts the close code from a read error, or -1 when the error
// carries none (network failure, cancelled context).
func CloseCode(err error) int {
	var closeErr *CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code
	}
	return -1
}

// Dial opens a websocket connection to the realtime endpoint.
func Dial(ctx context.Context, endpoint string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		if status := websocket.CloseStatus(err); status != -1 {
			var reason string
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) {
				reason = closeErr.Reason
			}
			return nil, &CloseError{Code: int(status), Reason: reason}
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(code int, reason string) error {
	return c.conn.Close(websocket.StatusCode(code), reason)
}
