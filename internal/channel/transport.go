package channel

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// Conn is the minimal transport surface the channel needs. Satisfied by a
// gorilla websocket connection in production and by fakes in tests.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// DialFunc establishes one transport connection.
type DialFunc func(ctx context.Context) (Conn, error)

// Dial returns a DialFunc that opens a websocket connection to url.
func Dial(url string) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", url, err)
		}
		return &wsConn{ws: ws}, nil
	}
}

// wsConn adapts *websocket.Conn to the Conn interface, discarding the
// message type gorilla reports since the protocol is all text frames.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v interface{}) error {
	return c.ws.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
