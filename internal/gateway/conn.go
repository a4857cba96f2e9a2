package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 16 << 20
)

// Conn is a single event stream connection.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	// Ping sends a transport level ping. Pongs are reported to the handler set with
	// SetPongHandler.
	Ping() error
	SetPongHandler(handler func())
	// Close sends a normal closure and releases the connection. It may be called more
	// than once and concurrently with the other methods.
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials the event stream with gorilla/websocket.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

func (d WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, response, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, response.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(maxMessageSize)

	return &websocketConn{conn: conn}, nil
}

type websocketConn struct {
	conn       *websocket.Conn
	writeMutex sync.Mutex
	closeOnce  sync.Once
	closeErr   error
}

func (c *websocketConn) ReadFrame() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *websocketConn) WriteFrame(data []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *websocketConn) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *websocketConn) SetPongHandler(handler func()) {
	c.conn.SetPongHandler(func(string) error {
		handler()
		return nil
	})
}

func (c *websocketConn) Close() error {
	c.closeOnce.Do(func() {
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
