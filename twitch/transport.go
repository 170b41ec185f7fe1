package twitch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultURL — WebSocket-шлюз Twitch IRC.
const DefaultURL = "wss://irc-ws.chat.twitch.tv:443"

// ErrClosed сообщает о штатном закрытии соединения удалённой стороной.
var ErrClosed = errors.New("twitch: connection closed by remote")

// Transport открывает полнодуплексное текстовое соединение.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// Conn — открытое соединение. ReadFrame вызывается из одной горутины,
// WriteLine и Close безопасны для конкурентного вызова.
type Conn interface {
	ReadFrame() (string, error)
	WriteLine(line string) error
	Close() error
}

// WebSocketTransport подключается к Twitch через gorilla/websocket.
type WebSocketTransport struct {
	URL    string
	Dialer *websocket.Dialer
}

// NewWebSocketTransport создаёт транспорт; пустой url заменяется на DefaultURL.
func NewWebSocketTransport(url string) *WebSocketTransport {
	if url == "" {
		url = DefaultURL
	}
	return &WebSocketTransport{
		URL: url,
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Dial выполняет WebSocket-рукопожатие.
func (t *WebSocketTransport) Dial(ctx context.Context) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, t.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("twitch dial: %s: %w", t.URL, err)
	}

	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

func (c *wsConn) ReadFrame() (string, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return "", fmt.Errorf("%w: %v", ErrClosed, err)
		}
		return "", err
	}
	return string(data), nil
}

func (c *wsConn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return net.ErrClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n"))
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
