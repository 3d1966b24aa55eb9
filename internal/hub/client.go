package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleychat/parley/internal/config"
	"github.com/parleychat/parley/internal/domain"
	pkglog "github.com/parleychat/parley/pkg/log"
)

// DisconnectHandler is called once when a client's transport closes,
// before the client is removed from the hub.
type DisconnectHandler func(*Client)

// Client is one live transport session tied to exactly one authenticated
// user. The user identity lives in the Session and is immutable.
type Client struct {
	ID      string
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Session *domain.Session

	config            config.WebSocketConfig
	disconnectHandler DisconnectHandler

	// Guards Send against writes racing the close in closeSend. Every
	// queue attempt goes through trySend; nothing else may close Send.
	sendMu sync.Mutex
	closed bool
}

// NewClient creates a client for an already-authenticated connection.
func NewClient(id string, hub *Hub, conn *websocket.Conn, session *domain.Session, cfg config.WebSocketConfig) *Client {
	return &Client{
		ID:      id,
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Session: session,
		config:  cfg,
	}
}

// SetDisconnectHandler sets the handler to be called on disconnect.
func (c *Client) SetDisconnectHandler(handler DisconnectHandler) {
	c.disconnectHandler = handler
}

// ReadPump reads inbound frames and dispatches them to handler, one at a
// time in arrival order. It owns teardown: the disconnect handler runs
// before the client leaves the hub.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		if c.disconnectHandler != nil {
			c.disconnectHandler(c)
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := pkglog.L()
				l.Error().Err(err).Str(pkglog.FieldConnectionID, c.ID).Msg("websocket error")
			}
			break
		}

		c.Session.UpdateActivity()
		c.dispatch(handler, message)
	}
}

// dispatch runs one inbound frame. A panic in the handler is contained to
// this connection: it is logged and the transport is closed, which lets
// the read loop run its normal teardown. Other connections are unaffected.
func (c *Client) dispatch(handler func(*Client, []byte), message []byte) {
	defer func() {
		if r := recover(); r != nil {
			l := pkglog.L()
			l.Error().Interface("panic", r).Str(pkglog.FieldConnectionID, c.ID).Msg("handler panic, closing connection")
			c.Conn.Close()
		}
	}()
	handler(c, message)
}

// WritePump writes outbound frames and keeps the connection alive with
// periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage marshals and queues a message to this client. A full send
// buffer drops the frame rather than blocking the caller; so does a
// connection that has already been torn down.
func (c *Client) SendMessage(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	c.trySend(data)
	return nil
}

// trySend queues data without blocking. It reports false only when the
// buffer is full on a live connection; frames for a closed connection are
// silently dropped.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once. Called by the hub when
// the client is unregistered.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
