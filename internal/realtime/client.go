package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"chatrelay/api/internal/security"
)

// Client is one live authenticated connection. The claims attached at the
// handshake are immutable for the lifetime of the session. closed is guarded
// by the hub's mutex.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	claims security.SessionClaims
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, claims security.SessionClaims) *Client {
	if conn != nil {
		conn.SetReadLimit(hub.cfg.MaxMessageSize)
	}
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.cfg.SendBuffer),
		claims: claims,
	}
}

// sendEvent queues a single event for this client only, dropping it if the
// buffer is full.
func (c *Client) sendEvent(evt any) {
	payload, err := json.Marshal(evt)
	if err != nil {
		c.hub.log.Error().Err(err).Msg("marshal client event")
		return
	}
	c.hub.trySend(c, payload)
}

// readPump consumes inbound events sequentially, so a single sender's
// messages persist and broadcast in the order they were sent. It exits on any
// read error and triggers removal from all rooms.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().
					Err(err).
					Str("username", c.claims.Username).
					Msg("websocket read error")
			}
			return
		}

		var evt inboundEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			c.sendEvent(errorEvent{Type: EventError, Error: "invalid_event"})
			continue
		}

		switch evt.Type {
		case EventJoinRoom:
			if evt.Room != "" {
				c.hub.Join(c, evt.Room)
			}
		case EventMessage:
			if evt.Room == "" || evt.Message == "" {
				c.sendEvent(errorEvent{Type: EventError, Error: "invalid_event"})
				continue
			}
			c.hub.handleInbound(c, evt)
		default:
			c.sendEvent(errorEvent{Type: EventError, Error: "unknown_event"})
		}
	}
}

// writePump drains the send buffer onto the socket and keeps the connection
// alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
