// Package realtime implements the websocket side of the relay: the room
// registry tracking which connections joined which rooms, and the broadcast
// engine that persists inbound messages and fans them out to room members.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatrelay/api/internal/config"
	"chatrelay/api/internal/ids"
	"chatrelay/api/internal/models"
	"chatrelay/api/internal/security"
)

// MessageStore is the narrow persistence contract the broadcast engine
// depends on. Insert must return the canonical message with its generated id,
// server-assigned timestamp, and resolved sender username.
type MessageStore interface {
	Insert(ctx context.Context, msg models.Message) (models.Message, error)
}

const persistTimeout = 5 * time.Second

// Hub owns all live connections and the room membership index. Membership
// mutations and broadcast snapshots are serialized through mu; everything that
// can block (persistence, socket writes) happens outside the lock.
type Hub struct {
	store MessageStore
	cfg   config.RealtimeConfig
	log   zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub(store MessageStore, cfg config.RealtimeConfig, log zerolog.Logger) *Hub {
	return &Hub{
		store:   store,
		cfg:     cfg,
		log:     log,
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// ServeConn takes ownership of an authenticated websocket connection: it
// registers a client carrying the verified claims and starts its pumps.
// It returns once the connection is closed and the client removed.
func (h *Hub) ServeConn(conn *websocket.Conn, claims security.SessionClaims) {
	client := newClient(h, conn, claims)

	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info().
		Str("username", claims.Username).
		Int("clients", total).
		Msg("client connected")

	go client.writePump()
	client.readPump()
}

// Join adds the client to a room, creating it lazily. Joining a room the
// client is already in is a no-op, as is joining after the client has been
// unregistered: a dropped client's readPump may still dispatch a queued
// join_room, and that must not re-enter the rooms index.
func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	if client.closed {
		h.mu.Unlock()
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	_, already := members[client]
	members[client] = struct{}{}
	h.mu.Unlock()

	if !already {
		h.log.Info().
			Str("username", client.claims.Username).
			Str("room", room).
			Msg("client joined room")
	}
}

// Leave removes the client from a single room.
func (h *Hub) Leave(client *Client, room string) {
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
}

// unregister removes the client from every room and from the hub, then closes
// its send channel. Safe to call while broadcasts are in flight: those operate
// on snapshots taken before or after this mutation, never during. Repeated
// calls sweep the rooms index again but close the channel only once.
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	_, known := h.clients[client]
	delete(h.clients, client)
	client.closed = true
	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !known {
		return
	}

	close(client.send)

	h.log.Info().
		Str("username", client.claims.Username).
		Int("clients", total).
		Msg("client disconnected")
}

// membersOf returns a snapshot of the room's current members. Joins and
// leaves after the snapshot do not affect a broadcast already using it.
func (h *Hub) membersOf(room string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		members = append(members, client)
	}
	return members
}

// handleInbound runs one inbound message through the persist-then-broadcast
// pipeline. Persistence failures are reported to the sender only; nothing is
// ever delivered for a message that did not reach the store.
func (h *Hub) handleInbound(sender *Client, evt inboundEvent) {
	msg := models.Message{
		ID:       ids.New(),
		SenderID: sender.claims.UserID,
		Content:  evt.Message,
		Room:     evt.Room,
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	persisted, err := h.store.Insert(ctx, msg)
	cancel()
	if err != nil {
		h.log.Error().
			Err(err).
			Str("username", sender.claims.Username).
			Str("room", evt.Room).
			Msg("message persist failed")
		sender.sendEvent(errorEvent{Type: EventError, Error: "persist_failed"})
		return
	}

	h.broadcast(persisted)
}

// broadcast fans the persisted message out to the room's membership snapshot.
// Delivery is fire-and-forget per recipient; a client whose send buffer is
// full is dropped rather than allowed to stall the others.
func (h *Hub) broadcast(msg models.Message) {
	payload, err := json.Marshal(messageEvent{
		Type:      EventMessage,
		ID:        msg.ID,
		Content:   msg.Content,
		Sender:    senderPayload{Username: msg.SenderName},
		Timestamp: msg.CreatedAt,
		Room:      msg.Room,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal broadcast payload")
		return
	}

	var stalled []*Client
	for _, member := range h.membersOf(msg.Room) {
		if !h.trySend(member, payload) {
			stalled = append(stalled, member)
		}
	}

	for _, client := range stalled {
		h.log.Warn().
			Str("username", client.claims.Username).
			Str("room", msg.Room).
			Msg("send buffer full, dropping client")
		h.unregister(client)
	}
}

// trySend queues payload on the client without blocking. It reports false for
// clients that are already closed or whose buffer is full.
func (h *Hub) trySend(client *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[client]; !ok || client.closed {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// Stats reports the current number of rooms and connections.
func (h *Hub) Stats() (rooms int, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms), len(h.clients)
}

// Shutdown closes every live connection. In-flight persistence completes on
// its own; only delivery stops.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			_ = client.conn.Close()
		}
	}

	h.log.Info().Int("clients", len(clients)).Msg("hub shut down")
}
