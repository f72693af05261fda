package realtime

import "time"

// Event types exchanged with clients over the websocket.
const (
	EventJoinRoom = "join_room"
	EventMessage  = "message"
	EventError    = "error"
)

// inboundEvent is the envelope for client-to-server events.
// join_room uses Room; message uses Message and Room.
type inboundEvent struct {
	Type    string `json:"type"`
	Room    string `json:"room"`
	Message string `json:"message"`
}

type senderPayload struct {
	Username string `json:"username"`
}

// messageEvent is the canonical broadcast payload. It is built from the
// persisted message, never from the raw inbound one.
type messageEvent struct {
	Type      string        `json:"type"`
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Sender    senderPayload `json:"sender"`
	Timestamp time.Time     `json:"timestamp"`
	Room      string        `json:"room"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
