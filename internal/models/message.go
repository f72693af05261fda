package models

import "time"

// Message is a persisted chat message. SenderName is resolved from the users
// table on read; it is never stored on the message row itself.
type Message struct {
	ID         string
	SenderID   string
	SenderName string
	Content    string
	Room       string
	CreatedAt  time.Time
}
