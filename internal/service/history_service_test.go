package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/api/internal/models"
	"chatrelay/api/internal/security"
)

type fakeMessageStore struct {
	messages  []models.Message
	insertErr error
}

func (f *fakeMessageStore) Insert(_ context.Context, msg models.Message) (models.Message, error) {
	if f.insertErr != nil {
		return models.Message{}, f.insertErr
	}
	msg.CreatedAt = time.Now()
	msg.SenderName = "sender-" + msg.SenderID
	f.messages = append(f.messages, msg)
	return msg, nil
}

func (f *fakeMessageStore) ListByRoom(_ context.Context, room string) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range f.messages {
		if msg.Room == room {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) ListAll(_ context.Context) ([]models.Message, error) {
	return append([]models.Message(nil), f.messages...), nil
}

func seededStore() *fakeMessageStore {
	return &fakeMessageStore{messages: []models.Message{
		{ID: "m1", Room: "general", Content: "hello", SenderName: "alice"},
		{ID: "m2", Room: "general", Content: "hi", SenderName: "bob"},
		{ID: "m3", Room: "private", Content: "secret", SenderName: "carol"},
	}}
}

func adminClaims() security.SessionClaims {
	return security.SessionClaims{UserID: "u1", Username: "root", Role: "admin"}
}

func userClaims() security.SessionClaims {
	return security.SessionClaims{UserID: "u2", Username: "alice", Role: "user"}
}

func TestHistoryService_AdminSeesAllRooms(t *testing.T) {
	svc := NewHistoryService(seededStore(), nil, zerolog.Nop())

	messages, err := svc.ListMessages(context.Background(), adminClaims(), "")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 3 {
		t.Errorf("admin got %d messages, want 3", len(messages))
	}
}

func TestHistoryService_UserScopedToRoom(t *testing.T) {
	svc := NewHistoryService(seededStore(), nil, zerolog.Nop())

	messages, err := svc.ListMessages(context.Background(), userClaims(), "general")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("user got %d messages, want 2", len(messages))
	}
	for _, msg := range messages {
		if msg.Room != "general" {
			t.Errorf("leaked message from room %q", msg.Room)
		}
	}
}

func TestHistoryService_UserWithoutRoomGetsEmpty(t *testing.T) {
	svc := NewHistoryService(seededStore(), nil, zerolog.Nop())

	messages, err := svc.ListMessages(context.Background(), userClaims(), "")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("user without room got %d messages, want 0", len(messages))
	}
}

func TestHistoryService_InsertWritesThrough(t *testing.T) {
	store := seededStore()
	svc := NewHistoryService(store, nil, zerolog.Nop())

	persisted, err := svc.Insert(context.Background(), models.Message{
		ID: "m4", SenderID: "u2", Content: "new", Room: "general",
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if persisted.CreatedAt.IsZero() {
		t.Error("Insert() should return the server-assigned timestamp")
	}

	messages, err := svc.ListMessages(context.Background(), userClaims(), "general")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 3 {
		t.Errorf("got %d messages after insert, want 3", len(messages))
	}
}

func TestHistoryService_InsertPropagatesStoreFailure(t *testing.T) {
	store := &fakeMessageStore{insertErr: errors.New("store down")}
	svc := NewHistoryService(store, nil, zerolog.Nop())

	if _, err := svc.Insert(context.Background(), models.Message{Room: "general"}); err == nil {
		t.Error("Insert() should surface the store failure")
	}
}
