package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatrelay/api/internal/models"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Insert persists the message and returns it with the server-assigned
// timestamp and the sender's username resolved.
func (r *MessageRepository) Insert(ctx context.Context, msg models.Message) (models.Message, error) {
	const query = `
		INSERT INTO messages (id, sender_id, content, room, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at, (SELECT username FROM users WHERE id = $2)
	`

	row := r.pool.QueryRow(ctx, query,
		msg.ID,
		msg.SenderID,
		msg.Content,
		msg.Room,
	)
	if err := row.Scan(&msg.CreatedAt, &msg.SenderName); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListByRoom returns the room's messages in insertion order, each with the
// sender's username joined in.
func (r *MessageRepository) ListByRoom(ctx context.Context, room string) ([]models.Message, error) {
	const query = `
		SELECT m.id, m.sender_id, u.username, m.content, m.room, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.room = $1
		ORDER BY m.created_at ASC, m.id ASC
	`
	return r.list(ctx, query, room)
}

// ListAll returns every message across all rooms in insertion order.
func (r *MessageRepository) ListAll(ctx context.Context) ([]models.Message, error) {
	const query = `
		SELECT m.id, m.sender_id, u.username, m.content, m.room, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		ORDER BY m.created_at ASC, m.id ASC
	`
	return r.list(ctx, query)
}

// CountByRoom reports message volume per room, used by the jobs scheduler.
func (r *MessageRepository) CountByRoom(ctx context.Context) (map[string]int64, error) {
	const query = `SELECT room, COUNT(*) FROM messages GROUP BY room`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var room string
		var count int64
		if err := rows.Scan(&room, &count); err != nil {
			return nil, err
		}
		counts[room] = count
	}
	return counts, rows.Err()
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.SenderName,
			&msg.Content,
			&msg.Room,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
