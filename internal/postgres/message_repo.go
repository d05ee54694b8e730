package postgres

import (
	"context"

	"github.com/cwrk-planet/meet-service/internal/domain"
)

type MessageRepository struct {
	q querier
}

func NewMessageRepository(q querier) *MessageRepository {
	return &MessageRepository{q: q}
}

func (r *MessageRepository) Insert(ctx context.Context, roomID, userID int64, text string) (domain.ChatMessage, error) {
	m := domain.ChatMessage{RoomID: roomID, UserID: userID, Text: text}
	query := `
		WITH ins AS (
			INSERT INTO messages (room_id, user_id, message)
			VALUES ($1, $2, $3)
			RETURNING id, user_id, created_at
		)
		SELECT ins.id, ins.created_at, u.username, u.avatar_url
		FROM ins JOIN users u ON u.id = ins.user_id`
	err := r.q.QueryRow(ctx, query, roomID, userID, text).Scan(&m.ID, &m.CreatedAt, &m.Username, &m.AvatarURL)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	return m, nil
}

func (r *MessageRepository) ListByRoom(ctx context.Context, roomID int64, limit int) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, room_id, user_id, username, avatar_url, message, created_at
		FROM (
			SELECT m.id, m.room_id, m.user_id, u.username, u.avatar_url, m.message, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.user_id
			WHERE m.room_id = $1
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id`

	rows, err := r.q.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.AvatarURL, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	return out, rows.Err()
}
