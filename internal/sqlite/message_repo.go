package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cwrk-planet/meet-service/internal/domain"
)

type MessageRepository struct {
	db *sql.DB
}

func (r *MessageRepository) Insert(ctx context.Context, roomID, userID int64, text string) (domain.ChatMessage, error) {
	m := domain.ChatMessage{RoomID: roomID, UserID: userID, Text: text}
	now := toMillis(time.Now())

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO messages (room_id, user_id, message, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		roomID, userID, text, now).Scan(&m.ID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	err = r.db.QueryRowContext(ctx, `SELECT username, avatar_url FROM users WHERE id = ?`, userID).
		Scan(&m.Username, &m.AvatarURL)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	m.CreatedAt = fromMillis(now)

	return m, nil
}

func (r *MessageRepository) ListByRoom(ctx context.Context, roomID int64, limit int) ([]domain.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, room_id, user_id, username, avatar_url, message, created_at
		FROM (
			SELECT m.id, m.room_id, m.user_id, u.username, u.avatar_url, m.message, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.user_id
			WHERE m.room_id = ?
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?
		)
		ORDER BY created_at, id`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		var (
			m  domain.ChatMessage
			at int64
		)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.AvatarURL, &m.Text, &at); err != nil {
			return nil, err
		}
		m.CreatedAt = fromMillis(at)
		out = append(out, m)
	}

	return out, rows.Err()
}
