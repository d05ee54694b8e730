package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/protocol"
)

type RoomRepository struct {
	db *sql.DB
}

func (r *RoomRepository) Get(ctx context.Context, id int64) (domain.Room, error) {
	var (
		rm domain.Room
		at int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, name, owner_id, created_at FROM rooms WHERE id = ?`, id).
		Scan(&rm.ID, &rm.Name, &rm.OwnerID, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, err
	}
	rm.CreatedAt = fromMillis(at)

	return rm, nil
}

func (r *RoomRepository) Create(ctx context.Context, name string, ownerID int64) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO rooms (name, owner_id, created_at) VALUES (?, ?, ?) RETURNING id`,
		name, ownerID, toMillis(time.Now())).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrRoomExists
		}
		return 0, err
	}

	return id, nil
}

func (r *RoomRepository) IDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM rooms WHERE name = ?`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrRoomNotFound
		}
		return 0, err
	}

	return id, nil
}

func (r *RoomRepository) List(ctx context.Context) ([]domain.RoomSummary, error) {
	query := `
		SELECT r.id, r.name, COALESCE(u.username, ''),
		       (SELECT count(*) FROM room_participants p WHERE p.room_id = r.id),
		       (SELECT max(m.created_at) FROM messages m WHERE m.room_id = r.id) AS last_activity
		FROM rooms r
		LEFT JOIN users u ON u.id = r.owner_id
		ORDER BY last_activity DESC NULLS LAST, r.id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomSummary
	for rows.Next() {
		var (
			s    domain.RoomSummary
			last sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerName, &s.Participants, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			t := fromMillis(last.Int64)
			s.LastActivity = &t
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

func (r *RoomRepository) AddParticipant(ctx context.Context, roomID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO room_participants (room_id, user_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT (room_id, user_id) DO NOTHING`,
		roomID, userID, toMillis(time.Now()))

	return err
}

func (r *RoomRepository) Participants(ctx context.Context, roomID int64) ([]protocol.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.username, u.avatar_url
		FROM room_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.room_id = ?
		ORDER BY p.joined_at, p.rowid`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]protocol.Participant, 0)
	for rows.Next() {
		var p protocol.Participant
		if err := rows.Scan(&p.Name, &p.AvatarURL); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}
