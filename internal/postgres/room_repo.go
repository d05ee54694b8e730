package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/protocol"

	"github.com/jackc/pgx/v5"
)

type RoomRepository struct {
	q querier
}

func NewRoomRepository(q querier) *RoomRepository {
	return &RoomRepository{q: q}
}

func (r *RoomRepository) Get(ctx context.Context, id int64) (domain.Room, error) {
	var rm domain.Room
	query := `SELECT id, name, owner_id, created_at FROM rooms WHERE id = $1`
	err := r.q.QueryRow(ctx, query, id).Scan(&rm.ID, &rm.Name, &rm.OwnerID, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, err
	}

	return rm, nil
}

func (r *RoomRepository) Create(ctx context.Context, name string, ownerID int64) (int64, error) {
	var id int64
	query := `INSERT INTO rooms (name, owner_id) VALUES ($1, $2) RETURNING id`
	if err := r.q.QueryRow(ctx, query, name, ownerID).Scan(&id); err != nil {
		if err = mapPgError(err); errors.Is(err, errUniqueViolation) {
			return 0, domain.ErrRoomExists
		}
		return 0, err
	}

	return id, nil
}

func (r *RoomRepository) IDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `SELECT id FROM rooms WHERE name = $1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomSummary
	for rows.Next() {
		var (
			s    domain.RoomSummary
			last *time.Time
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerName, &s.Participants, &last); err != nil {
			return nil, err
		}
		s.LastActivity = last
		out = append(out, s)
	}

	return out, rows.Err()
}

func (r *RoomRepository) AddParticipant(ctx context.Context, roomID, userID int64) error {
	query := `
		INSERT INTO room_participants (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING`
	_, err := r.q.Exec(ctx, query, roomID, userID)

	return err
}

func (r *RoomRepository) Participants(ctx context.Context, roomID int64) ([]protocol.Participant, error) {
	query := `
		SELECT u.username, u.avatar_url
		FROM room_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.room_id = $1
		ORDER BY p.joined_at, p.user_id`

	rows, err := r.q.Query(ctx, query, roomID)
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
