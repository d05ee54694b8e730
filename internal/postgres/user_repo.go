package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/meet-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	q querier
}

func NewUserRepository(q querier) *UserRepository {
	return &UserRepository{q: q}
}

const userColumns = `id, username, avatar_url, created_at`

func (r *UserRepository) ByTokenHash(ctx context.Context, tokenHash string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE access_token_hash = $1`, tokenHash)
}

func (r *UserRepository) ByID(ctx context.Context, id int64) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) Upsert(ctx context.Context, u domain.User, tokenHash string) (domain.User, error) {
	var hash any
	if tokenHash != "" {
		hash = tokenHash
	}

	var row pgx.Row
	if u.ID > 0 {
		row = r.q.QueryRow(ctx, `
			INSERT INTO users (id, username, avatar_url, access_token_hash)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET username = EXCLUDED.username,
			    avatar_url = EXCLUDED.avatar_url,
			    access_token_hash = COALESCE(EXCLUDED.access_token_hash, users.access_token_hash)
			RETURNING `+userColumns, u.ID, u.Username, u.AvatarURL, hash)
	} else {
		row = r.q.QueryRow(ctx, `
			INSERT INTO users (username, avatar_url, access_token_hash)
			VALUES ($1, $2, $3)
			ON CONFLICT (username) DO UPDATE
			SET avatar_url = EXCLUDED.avatar_url,
			    access_token_hash = COALESCE(EXCLUDED.access_token_hash, users.access_token_hash)
			RETURNING `+userColumns, u.Username, u.AvatarURL, hash)
	}

	var out domain.User
	if err := row.Scan(&out.ID, &out.Username, &out.AvatarURL, &out.CreatedAt); err != nil {
		return domain.User{}, mapPgError(err)
	}

	// явные id не двигают последовательность
	if u.ID > 0 {
		if _, err := r.q.Exec(ctx,
			`SELECT setval(pg_get_serial_sequence('users', 'id'), GREATEST((SELECT MAX(id) FROM users), 1))`); err != nil {
			return domain.User{}, err
		}
	}

	return out, nil
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg any) (domain.User, error) {
	var u domain.User
	err := r.q.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Username, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}

	return u, nil
}
