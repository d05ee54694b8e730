package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cwrk-planet/meet-service/internal/domain"
)

type UserRepository struct {
	db *sql.DB
}

const userColumns = `id, username, avatar_url, created_at`

func (r *UserRepository) ByTokenHash(ctx context.Context, tokenHash string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE access_token_hash = ?`, tokenHash)
}

func (r *UserRepository) ByID(ctx context.Context, id int64) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) Upsert(ctx context.Context, u domain.User, tokenHash string) (domain.User, error) {
	var hash any
	if tokenHash != "" {
		hash = tokenHash
	}
	now := toMillis(time.Now())

	var row *sql.Row
	if u.ID > 0 {
		row = r.db.QueryRowContext(ctx, `
			INSERT INTO users (id, username, avatar_url, access_token_hash, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE
			SET username = excluded.username,
			    avatar_url = excluded.avatar_url,
			    access_token_hash = COALESCE(excluded.access_token_hash, users.access_token_hash)
			RETURNING `+userColumns, u.ID, u.Username, u.AvatarURL, hash, now)
	} else {
		row = r.db.QueryRowContext(ctx, `
			INSERT INTO users (username, avatar_url, access_token_hash, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (username) DO UPDATE
			SET avatar_url = excluded.avatar_url,
			    access_token_hash = COALESCE(excluded.access_token_hash, users.access_token_hash)
			RETURNING `+userColumns, u.Username, u.AvatarURL, hash, now)
	}

	return scanUser(row)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}

	return u, err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u  domain.User
		at int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.AvatarURL, &at); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = fromMillis(at)

	return u, nil
}
