package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL UNIQUE,
	role       TEXT NOT NULL DEFAULT 'USER',
	status     TEXT NOT NULL DEFAULT 'PENDING',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const usersPasswordColumn = `ALTER TABLE users ADD COLUMN IF NOT EXISTS password_hash TEXT NOT NULL DEFAULT ''`

// PgRepository reads accounts from the shared users table.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, usersSchema); err != nil {
		return errs.WrapMsg(err, "create users table")
	}
	_, err := r.pool.Exec(ctx, usersPasswordColumn)
	return errs.WrapMsg(err, "add users.password_hash")
}

func (r *PgRepository) FindByID(ctx context.Context, id string) (*usermodel.User, error) {
	var (
		u            usermodel.User
		role, status string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, role, status, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &role, &status, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrRecordNotFound.WrapMsg("user not found", "id", id)
		}
		return nil, errs.WrapMsg(err, "query user", "id", id)
	}
	u.Role = usermodel.Role(role)
	u.Status = usermodel.Status(status)
	return &u, nil
}

// FindByUsername loads an account with its password hash.
func (r *PgRepository) FindByUsername(ctx context.Context, username string) (*usermodel.User, error) {
	var (
		u            usermodel.User
		role, status string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, role, status, created_at, password_hash FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &role, &status, &u.CreatedAt, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrRecordNotFound.WrapMsg("user not found", "username", username)
		}
		return nil, errs.WrapMsg(err, "query user", "username", username)
	}
	u.Role = usermodel.Role(role)
	u.Status = usermodel.Status(status)
	return &u, nil
}

// Upsert writes an account; startup seeds configured accounts with it.
func (r *PgRepository) Upsert(ctx context.Context, u usermodel.User) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO users (id, username, role, status, password_hash)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, role = EXCLUDED.role,
	status = EXCLUDED.status, password_hash = EXCLUDED.password_hash`,
		u.ID, u.Username, string(u.Role), string(u.Status), u.PasswordHash)
	return errs.WrapMsg(err, "upsert user", "id", u.ID)
}
