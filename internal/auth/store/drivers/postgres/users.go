package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, fullname, email, password_hash, role, is_active, created_at, updated_at, last_login_at`

type usersRepo struct {
	q querier
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(email),
	))
}

func (r *usersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		strings.ToLower(email),
	).Scan(&exists)
	return exists, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Fullname, strings.ToLower(u.Email), u.PasswordHash, string(u.Role),
		u.IsActive, u.CreatedAt, u.UpdatedAt, u.LastLoginAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) RecordLogin(ctx context.Context, id string, at time.Time, passwordHash *string) error {
	return affectedOne(r.q.Exec(ctx,
		`UPDATE users
		    SET last_login_at = $2, password_hash = COALESCE($3, password_hash), updated_at = $2
		  WHERE id = $1 AND is_active`,
		id, at.UTC(), passwordHash,
	))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return affectedOne(r.q.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1 AND is_active`,
		id, hash, at.UTC(),
	))
}

func (r *usersRepo) UpdateFullname(ctx context.Context, id, fullname string, at time.Time) error {
	return affectedOne(r.q.Exec(ctx,
		`UPDATE users SET fullname = $2, updated_at = $3 WHERE id = $1 AND is_active`,
		id, fullname, at.UTC(),
	))
}

func (r *usersRepo) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	return affectedOne(r.q.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, at.UTC(),
	))
}

func affectedOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return false, err
	}
	return !exists, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Fullname, &u.Email, &u.PasswordHash, &role,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	return u, nil
}
