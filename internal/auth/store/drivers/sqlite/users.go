package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const userColumns = `id, fullname, email, password_hash, role, is_active, created_at, updated_at, last_login_at`

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(email),
	)
	return scanUser(row)
}

func (r *usersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE email = ?`,
		strings.ToLower(email),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Fullname,
		strings.ToLower(u.Email),
		mapOptionalString(u.PasswordHash),
		string(u.Role),
		u.IsActive,
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
		mapOptionalTime(u.LastLoginAt),
	)
	return mapConstraint(err)
}

func (r *usersRepo) RecordLogin(ctx context.Context, id string, at time.Time, passwordHash *string) error {
	return affectedOne(r.db.ExecContext(ctx,
		`UPDATE users
		    SET last_login_at = ?, password_hash = COALESCE(?, password_hash), updated_at = ?
		  WHERE id = ? AND is_active = 1`,
		at.UTC(), mapOptionalString(passwordHash), at.UTC(), id,
	))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return affectedOne(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ? AND is_active = 1`,
		hash, at.UTC(), id,
	))
}

func (r *usersRepo) UpdateFullname(ctx context.Context, id, fullname string, at time.Time) error {
	return affectedOne(r.db.ExecContext(ctx,
		`UPDATE users SET fullname = ?, updated_at = ? WHERE id = ? AND is_active = 1`,
		fullname, at.UTC(), id,
	))
}

func (r *usersRepo) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	return affectedOne(r.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, at.UTC(), id,
	))
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return mapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u         domain.User
		role      string
		hash      sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.Fullname,
		&u.Email,
		&hash,
		&role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLogin,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	u.PasswordHash = mapNullStringPtr(hash)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func mapConstraint(err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ErrAlreadyExists
		}
	}
	return err
}
