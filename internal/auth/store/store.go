package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Repositories hang off it as methods so that a Tx-scoped
// Store can hand out the same repositories bound to the transaction.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. The transaction is committed
	// when fn returns nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up a user by lower-cased email. Used during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// EmailExists reports whether an account already uses email.
	EmailExists(ctx context.Context, email string) (bool, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// The updates below touch only their own columns. Those that require an
	// active account return ErrNotFound when no active row has id, so a
	// concurrent deactivation is never overwritten.

	// RecordLogin stamps last_login_at on an active user. A non-nil
	// passwordHash replaces the stored hash in the same statement.
	RecordLogin(ctx context.Context, id string, at time.Time, passwordHash *string) error

	// UpdatePasswordHash replaces the password hash of an active user.
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error

	// UpdateFullname renames an active user.
	UpdateFullname(ctx context.Context, id, fullname string, at time.Time) error

	// SetActive enables or disables an account. Returns ErrNotFound when no
	// row has id.
	SetActive(ctx context.Context, id string, active bool, at time.Time) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}
