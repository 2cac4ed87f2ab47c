package domain

import "time"

type User struct {
	ID           string
	Fullname     string
	Email        string  // stored lower-cased, unique
	PasswordHash *string // nil for accounts that cannot log in with a password
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// HasPassword reports whether the user has a password hash set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// SetPasswordHash replaces the stored hash.
func (u *User) SetPasswordHash(hash string, now time.Time) {
	u.PasswordHash = &hash
	u.UpdatedAt = now
}

// TouchLogin records a successful login.
func (u *User) TouchLogin(now time.Time) {
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

func (u *User) Rename(fullname string, now time.Time) {
	u.Fullname = fullname
	u.UpdatedAt = now
}
