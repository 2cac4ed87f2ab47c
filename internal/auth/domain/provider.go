package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedAuthProvider = errors.New("unsupported auth provider")

// AuthProvider selects how credentials are checked. It is fixed for the
// lifetime of the process.
type AuthProvider string

const (
	// AuthProviderPassword checks email and password against stored users.
	AuthProviderPassword AuthProvider = "password"
	// AuthProviderNone accepts everyone as a fixed anonymous user.
	AuthProviderNone AuthProvider = "none"
	// AuthProviderLocal accepts a single configured email and password.
	AuthProviderLocal AuthProvider = "local"
)

func (p AuthProvider) String() string { return string(p) }

// ParseAuthProvider maps a configuration value to an AuthProvider.
func ParseAuthProvider(s string) (AuthProvider, error) {
	switch p := AuthProvider(strings.ToLower(strings.TrimSpace(s))); p {
	case AuthProviderPassword, AuthProviderNone, AuthProviderLocal:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAuthProvider, s)
	}
}

// Fixed principals used by the none and local providers.
const (
	AnonymousUserID  = "anonymous"
	AnonymousName    = "anonymous"
	AnonymousEmail   = "anonymous@localhost"
	LocalAdminUserID = "local_admin"
	LocalAdminName   = "Local Admin"
)
