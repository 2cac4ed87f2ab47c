package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTL constants.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 30 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// DefaultResourceAccessTTL is the default lifetime for resource tokens
	// embedded in links.
	DefaultResourceAccessTTL = 60 * time.Minute
)

// TokenType discriminates what a token may be used for.
type TokenType string

const (
	TokenTypeAccess         TokenType = "access"
	TokenTypeRefresh        TokenType = "refresh"
	TokenTypeResourceAccess TokenType = "resource_access"
)

// Claims is the claim set of every token minted by Codec. Which of the
// custom fields are populated depends on Type.
type Claims struct {
	jwt.RegisteredClaims

	Type TokenType `json:"type,omitempty"`

	/* access and refresh */

	Fullname string `json:"fullname,omitempty"`

	/* access only */

	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`

	// IsActive is a pointer so a missing claim can be told apart from false.
	IsActive *bool `json:"is_active,omitempty"`

	/* resource_access only */

	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

// Subject is the identity a user-bound token is minted for.
type Subject struct {
	ID       string
	Fullname string
	Email    string
	Role     string
	IsActive bool
}

// UserInfo is the identity projection of a verified token.
type UserInfo struct {
	ID        string
	Fullname  string
	Email     string
	Role      string
	IsActive  bool
	TokenType TokenType
}

// NewAccessClaims builds claims for an access token.
func NewAccessClaims(s Subject, ttl time.Duration, now time.Time) Claims {
	active := s.IsActive
	return Claims{
		RegisteredClaims: registered(s.ID, ttl, now),
		Type:             TokenTypeAccess,
		Fullname:         s.Fullname,
		Email:            s.Email,
		Role:             s.Role,
		IsActive:         &active,
	}
}

// NewRefreshClaims builds claims for a refresh token. Only the subject and
// display name are carried; everything else is reloaded on refresh.
func NewRefreshClaims(s Subject, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(s.ID, ttl, now),
		Type:             TokenTypeRefresh,
		Fullname:         s.Fullname,
	}
}

// NewResourceAccessClaims builds claims scoping a token to one resource.
func NewResourceAccessClaims(resourceType, resourceID, userID string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(userID, ttl, now),
		Type:             TokenTypeResourceAccess,
		ResourceType:     resourceType,
		ResourceID:       resourceID,
		UserID:           userID,
	}
}

func registered(subject string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a random identifier for the "jti" claim, so two tokens
// minted within the same second never collide.
func NewJTI() string {
	return uuid.NewString()
}

// EffectiveType returns Type, treating a missing claim as an access token.
func (c *Claims) EffectiveType() TokenType {
	if c.Type == "" {
		return TokenTypeAccess
	}
	return c.Type
}

// Active returns is_active, treating a missing claim as active.
func (c *Claims) Active() bool {
	return c.IsActive == nil || *c.IsActive
}

// UserInfo projects the claims onto UserInfo.
func (c *Claims) UserInfo() *UserInfo {
	return &UserInfo{
		ID:        c.Subject,
		Fullname:  c.Fullname,
		Email:     c.Email,
		Role:      c.Role,
		IsActive:  c.Active(),
		TokenType: c.EffectiveType(),
	}
}

// ValidateExpiry ensures the token has an expiry that is not in the past
// relative to now.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}
