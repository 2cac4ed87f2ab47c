package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSubject = jwtx.Subject{
	ID:       "user-123",
	Fullname: "Test User",
	Email:    "test@example.com",
	Role:     "user",
	IsActive: true,
}

func TestNewAccessClaims(t *testing.T) {
	now := time.Now().UTC()
	c := jwtx.NewAccessClaims(testSubject, 2*time.Minute, now)

	require.Equal(t, jwtx.TokenTypeAccess, c.Type)
	require.Equal(t, "user-123", c.Subject)
	require.Equal(t, "Test User", c.Fullname)
	require.Equal(t, "test@example.com", c.Email)
	require.Equal(t, "user", c.Role)
	require.NotNil(t, c.IsActive)
	require.True(t, *c.IsActive)
	require.NotEmpty(t, c.ID)
	require.Equal(t, now.Add(2*time.Minute).Unix(), c.ExpiresAt.Unix())
}

func TestNewRefreshClaims(t *testing.T) {
	c := jwtx.NewRefreshClaims(testSubject, time.Hour, time.Now())

	require.Equal(t, jwtx.TokenTypeRefresh, c.Type)
	require.Equal(t, "Test User", c.Fullname)
	require.Empty(t, c.Email, "refresh tokens carry no email")
	require.Nil(t, c.IsActive)
}

func TestNewResourceAccessClaims(t *testing.T) {
	c := jwtx.NewResourceAccessClaims("file", "42", "user-123", time.Hour, time.Now())

	require.Equal(t, jwtx.TokenTypeResourceAccess, c.Type)
	require.Equal(t, "file", c.ResourceType)
	require.Equal(t, "42", c.ResourceID)
	require.Equal(t, "user-123", c.UserID)
}

func TestNewJTI_Unique(t *testing.T) {
	require.NotEqual(t, jwtx.NewJTI(), jwtx.NewJTI())
}

func TestClaimsDefaults(t *testing.T) {
	c := &jwtx.Claims{}
	require.Equal(t, jwtx.TokenTypeAccess, c.EffectiveType())
	require.True(t, c.Active())

	inactive := false
	c.IsActive = &inactive
	c.Type = jwtx.TokenTypeRefresh
	require.Equal(t, jwtx.TokenTypeRefresh, c.EffectiveType())
	require.False(t, c.Active())

	info := c.UserInfo()
	require.False(t, info.IsActive)
	require.Equal(t, jwtx.TokenTypeRefresh, info.TokenType)
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid token", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		require.NoError(t, c.ValidateExpiry(now))
	})

	t.Run("expired token", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		}}
		require.ErrorIs(t, c.ValidateExpiry(now), jwtx.ErrExpired)
	})

	t.Run("missing expiry", func(t *testing.T) {
		c := &jwtx.Claims{}
		require.ErrorIs(t, c.ValidateExpiry(now), jwtx.ErrInvalidClaim)
	})
}
