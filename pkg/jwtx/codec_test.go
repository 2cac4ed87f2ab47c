package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough"

func newTestCodec(t *testing.T) *jwtx.Codec {
	t.Helper()
	c, err := jwtx.NewCodec(testSecret, "HS256", nil)
	require.NoError(t, err)
	return c
}

func TestNewCodec(t *testing.T) {
	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		c, err := jwtx.NewCodec(testSecret, alg, nil)
		require.NoError(t, err)
		require.Equal(t, alg, c.Algorithm())
	}

	_, err := jwtx.NewCodec("", "HS256", nil)
	require.ErrorIs(t, err, jwtx.ErrEmptySecret)

	for _, alg := range []string{"RS256", "none", "", "hs256"} {
		_, err := jwtx.NewCodec(testSecret, alg, nil)
		require.ErrorIs(t, err, jwtx.ErrUnsupportedAlgorithm, "alg %q", alg)
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.CreateAccessToken(testSubject, 2*time.Minute)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	claims, ok := c.Verify(token)
	require.True(t, ok)
	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, jwtx.TokenTypeAccess, claims.Type)
	require.Equal(t, "test@example.com", claims.Email)
	require.True(t, claims.Active())
	require.NotNil(t, claims.IssuedAt)
}

func TestTokens_Distinct(t *testing.T) {
	c := newTestCodec(t)

	t1, err := c.CreateAccessToken(testSubject, time.Minute)
	require.NoError(t, err)
	t2, err := c.CreateAccessToken(testSubject, time.Minute)
	require.NoError(t, err)

	require.NotEqual(t, t1, t2, "jti keeps same-second tokens distinct")
}

func TestVerify_Expired(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.CreateAccessToken(testSubject, -time.Minute)
	require.NoError(t, err)

	claims, ok := c.Verify(token)
	require.False(t, ok)
	require.Nil(t, claims)

	_, err = c.Parse(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerify_Tampered(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.CreateAccessToken(testSubject, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])

	// The final base64url character carries padding bits, so only
	// positions before it are guaranteed to change the decoded bytes.
	for i := 0; i < len(sig)-1; i++ {
		mutated := make([]byte, len(sig))
		copy(mutated, sig)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}

		tampered := parts[0] + "." + parts[1] + "." + string(mutated)
		_, ok := c.Verify(tampered)
		require.False(t, ok, "signature mutated at %d must not verify", i)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	c := newTestCodec(t)

	userToken, err := c.CreateAccessToken(testSubject, time.Minute)
	require.NoError(t, err)

	admin := testSubject
	admin.Role = "admin"
	adminToken, err := c.CreateAccessToken(admin, time.Minute)
	require.NoError(t, err)

	u := strings.Split(userToken, ".")
	a := strings.Split(adminToken, ".")

	_, err = c.Parse(u[0] + "." + a[1] + "." + u[2])
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerify_WrongSecret(t *testing.T) {
	c := newTestCodec(t)
	other, err := jwtx.NewCodec("a-completely-different-secret-value", "HS256", nil)
	require.NoError(t, err)

	token, err := other.CreateAccessToken(testSubject, time.Minute)
	require.NoError(t, err)

	_, err = c.Parse(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerify_AlgorithmMismatch(t *testing.T) {
	c := newTestCodec(t)
	hs512, err := jwtx.NewCodec(testSecret, "HS512", nil)
	require.NoError(t, err)

	token, err := hs512.CreateAccessToken(testSubject, time.Minute)
	require.NoError(t, err)

	_, err = c.Parse(token)
	require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
}

func TestVerify_NoneAlgorithm(t *testing.T) {
	c := newTestCodec(t)

	claims := jwtx.NewAccessClaims(testSubject, time.Minute, time.Now())
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, ok := c.Verify(token)
	require.False(t, ok)
}

func TestVerify_MissingExpiry(t *testing.T) {
	c := newTestCodec(t)

	claims := jwtx.NewAccessClaims(testSubject, time.Minute, time.Now())
	claims.ExpiresAt = nil
	token, err := c.Sign(claims)
	require.NoError(t, err)

	_, err = c.Parse(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
}

func TestVerify_Malformed(t *testing.T) {
	c := newTestCodec(t)

	for _, token := range []string{"", "not-a-jwt", "a.b", "a.b.c", "...."} {
		_, ok := c.Verify(token)
		require.False(t, ok, "token %q", token)

		_, err := c.Parse(token)
		require.Error(t, err)
	}
}

func TestVerifyType(t *testing.T) {
	c := newTestCodec(t)

	access, err := c.CreateAccessToken(testSubject, time.Minute)
	require.NoError(t, err)
	refresh, err := c.CreateRefreshToken(testSubject, time.Hour)
	require.NoError(t, err)
	resource, err := c.CreateResourceAccessToken("file", "42", "user-123", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  jwtx.TokenType
		ok    bool
	}{
		{"access as access", access, jwtx.TokenTypeAccess, true},
		{"access as refresh", access, jwtx.TokenTypeRefresh, false},
		{"refresh as refresh", refresh, jwtx.TokenTypeRefresh, true},
		{"refresh as access", refresh, jwtx.TokenTypeAccess, false},
		{"resource as resource", resource, jwtx.TokenTypeResourceAccess, true},
		{"resource as access", resource, jwtx.TokenTypeAccess, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.VerifyType(tt.token, tt.want)
			require.Equal(t, tt.ok, ok)
		})
	}
}

func TestVerifyType_MissingTypeIsAccess(t *testing.T) {
	c := newTestCodec(t)

	claims := jwtx.NewAccessClaims(testSubject, time.Minute, time.Now())
	claims.Type = ""
	token, err := c.Sign(claims)
	require.NoError(t, err)

	_, ok := c.VerifyType(token, jwtx.TokenTypeAccess)
	require.True(t, ok)
}

func TestResourceAccessToken(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.CreateResourceAccessToken("file", "42", "user-123", 5*time.Minute)
	require.NoError(t, err)

	claims, ok := c.VerifyType(token, jwtx.TokenTypeResourceAccess)
	require.True(t, ok)
	require.Equal(t, "file", claims.ResourceType)
	require.Equal(t, "42", claims.ResourceID)
	require.Equal(t, "user-123", claims.UserID)
}

func TestIntrospect(t *testing.T) {
	c := newTestCodec(t)

	access, err := c.CreateAccessToken(testSubject, time.Minute)
	require.NoError(t, err)

	info, ok := c.Introspect(access)
	require.True(t, ok)
	require.Equal(t, &jwtx.UserInfo{
		ID:        "user-123",
		Fullname:  "Test User",
		Email:     "test@example.com",
		Role:      "user",
		IsActive:  true,
		TokenType: jwtx.TokenTypeAccess,
	}, info)

	refresh, err := c.CreateRefreshToken(testSubject, time.Hour)
	require.NoError(t, err)

	info, ok = c.Introspect(refresh)
	require.True(t, ok)
	require.Equal(t, jwtx.TokenTypeRefresh, info.TokenType)
	require.True(t, info.IsActive, "is_active defaults to true when absent")

	_, ok = c.Introspect("garbage")
	require.False(t, ok)
}

func TestExpiration(t *testing.T) {
	c := newTestCodec(t)

	before := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	token, err := c.CreateAccessToken(testSubject, 10*time.Minute)
	require.NoError(t, err)

	exp, ok := c.Expiration(token)
	require.True(t, ok)
	require.WithinDuration(t, before, exp, 2*time.Second)

	_, ok = c.Expiration("garbage")
	require.False(t, ok)
}

func TestRevoke(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.CreateAccessToken(testSubject, time.Minute)
	require.NoError(t, err)

	require.True(t, c.Revoke(token))
	require.True(t, c.Revoke("garbage"))

	// Stateless: the token is still accepted afterwards.
	_, ok := c.Verify(token)
	require.True(t, ok)
}
