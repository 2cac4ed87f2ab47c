package jwtx

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret          = errors.New("jwtx: secret must not be empty")
	ErrUnsupportedAlgorithm = errors.New("jwtx: unsupported algorithm")

	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrAlgMismatch  = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
	ErrWrongType    = errors.New("jwtx: unexpected token type")
)

// Supported HMAC algorithms.
var methods = map[string]jwt.SigningMethod{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

// Codec mints and verifies HMAC-signed JWTs with a single shared secret.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	logger *slog.Logger
	now    func() time.Time
}

// NewCodec returns a codec for one of HS256, HS384 or HS512. An empty secret
// or any other algorithm is a configuration error.
func NewCodec(secret, algorithm string, logger *slog.Logger) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	method, ok := methods[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Codec{
		secret: []byte(secret),
		method: method,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Algorithm returns the configured signing algorithm name.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Sign serializes and signs arbitrary claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign %s token: %w", claims.Type, err)
	}
	return signed, nil
}

// CreateAccessToken mints an access token for s valid for ttl.
func (c *Codec) CreateAccessToken(s Subject, ttl time.Duration) (string, error) {
	return c.Sign(NewAccessClaims(s, ttl, c.now().UTC()))
}

// CreateRefreshToken mints a refresh token for s valid for ttl.
func (c *Codec) CreateRefreshToken(s Subject, ttl time.Duration) (string, error) {
	return c.Sign(NewRefreshClaims(s, ttl, c.now().UTC()))
}

// CreateResourceAccessToken mints a token granting userID access to a
// single resource for ttl.
func (c *Codec) CreateResourceAccessToken(resourceType, resourceID, userID string, ttl time.Duration) (string, error) {
	return c.Sign(NewResourceAccessClaims(resourceType, resourceID, userID, ttl, c.now().UTC()))
}

// Parse validates the token and returns its claims, or one of the package
// errors describing why it was rejected.
func (c *Codec) Parse(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, ErrAlgMismatch
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, c.classify(token, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaim
	}

	// The parser already enforces exp; a token slipping past it is still
	// rejected here.
	if err := claims.ValidateExpiry(c.now()); err != nil {
		return nil, err
	}

	return claims, nil
}

func (c *Codec) classify(token *jwt.Token, err error) error {
	switch {
	case token != nil && token.Method != nil && token.Method.Alg() != c.method.Alg():
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued), errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing), errors.Is(err, jwt.ErrTokenInvalidClaims):
		return ErrInvalidClaim
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// Verify is the soft form of Parse: any failure is logged and reported as
// (nil, false).
func (c *Codec) Verify(tokenStr string) (*Claims, bool) {
	claims, err := c.Parse(tokenStr)
	if err != nil {
		c.logger.Warn("token verification failed", slog.String("reason", err.Error()))
		return nil, false
	}
	return claims, true
}

// VerifyType verifies the token and additionally requires its type to be
// want. A missing type claim counts as access.
func (c *Codec) VerifyType(tokenStr string, want TokenType) (*Claims, bool) {
	claims, ok := c.Verify(tokenStr)
	if !ok {
		return nil, false
	}
	if got := claims.EffectiveType(); got != want {
		c.logger.Warn("token verification failed",
			slog.String("reason", ErrWrongType.Error()),
			slog.String("want", string(want)),
			slog.String("got", string(got)),
		)
		return nil, false
	}
	return claims, true
}

// Introspect verifies the token and returns the identity it carries.
func (c *Codec) Introspect(tokenStr string) (*UserInfo, bool) {
	claims, ok := c.Verify(tokenStr)
	if !ok {
		return nil, false
	}
	return claims.UserInfo(), true
}

// Expiration returns when a valid token expires.
func (c *Codec) Expiration(tokenStr string) (time.Time, bool) {
	claims, ok := c.Verify(tokenStr)
	if !ok {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Revoke acknowledges a logout. Tokens are stateless so nothing is stored;
// the token stays valid until it expires.
func (c *Codec) Revoke(tokenStr string) bool {
	attrs := []any{slog.String("mode", "stateless")}
	if claims, err := c.Parse(tokenStr); err == nil {
		attrs = append(attrs, slog.String("jti", claims.ID), slog.String("sub", claims.Subject))
	}
	c.logger.Info("token revoked", attrs...)
	return true
}
