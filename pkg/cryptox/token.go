package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Secret sizes in bytes before encoding.
const (
	SecretSize128 = 16
	SecretSize256 = 32
	SecretSize512 = 64
)

// GenerateSecret returns size random bytes encoded as base64url without
// padding. Used for JWT and URL signing secrets.
func GenerateSecret(size int) (string, error) {
	buf, err := randomBytes(size)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateHexSecret is GenerateSecret with hex encoding.
func GenerateHexSecret(size int) (string, error) {
	buf, err := randomBytes(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// MustGenerateSecret is like GenerateSecret but panics on error.
func MustGenerateSecret(size int) string {
	s, err := GenerateSecret(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate secret: %v", err))
	}
	return s
}

// Fingerprint returns a short, non-reversible identifier for a credential so
// it can be correlated in logs without being written out.
func Fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}

func randomBytes(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}
