package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Configuration for PBKDF2-HMAC-SHA256 hashing.
const (
	HashVersion       = "2"     // Current hash format version
	DefaultHashRounds = 100_000 // Iteration count for new hashes
	legacyHashRounds  = 10      // Iteration count of unversioned hashes
	keyLength         = 32      // Length of the derived key
	saltLength        = 16      // Length of the per-user salt
)

var (
	ErrInvalidRounds = errors.New("rounds must be positive")
	ErrEmptySalt     = errors.New("salt must not be empty")
)

// PasswordHasher derives and verifies password hashes in the format
// $<version>$<rounds>$<userSaltHex>$<derivedKeyHex>. The derived key is
// PBKDF2-HMAC-SHA256 over the password with pepper||userSaltHex as salt.
//
// A PasswordHasher is immutable after construction and safe for concurrent use.
type PasswordHasher struct {
	pepper string
	rounds int
	logger *slog.Logger
}

// NewPasswordHasher returns a hasher mixing pepper into every hash. Rounds
// that are not positive fall back to DefaultHashRounds.
func NewPasswordHasher(pepper string, rounds int, logger *slog.Logger) *PasswordHasher {
	if rounds <= 0 {
		rounds = DefaultHashRounds
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PasswordHasher{pepper: pepper, rounds: rounds, logger: logger}
}

// Rounds reports the iteration count used for new hashes.
func (h *PasswordHasher) Rounds() int {
	return h.rounds
}

// Hash generates a new hash of password with a fresh random salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return h.HashWithSalt(password, hex.EncodeToString(salt), h.rounds)
}

// HashWithSalt derives a hash from an explicit salt and round count. The
// result is deterministic for identical inputs.
func (h *PasswordHasher) HashWithSalt(password, saltHex string, rounds int) (string, error) {
	if rounds <= 0 {
		return "", ErrInvalidRounds
	}
	if saltHex == "" {
		return "", ErrEmptySalt
	}

	key := h.derive(password, saltHex, rounds)
	return fmt.Sprintf("$%s$%d$%s$%s", HashVersion, rounds, saltHex, hex.EncodeToString(key)), nil
}

// Verify reports whether password matches stored. Malformed input never
// panics; it is logged and reported as a mismatch.
func (h *PasswordHasher) Verify(password, stored string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("password verification panicked", slog.Any("panic", r))
			ok = false
		}
	}()

	if stored == "" {
		h.logger.Warn("password verification failed: empty hash")
		return false
	}

	if !strings.HasPrefix(stored, "$") {
		return subtle.ConstantTimeCompare([]byte(h.legacyHash(password)), []byte(stored)) == 1
	}

	// Parse format: $version$rounds$salt$key
	parts := strings.Split(stored, "$")
	if len(parts) != 5 || parts[0] != "" {
		h.logger.Warn("password verification failed: invalid hash format",
			slog.Int("fields", len(parts)))
		return false
	}

	version, roundsStr, saltHex, keyHex := parts[1], parts[2], parts[3], parts[4]
	if version != HashVersion {
		h.logger.Warn("password verification failed: unsupported hash version",
			slog.String("version", version))
		return false
	}

	rounds, err := strconv.Atoi(roundsStr)
	if err != nil || rounds <= 0 {
		h.logger.Warn("password verification failed: invalid rounds",
			slog.String("rounds", roundsStr))
		return false
	}
	if saltHex == "" {
		h.logger.Warn("password verification failed: empty salt")
		return false
	}

	if keyHex == "" {
		h.logger.Warn("password verification failed: empty derived key")
		return false
	}

	// Stored keys are lower-case hex; any other spelling does not match.
	computed := hex.EncodeToString(h.derive(password, saltHex, rounds))
	return subtle.ConstantTimeCompare([]byte(computed), []byte(keyHex)) == 1
}

// NeedsRehash reports whether stored should be replaced by a fresh hash:
// legacy hashes and hashes weaker than the configured rounds qualify.
// Malformed hashes are left alone since they cannot have verified.
func (h *PasswordHasher) NeedsRehash(stored string) bool {
	if stored == "" {
		return false
	}
	if !strings.HasPrefix(stored, "$") {
		return true
	}

	parts := strings.Split(stored, "$")
	if len(parts) != 5 || parts[1] != HashVersion {
		return false
	}
	rounds, err := strconv.Atoi(parts[2])
	if err != nil {
		return false
	}
	return rounds < h.rounds
}

func (h *PasswordHasher) derive(password, saltHex string, rounds int) []byte {
	return pbkdf2.Key([]byte(password), []byte(h.pepper+saltHex), rounds, keyLength, sha256.New)
}

// legacyHash reproduces the unversioned scheme: the pepper alone salts the
// derivation and prefixes the hex key. Only Verify and tests use it.
func (h *PasswordHasher) legacyHash(password string) string {
	key := pbkdf2.Key([]byte(password), []byte(h.pepper), legacyHashRounds, keyLength, sha256.New)
	return h.pepper + hex.EncodeToString(key)
}

// GeneratePassword returns a random alphanumeric password of the given length.
func GeneratePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	if length <= 0 {
		return "", fmt.Errorf("password length must be positive, got %d", length)
	}
	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random password: %w", err)
		}
		password[i] = charset[n.Int64()]
	}
	return string(password), nil
}
