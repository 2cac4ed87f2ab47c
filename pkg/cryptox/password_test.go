package cryptox

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPepper = "test-pepper"

// Low round count keeps the suite fast; the format is identical.
func newTestHasher() *PasswordHasher {
	return NewPasswordHasher(testPepper, 1000, nil)
}

func TestNewPasswordHasher_DefaultRounds(t *testing.T) {
	require.Equal(t, DefaultHashRounds, NewPasswordHasher(testPepper, 0, nil).Rounds())
	require.Equal(t, DefaultHashRounds, NewPasswordHasher(testPepper, -5, nil).Rounds())
	require.Equal(t, 42, NewPasswordHasher(testPepper, 42, nil).Rounds())
}

func TestHash(t *testing.T) {
	h := newTestHasher()
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 5)
			require.Equal(t, "", parts[0])
			require.Equal(t, HashVersion, parts[1])
			require.Equal(t, "1000", parts[2])
			require.Len(t, parts[3], 2*saltLength, "salt should be 32 hex chars")
			_, err = hex.DecodeString(parts[3])
			require.NoError(t, err)
			require.Len(t, parts[4], 2*keyLength)

			require.True(t, h.Verify(tt.password, hash))
		})
	}
}

func TestHash_UniqueSalt(t *testing.T) {
	h := newTestHasher()

	hash1, err := h.Hash("same-password")
	require.NoError(t, err)
	hash2, err := h.Hash("same-password")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to random salt")
	require.True(t, h.Verify("same-password", hash1))
	require.True(t, h.Verify("same-password", hash2))
}

func TestVerify_RoundTripAcrossRounds(t *testing.T) {
	for _, rounds := range []int{1, 100_000} {
		h := NewPasswordHasher(testPepper, rounds, nil)
		hash, err := h.Hash("correct horse")
		require.NoError(t, err)
		require.True(t, h.Verify("correct horse", hash))
		require.False(t, h.Verify("battery staple", hash))
	}
}

func TestVerify_Rejection(t *testing.T) {
	h := newTestHasher()
	hash, err := h.Hash("secret1")
	require.NoError(t, err)

	tests := []string{"secret2", "Secret1", "secret1 ", "", "secret"}
	for _, pw := range tests {
		require.False(t, h.Verify(pw, hash), "password %q must not verify", pw)
	}
}

func TestVerify_DifferentPepper(t *testing.T) {
	hash, err := newTestHasher().Hash("secret1")
	require.NoError(t, err)

	other := NewPasswordHasher("another-pepper", 1000, nil)
	require.False(t, other.Verify("secret1", hash))
}

func TestVerify_MalformedHashes(t *testing.T) {
	h := newTestHasher()
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"unsupported version", "$99$1000$salt$deadbeef"},
		{"too few parts", "$2$1000$deadbeef"},
		{"too many parts", "$2$1000$salt$deadbeef$extra"},
		{"zero rounds", "$2$0$salt$deadbeef"},
		{"negative rounds", "$2$-1$salt$deadbeef"},
		{"non numeric rounds", "$2$many$salt$deadbeef"},
		{"empty salt", "$2$1000$$deadbeef"},
		{"non hex key", "$2$1000$salt$not-hex!"},
		{"empty key", "$2$1000$salt$"},
		{"only delimiters", "$$$$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.False(t, h.Verify("anything", tt.hash))
			})
		})
	}
}

func TestVerify_NotAValidFormat(t *testing.T) {
	// No leading "$" routes to the legacy path, which must simply not match.
	require.False(t, newTestHasher().Verify("anything", "not-a-valid-format"))
}

func TestHashWithSalt_Deterministic(t *testing.T) {
	h := newTestHasher()
	salt := strings.Repeat("ab", saltLength)

	first, err := h.HashWithSalt("password", salt, 500)
	require.NoError(t, err)
	for range 3 {
		again, err := h.HashWithSalt("password", salt, 500)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}

	otherRounds, err := h.HashWithSalt("password", salt, 501)
	require.NoError(t, err)
	require.NotEqual(t, first, otherRounds)
}

func TestHashWithSalt_InvalidInput(t *testing.T) {
	h := newTestHasher()

	_, err := h.HashWithSalt("password", "abcd", 0)
	require.ErrorIs(t, err, ErrInvalidRounds)

	_, err = h.HashWithSalt("password", "", 10)
	require.ErrorIs(t, err, ErrEmptySalt)
}

func TestVerify_StoredRoundsWin(t *testing.T) {
	// A hash created under a lower global setting still verifies after the
	// setting is raised, because verification uses the embedded rounds.
	old := NewPasswordHasher(testPepper, 200, nil)
	hash, err := old.Hash("secret1")
	require.NoError(t, err)

	current := NewPasswordHasher(testPepper, 5000, nil)
	require.True(t, current.Verify("secret1", hash))
}

func TestVerify_Legacy(t *testing.T) {
	h := newTestHasher()
	legacy := h.legacyHash("secret1")

	require.True(t, strings.HasPrefix(legacy, testPepper))
	require.True(t, h.Verify("secret1", legacy))
	require.False(t, h.Verify("secret2", legacy))

	other := NewPasswordHasher("another-pepper", 1000, nil)
	require.False(t, other.Verify("secret1", legacy))
}

// Vectors computed independently with Python's hashlib.pbkdf2_hmac, so
// stored hashes stay portable across implementations.
func TestKnownAnswers(t *testing.T) {
	const (
		legacy  = "test-pepper747b16bec77a9d3ad7c383cdbf3a6d01ea3e0cb08f126d7352e9fc6957069022"
		current = "$2$1000$00112233445566778899aabbccddeeff$36b626c0a937d48c647f861e6e7e4912c6aafcc5b294338cab71cbcfbfde4a46"
	)
	h := newTestHasher()

	require.Equal(t, legacy, h.legacyHash("secret1"))
	require.True(t, h.Verify("secret1", legacy))

	got, err := h.HashWithSalt("secret1", "00112233445566778899aabbccddeeff", 1000)
	require.NoError(t, err)
	require.Equal(t, current, got)
	require.True(t, h.Verify("secret1", current))
	require.False(t, h.Verify("secret2", current))
}

func TestVerify_KeyHexMustMatchExactly(t *testing.T) {
	h := newTestHasher()
	hash, err := h.HashWithSalt("secret1", "00112233445566778899aabbccddeeff", 1000)
	require.NoError(t, err)
	require.True(t, h.Verify("secret1", hash))

	i := strings.LastIndex(hash, "$")
	upper := hash[:i+1] + strings.ToUpper(hash[i+1:])
	require.NotEqual(t, hash, upper)
	require.False(t, h.Verify("secret1", upper))
}

func TestNeedsRehash(t *testing.T) {
	h := newTestHasher()
	current, err := h.Hash("pw")
	require.NoError(t, err)
	weak, err := NewPasswordHasher(testPepper, 10, nil).Hash("pw")
	require.NoError(t, err)

	tests := []struct {
		name string
		hash string
		want bool
	}{
		{"current", current, false},
		{"under rounds", weak, true},
		{"legacy", h.legacyHash("pw"), true},
		{"empty", "", false},
		{"malformed", "$2$x$y", false},
		{"unknown version", "$99$1$aa$bb", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, h.NeedsRehash(tt.hash))
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(16)
	require.NoError(t, err)
	require.Len(t, pw, 16)

	_, err = GeneratePassword(0)
	require.Error(t, err)
}
