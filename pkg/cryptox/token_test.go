package cryptox

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantLen int
	}{
		{"128-bit secret", SecretSize128, 22},
		{"256-bit secret", SecretSize256, 43},
		{"512-bit secret", SecretSize512, 86},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GenerateSecret(tt.size)
			require.NoError(t, err)
			require.Len(t, s, tt.wantLen)

			s2, err := GenerateSecret(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, s, s2, "secrets should be unique")
		})
	}
}

func TestGenerateSecret_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		s, err := GenerateSecret(size)
		require.Error(t, err)
		require.Empty(t, s)

		_, err = GenerateHexSecret(size)
		require.Error(t, err)
	}
}

func TestGenerateHexSecret(t *testing.T) {
	s, err := GenerateHexSecret(SecretSize256)
	require.NoError(t, err)
	require.Len(t, s, 64)
	_, err = hex.DecodeString(s)
	require.NoError(t, err)
}

func TestMustGenerateSecret_Panics(t *testing.T) {
	require.NotEmpty(t, MustGenerateSecret(SecretSize256))
	require.Panics(t, func() {
		MustGenerateSecret(0)
	})
}

func TestFingerprint(t *testing.T) {
	fp1a := Fingerprint("token-1")
	fp1b := Fingerprint("token-1")
	fp2 := Fingerprint("token-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2)
	require.Len(t, fp1a, 16)
}

func TestLoadOrGeneratePepper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "pepper")

	first, err := LoadOrGeneratePepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	second, err := LoadOrGeneratePepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second, "existing pepper should be reused")
}

func TestLoadOrGeneratePepper_Errors(t *testing.T) {
	_, err := LoadOrGeneratePepper("")
	require.ErrorIs(t, err, ErrEmptyPepperPath)

	path := filepath.Join(t.TempDir(), "pepper")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0600))
	_, err = LoadOrGeneratePepper(path)
	require.Error(t, err)
}
