package cli_test

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/app"
	"github.com/aussiebroadwan/agentauth/internal/auth/cli"
	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) app.Config {
	t.Helper()
	return app.Config{
		Provider:       domain.AuthProviderPassword,
		Pepper:         "test-pepper",
		HashRounds:     1000,
		JWTSecret:      "test-secret-key-that-is-long-enough",
		JWTAlg:         "HS256",
		AccessTTL:      time.Minute,
		RefreshTTL:     time.Hour,
		ResourceTTL:    time.Minute,
		DatabaseDriver: app.DriverSQLite,
		DatabaseFile:   filepath.Join(t.TempDir(), "auth.db"),
		Env:            "test",
	}
}

func run(t *testing.T, cfg app.Config, args ...string) (string, error) {
	t.Helper()
	root := cli.NewRootCommand(func(*slog.Logger) (app.Config, error) { return cfg, nil })

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestGenSecret(t *testing.T) {
	cfg := testConfig(t)

	a, err := run(t, cfg, "gen-secret")
	require.NoError(t, err)
	require.Len(t, a, 43) // 32 bytes, base64url without padding

	b, err := run(t, cfg, "gen-secret", "--bytes", "16")
	require.NoError(t, err)
	require.Len(t, b, 22)
}

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := testConfig(t)

	hash, err := run(t, cfg, "hash-password", "--password", "hunter22")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$2$1000$"), hash)

	out, err := run(t, cfg, "verify-password", "--password", "hunter22", "--hash", hash)
	require.NoError(t, err)
	require.Equal(t, "ok", out)

	_, err = run(t, cfg, "verify-password", "--password", "wrong", "--hash", hash)
	require.ErrorIs(t, err, cli.ErrMismatch)

	cfg.HashRounds = 2000
	out, err = run(t, cfg, "verify-password", "--password", "hunter22", "--hash", hash)
	require.NoError(t, err)
	require.Equal(t, "ok (needs rehash)", out)
}

func TestHashPassword_RequiresFlag(t *testing.T) {
	_, err := run(t, testConfig(t), "hash-password")
	require.Error(t, err)
}

func TestSignAndVerifyURL(t *testing.T) {
	cfg := testConfig(t)

	signed, err := run(t, cfg, "sign-url", "--path", "/api/v1/files/42", "--ttl", "5m")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(signed, "/api/v1/files/42?"), signed)

	out, err := run(t, cfg, "verify-url", "--url", signed)
	require.NoError(t, err)
	require.Equal(t, "ok", out)

	tampered := strings.Replace(signed, "/42?", "/43?", 1)
	_, err = run(t, cfg, "verify-url", "--url", tampered)
	require.ErrorIs(t, err, cli.ErrMismatch)
}

func TestResourceToken(t *testing.T) {
	cfg := testConfig(t)

	token, err := run(t, cfg, "resource-token", "--type", "file", "--id", "42", "--user", "u1")
	require.NoError(t, err)

	codec, err := jwtx.NewCodec(cfg.JWTSecret, cfg.JWTAlg, nil)
	require.NoError(t, err)
	claims, ok := codec.VerifyType(token, jwtx.TokenTypeResourceAccess)
	require.True(t, ok)
	require.Equal(t, "file", claims.ResourceType)
	require.Equal(t, "42", claims.ResourceID)
	require.Equal(t, "u1", claims.UserID)
}

func TestCreateAdmin(t *testing.T) {
	cfg := testConfig(t)

	id, err := run(t, cfg, "create-admin", "--email", "Root@Example.com", "--password", "admin-password")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Same store, same email.
	_, err = run(t, cfg, "create-admin", "--email", "root@example.com", "--password", "admin-password")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Email already exists")

	cfg.Provider = domain.AuthProviderNone
	_, err = run(t, cfg, "create-admin", "--email", "x@example.com", "--password", "admin-password")
	require.Error(t, err)
}
