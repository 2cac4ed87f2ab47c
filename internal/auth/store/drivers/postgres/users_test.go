package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/agentauth/pkg/idx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "agentauth",
				"POSTGRES_PASSWORD": "agentauth",
				"POSTGRES_DB":       "agentauth",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://agentauth:agentauth@%s/agentauth?sslmode=disable", endpoint)
	st, err := postgres.NewStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestPostgresUsers(t *testing.T) {
	st := setupPostgres(t)
	ctx := context.Background()

	empty, err := st.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	now := time.Now().UTC().Truncate(time.Microsecond)
	u := domain.User{
		ID:        idx.New().String(),
		Fullname:  "Ada Lovelace",
		Email:     "Ada@Example.com",
		Role:      domain.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Users().CreateUser(ctx, u))

	dup := u
	dup.ID = idx.New().String()
	require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

	got, err := st.Users().GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, domain.RoleAdmin, got.Role)
	require.False(t, got.HasPassword())

	hash := "$2$1000$aa$bb"
	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().RecordLogin(ctx, got.ID, now, &hash)
	}))
	require.NoError(t, st.Users().UpdateFullname(ctx, got.ID, "Ada King", now))

	again, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, again.HasPassword())
	require.NotNil(t, again.LastLoginAt)
	require.Equal(t, "Ada King", again.Fullname)

	require.NoError(t, st.Users().SetActive(ctx, u.ID, false, now))
	require.ErrorIs(t, st.Users().RecordLogin(ctx, u.ID, now, nil), store.ErrNotFound)
	require.ErrorIs(t, st.Users().UpdatePasswordHash(ctx, u.ID, hash, now), store.ErrNotFound)
	require.ErrorIs(t, st.Users().SetActive(ctx, "missing", true, now), store.ErrNotFound)

	_, err = st.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}
