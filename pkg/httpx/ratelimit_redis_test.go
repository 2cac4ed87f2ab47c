package httpx_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a throwaway Redis and returns a connected client.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLimiter(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	cfg := httpx.RateLimitConfig{Name: "strict", RequestsPerWindow: 2, Window: time.Hour, Burst: 2}
	l := httpx.NewRedisLimiter(client, "test:", cfg)

	for i := range 2 {
		d, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		require.True(t, d.Allowed, "hit %d", i+1)
	}

	d, err := l.Allow(ctx, "alice")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)
	require.Positive(t, d.RetryAfter)
	require.LessOrEqual(t, d.RetryAfter, time.Hour)

	d, err = l.Allow(ctx, "bob")
	require.NoError(t, err)
	require.True(t, d.Allowed, "keys are counted separately")
}

func TestRedisLimiterFactory_Middleware(t *testing.T) {
	client := setupRedis(t)

	cfg := httpx.RateLimitConfig{Name: "moderate", RequestsPerWindow: 1, Window: time.Hour, Burst: 1}
	limiter := httpx.RedisLimiterFactory(client, "mw:")(cfg)
	h := httpx.RateLimit(limiter, cfg, httpx.IPKeyExtractor)(okHandler)

	require.Equal(t, 200, serve(h, "10.0.0.9:1").Code)
	require.Equal(t, 429, serve(h, "10.0.0.9:1").Code)
}
