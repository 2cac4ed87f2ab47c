package httpx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every replica: INCR on
// a key per window, with the window length as TTL.
type RedisLimiter struct {
	Client redis.Cmdable
	Prefix string
	Max    int64
	Window time.Duration
}

// NewRedisLimiter returns a Redis-backed Limiter for cfg.
func NewRedisLimiter(client redis.Cmdable, prefix string, cfg RateLimitConfig) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(cfg.RequestsPerWindow),
		Window: cfg.Window,
	}
}

// RedisLimiterFactory builds Redis limiters sharing client.
func RedisLimiterFactory(client redis.Cmdable, prefix string) LimiterFactory {
	return func(cfg RateLimitConfig) Limiter {
		return NewRedisLimiter(client, prefix, cfg)
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	winStart := time.Now().UTC().Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.Window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("redis rate limit: %w", err)
	}

	hits := incr.Val()
	d := Decision{
		Allowed:   hits <= l.Max,
		Remaining: int(max(l.Max-hits, 0)),
	}
	if !d.Allowed {
		d.RetryAfter = ttl.Val()
		if d.RetryAfter <= 0 {
			d.RetryAfter = l.Window
		}
	}
	return d, nil
}
