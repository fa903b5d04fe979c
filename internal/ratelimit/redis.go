package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces rate-limit counters in Redis.
const keyPrefix = "ratelimit:"

// RedisStore is a Store backed by Redis, for deployments where multiple
// instances must share one window per caller.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr implements Store. INCR is atomic in Redis, so concurrent callers from
// any instance see a consistent count; the key's TTL is the window boundary.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := keyPrefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("failed to set rate limit window: %w", err)
		}
		return count, time.Now().Add(window), nil
	}

	ttl, err := s.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read rate limit window: %w", err)
	}
	if ttl < 0 {
		// The key lost its TTL (e.g. a crash between INCR and EXPIRE).
		// Re-arm the window so the counter cannot leak forever.
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("failed to re-arm rate limit window: %w", err)
		}
		ttl = window
	}
	return count, time.Now().Add(ttl), nil
}
