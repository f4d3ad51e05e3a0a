package ratelimiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts hits in Redis so limits hold across restarts and
// replicas.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store that namespaces its keys with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := s.prefix + ":" + key

	// INCR + conditional EXPIRE in one round trip. NX keeps the window
	// anchored at the first hit instead of sliding on every request.
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	ttl := pipe.TTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}
