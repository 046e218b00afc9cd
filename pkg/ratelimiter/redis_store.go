package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments the window counter and arms its expiry atomically,
// so concurrent requests across instances cannot split a window.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// decrScript refunds one slot without letting the counter go negative and
// without resurrecting an expired key.
var decrScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    local count = redis.call("DECR", KEYS[1])
    if count < 0 then
        redis.call("SET", KEYS[1], 0, "KEEPTTL")
    end
end
return 0
`)

// RedisStore implements Store on a shared Redis instance, making limits
// consistent across horizontally scaled processes.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix namespaces all limiter keys (default: "ratelimit:").
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		rs.keyPrefix = prefix
	}
}

// NewRedisStore creates a Redis-backed store. Panics on a nil client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	if client == nil {
		panic("ratelimiter: redis client is required")
	}

	rs := &RedisStore{
		client:    client,
		keyPrefix: "ratelimit:",
	}

	for _, opt := range opts {
		opt(rs)
	}

	return rs
}

// Incr atomically records one request under key and returns the count in the
// current window with the window expiry.
func (rs *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	vals, err := incrScript.Run(ctx, rs.client, []string{rs.keyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if len(vals) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unexpected script reply of length %d", ErrStoreUnavailable, len(vals))
	}

	count, ttlMillis := vals[0], vals[1]
	expiresAt := time.Now().Add(window)
	if ttlMillis > 0 {
		expiresAt = time.Now().Add(time.Duration(ttlMillis) * time.Millisecond)
	}

	return count, expiresAt, nil
}

// Decr refunds one request in the current window.
func (rs *RedisStore) Decr(ctx context.Context, key string) error {
	if err := decrScript.Run(ctx, rs.client, []string{rs.keyPrefix + key}).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Reset drops the window for key.
func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Healthcheck verifies Redis connectivity.
func (rs *RedisStore) Healthcheck(ctx context.Context) error {
	if err := rs.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
