package ratelimiter

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config describes one fixed-window rate limit policy.
type Config struct {
	// Limit is the maximum number of requests allowed per window.
	Limit int
	// Window is the fixed window duration.
	Window time.Duration
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, c.Limit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Result reports the outcome of a single limiter check.
type Result struct {
	// Limit is the configured maximum for the window.
	Limit int
	// Remaining is the number of requests left in the current window.
	// Negative once the limit has been exceeded.
	Remaining int
	// ResetAt is when the current window expires.
	ResetAt time.Time
}

// Allowed reports whether the request that produced this result was within
// the limit. A request landing exactly on the limit is still allowed; the
// next one in the same window is not.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long the client should wait before retrying,
// rounded up to whole seconds. Zero when the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	until := time.Until(r.ResetAt)
	if until <= 0 {
		return time.Second
	}
	secs := math.Ceil(until.Seconds())
	return time.Duration(secs) * time.Second
}

// Store is the counter backend contract. Implementations must be safe for
// concurrent use; shared stores (Redis) must increment atomically across
// instances, process-local stores are best-effort by definition.
type Store interface {
	// Incr records one request under key and returns the resulting count in
	// the current window together with the window's expiry time. The first
	// increment of a window starts it.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, expiresAt time.Time, err error)
	// Decr undoes one previously recorded request, flooring at zero. Used to
	// refund successful requests on tiers that only count failures.
	Decr(ctx context.Context, key string) error
	// Reset drops the window for key entirely.
	Reset(ctx context.Context, key string) error
}

// Limiter applies one fixed-window policy against a Store.
type Limiter struct {
	store  Store
	config Config
}

// New creates a Limiter. Returns ErrInvalidConfig for unusable policies and
// panics on a nil store, which is a programming error.
func New(store Store, config Config) (*Limiter, error) {
	if store == nil {
		panic("ratelimiter: store is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{store: store, config: config}, nil
}

// Allow records one request under key and reports whether it is within the
// limit.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	count, expiresAt, err := l.store.Incr(ctx, key, l.config.Window)
	if err != nil {
		return nil, err
	}

	return &Result{
		Limit:     l.config.Limit,
		Remaining: l.config.Limit - int(count),
		ResetAt:   expiresAt,
	}, nil
}

// Refund returns one previously consumed slot to the window. Best effort:
// storage failures are returned but callers typically only log them.
func (l *Limiter) Refund(ctx context.Context, key string) error {
	return l.store.Decr(ctx, key)
}

// Reset clears the window for key. Administrative override.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}

// Config returns the limiter's policy.
func (l *Limiter) Config() Config {
	return l.config
}
