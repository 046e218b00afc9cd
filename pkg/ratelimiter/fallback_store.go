package ratelimiter

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Reconnection backoff: delays grow in 100ms steps and cap at 3s; after
// maxReconnectAttempts consecutive failures the primary is considered down
// for the remainder of the process lifetime.
const (
	reconnectBaseDelay   = 100 * time.Millisecond
	reconnectMaxDelay    = 3 * time.Second
	maxReconnectAttempts = 10
)

// FallbackStore serves from a shared primary store while it is reachable and
// degrades to a process-local store when it is not, so a primary outage never
// turns into request failures. While degraded, a background probe attempts to
// reconnect with capped exponential backoff; once the attempt budget is
// exhausted the store stays local until restart.
//
// Scaling note: in fallback mode counts are per-process, so scaling out while
// degraded weakens limit accuracy. Documented tradeoff, not a bug.
type FallbackStore struct {
	primary Store
	local   Store
	ping    func(ctx context.Context) error
	logger  *slog.Logger

	mu       sync.RWMutex
	degraded bool
	down     bool
	probing  bool
}

// FallbackStoreOption configures a FallbackStore.
type FallbackStoreOption func(*FallbackStore)

// WithFallbackLogger sets the logger for degradation and recovery events.
func WithFallbackLogger(logger *slog.Logger) FallbackStoreOption {
	return func(fs *FallbackStore) {
		if logger != nil {
			fs.logger = logger
		}
	}
}

// NewFallbackStore composes a primary store with a local fallback. ping is
// used by the reconnection probe to test primary availability; it must be
// cheap (a Redis PING).
func NewFallbackStore(primary, local Store, ping func(ctx context.Context) error, opts ...FallbackStoreOption) *FallbackStore {
	if primary == nil || local == nil {
		panic("ratelimiter: both primary and local stores are required")
	}
	if ping == nil {
		panic("ratelimiter: ping function is required")
	}

	fs := &FallbackStore{
		primary: primary,
		local:   local,
		ping:    ping,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(fs)
	}

	return fs
}

// Incr records one request, preferring the primary store.
func (fs *FallbackStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	if fs.useLocal() {
		return fs.local.Incr(ctx, key, window)
	}

	count, expiresAt, err := fs.primary.Incr(ctx, key, window)
	if err != nil {
		fs.degrade(ctx, err)
		return fs.local.Incr(ctx, key, window)
	}
	return count, expiresAt, nil
}

// Decr refunds one request on whichever store is active.
func (fs *FallbackStore) Decr(ctx context.Context, key string) error {
	if fs.useLocal() {
		return fs.local.Decr(ctx, key)
	}
	if err := fs.primary.Decr(ctx, key); err != nil {
		fs.degrade(ctx, err)
		return fs.local.Decr(ctx, key)
	}
	return nil
}

// Reset drops the window for key on both stores so a degradation flip cannot
// resurrect a cleared window.
func (fs *FallbackStore) Reset(ctx context.Context, key string) error {
	_ = fs.local.Reset(ctx, key)
	if fs.useLocal() {
		return nil
	}
	if err := fs.primary.Reset(ctx, key); err != nil {
		fs.degrade(ctx, err)
	}
	return nil
}

// Degraded reports whether requests are currently served from the local store.
func (fs *FallbackStore) Degraded() bool {
	return fs.useLocal()
}

func (fs *FallbackStore) useLocal() bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.degraded || fs.down
}

// degrade flips to the local store and starts a single reconnection probe.
func (fs *FallbackStore) degrade(ctx context.Context, cause error) {
	fs.mu.Lock()
	if fs.down {
		fs.mu.Unlock()
		return
	}
	alreadyProbing := fs.probing
	fs.degraded = true
	fs.probing = true
	fs.mu.Unlock()

	if alreadyProbing {
		return
	}

	fs.logger.WarnContext(ctx, "rate limit store unreachable, falling back to in-memory store",
		slog.Any("error", cause))

	go fs.reconnect()
}

// reconnect probes the primary with capped exponential backoff. Runs on its
// own goroutine; at most one probe is active at a time.
func (fs *FallbackStore) reconnect() {
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		delay := min(time.Duration(attempt)*reconnectBaseDelay, reconnectMaxDelay)
		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := fs.ping(ctx)
		cancel()

		if err == nil {
			fs.mu.Lock()
			fs.degraded = false
			fs.probing = false
			fs.mu.Unlock()

			fs.logger.Info("rate limit store reconnected",
				slog.Int("retry_count", attempt))
			return
		}

		fs.logger.Warn("rate limit store reconnect attempt failed",
			slog.Int("retry_count", attempt),
			slog.Duration("next_delay", min(time.Duration(attempt+1)*reconnectBaseDelay, reconnectMaxDelay)),
			slog.Any("error", err))
	}

	fs.mu.Lock()
	fs.down = true
	fs.probing = false
	fs.mu.Unlock()

	fs.logger.Error("rate limit store reconnection exhausted, staying on in-memory store until restart",
		slog.Int("retry_count", maxReconnectAttempts))
}
