package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// window holds one fixed-window counter.
type window struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore implements Store using in-process storage. Counts are local to
// the process: correct for a single instance, best-effort when scaled out.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string]*window

	// Configuration
	cleanupInterval time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time

	// State management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Observability metrics
	windowsCreated int64
	windowsRemoved atomic.Int64
}

// MemoryStoreStats provides observability metrics for monitoring and debugging.
type MemoryStoreStats struct {
	WindowsCreated int64 // Total number of windows started
	WindowsRemoved int64 // Total number of expired windows removed
	ActiveWindows  int   // Current number of live windows
	IsRunning      bool  // Whether the cleanup goroutine is running
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired windows are swept out.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithMemoryStoreShutdownTimeout sets the graceful shutdown timeout.
func WithMemoryStoreShutdownTimeout(timeout time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if timeout > 0 {
			ms.shutdownTimeout = timeout
		}
	}
}

// WithMemoryStoreLogger sets the logger for internal operations.
func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// WithMemoryStoreClock overrides the time source. Intended for tests.
func WithMemoryStoreClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates a new in-memory store.
// Call Start() or Run() to begin background cleanup of expired windows.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		windows:         make(map[string]*window),
		cleanupInterval: 5 * time.Minute,
		shutdownTimeout: 30 * time.Second,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(ms)
	}

	return ms
}

// Incr records one request under key, starting a new window when none is
// live, and returns the count within the current window.
func (ms *MemoryStore) Incr(ctx context.Context, key string, windowDur time.Duration) (int64, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	w, exists := ms.windows[key]
	if !exists || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(windowDur)}
		ms.windows[key] = w
		ms.windowsCreated++
	}

	w.count++
	return w.count, w.expiresAt, nil
}

// Decr refunds one request in the current window, flooring at zero.
func (ms *MemoryStore) Decr(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if w, ok := ms.windows[key]; ok && w.count > 0 {
		w.count--
	}
	return nil
}

// Reset drops the window for key.
func (ms *MemoryStore) Reset(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.windows, key)
	return nil
}

// Start begins the background cleanup goroutine. This is a blocking operation
// that runs until the context is cancelled. Use Run() for errgroup pattern or
// call this in a goroutine.
func (ms *MemoryStore) Start(ctx context.Context) error {
	ms.mu.Lock()
	if ms.cancel != nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory store already started")
	}
	if ms.cleanupInterval <= 0 {
		ms.mu.Unlock()
		return fmt.Errorf("cleanup interval must be > 0, got %v (use WithCleanupInterval to configure)", ms.cleanupInterval)
	}

	ms.ctx, ms.cancel = context.WithCancel(ctx)
	ms.mu.Unlock()

	ms.logger.InfoContext(ms.ctx, "rate limit memory store cleanup started",
		slog.Duration("cleanup_interval", ms.cleanupInterval))

	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.ctx.Done():
			ms.logger.InfoContext(context.Background(), "rate limit memory store cleanup stopping")
			return ms.ctx.Err()
		case <-ticker.C:
			ms.cleanupWithWait()
		}
	}
}

// Stop gracefully shuts down the background cleanup with a timeout.
func (ms *MemoryStore) Stop() error {
	ms.mu.Lock()
	if ms.cancel == nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory store not started")
	}

	cancel := ms.cancel
	ms.cancel = nil
	ms.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), ms.shutdownTimeout)
	defer ctxCancel()

	done := make(chan struct{})
	go func() {
		ms.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		ms.logger.WarnContext(context.Background(), "memory store shutdown timeout exceeded",
			slog.Duration("timeout", ms.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", ms.shutdownTimeout)
	}
}

// Run provides errgroup compatibility for coordinated lifecycle management.
func (ms *MemoryStore) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- ms.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = ms.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// cleanupWithWait tracks the sweep with the WaitGroup so Stop can wait for it.
func (ms *MemoryStore) cleanupWithWait() {
	ms.mu.RLock()
	if ms.cancel == nil {
		ms.mu.RUnlock()
		return
	}
	ms.wg.Add(1)
	ms.mu.RUnlock()

	defer ms.wg.Done()
	ms.removeExpired()
}

// removeExpired drops windows past their expiry so idle keys do not
// accumulate indefinitely.
func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	removed := 0
	for key, w := range ms.windows {
		if !now.Before(w.expiresAt) {
			delete(ms.windows, key)
			removed++
		}
	}

	if removed > 0 {
		ms.windowsRemoved.Add(int64(removed))
	}
}

// Stats returns current memory store statistics. Thread-safe.
func (ms *MemoryStore) Stats() MemoryStoreStats {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return MemoryStoreStats{
		WindowsCreated: ms.windowsCreated,
		WindowsRemoved: ms.windowsRemoved.Load(),
		ActiveWindows:  len(ms.windows),
		IsRunning:      ms.cancel != nil,
	}
}

// Healthcheck validates that the memory store is operational.
func (ms *MemoryStore) Healthcheck(ctx context.Context) error {
	stats := ms.Stats()
	if ms.cleanupInterval > 0 && !stats.IsRunning {
		return fmt.Errorf("cleanup is configured but not running")
	}
	return nil
}
