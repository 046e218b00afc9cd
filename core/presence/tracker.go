package presence

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/meaaditiya/portfoliomanager-sub002/core/logger"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/broadcast"
)

// TrackerConfig holds the presence tracker settings.
type TrackerConfig struct {
	// LiveWindow is how long after its last activity a session still counts
	// as live.
	LiveWindow time.Duration `env:"PRESENCE_LIVE_WINDOW" envDefault:"5m"`
	// SweepInterval is how often stale active sessions are reconciled.
	SweepInterval time.Duration `env:"PRESENCE_SWEEP_INTERVAL" envDefault:"1m"`
	// BroadcastBuffer is the per-subscriber live-count channel depth.
	BroadcastBuffer int `env:"PRESENCE_BROADCAST_BUFFER" envDefault:"8"`
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the logger for background sweep and broadcast
// failures.
func WithTrackerLogger(log *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if log != nil {
			t.logger = log
		}
	}
}

// WithTrackerClock overrides the time source. Intended for tests.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker applies the presence rules on top of a Store and fans live-count
// updates out to subscribers. The live count is always recomputed from the
// store, never cached: a count is correct at the moment a client asks.
type Tracker struct {
	store  Store
	cfg    TrackerConfig
	logger *slog.Logger
	now    func() time.Time
	live   *broadcast.MemoryBroadcaster[LiveCount]
}

// NewTracker creates a presence tracker. Zero config fields fall back to a
// 5 minute live window and a 1 minute sweep interval.
func NewTracker(store Store, cfg TrackerConfig, opts ...TrackerOption) *Tracker {
	if store == nil {
		panic("presence tracker: store is required")
	}
	if cfg.LiveWindow <= 0 {
		cfg.LiveWindow = 5 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = 8
	}

	t := &Tracker{
		store:  store,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		live:   broadcast.NewMemoryBroadcaster[LiveCount](cfg.BroadcastBuffer),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track records a heartbeat for the session and returns the resulting live
// count. Repeated calls for one session never inflate the count.
func (t *Tracker) Track(ctx context.Context, p JoinParams) (int64, error) {
	if p.SessionID == "" {
		return 0, ErrMissingSessionID
	}

	now := t.now()
	if err := t.store.Upsert(ctx, p, now); err != nil {
		return 0, fmt.Errorf("failed to track visitor: %w", err)
	}

	return t.publish(ctx)
}

// Leave marks the session inactive and returns the resulting live count.
// Unknown sessions are a no-op.
func (t *Tracker) Leave(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, ErrMissingSessionID
	}

	if _, err := t.store.Deactivate(ctx, sessionID, t.now()); err != nil {
		return 0, fmt.Errorf("failed to record visitor leave: %w", err)
	}

	return t.publish(ctx)
}

// Disconnect handles a dropped websocket. It prefers the session ID and
// falls back to the socket ID, which covers clients that never reported a
// session over the socket.
func (t *Tracker) Disconnect(ctx context.Context, sessionID, socketID string) error {
	now := t.now()

	matched := false
	if sessionID != "" {
		var err error
		matched, err = t.store.Deactivate(ctx, sessionID, now)
		if err != nil {
			return fmt.Errorf("failed to record visitor disconnect: %w", err)
		}
	}
	if !matched && socketID != "" {
		if _, err := t.store.DeactivateBySocket(ctx, socketID, now); err != nil {
			return fmt.Errorf("failed to record visitor disconnect: %w", err)
		}
	}

	_, err := t.publish(ctx)
	return err
}

// LiveCount recomputes the current number of live visitors.
func (t *Tracker) LiveCount(ctx context.Context) (int64, error) {
	return t.store.LiveCount(ctx, t.now().Add(-t.cfg.LiveWindow))
}

// Stats computes the visitor counters for the stats endpoint. Day and month
// boundaries use the server's local time zone.
func (t *Tracker) Stats(ctx context.Context) (Stats, error) {
	now := t.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	live, err := t.store.LiveCount(ctx, now.Add(-t.cfg.LiveWindow))
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute visitor stats: %w", err)
	}
	lastHour, err := t.store.CountSince(ctx, now.Add(-time.Hour))
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute visitor stats: %w", err)
	}
	today, err := t.store.CountSince(ctx, midnight)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute visitor stats: %w", err)
	}
	thisMonth, err := t.store.CountSince(ctx, monthStart)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute visitor stats: %w", err)
	}
	total, err := t.store.Total(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute visitor stats: %w", err)
	}

	return Stats{
		LiveViewers:       live,
		VisitorsLastHour:  lastHour,
		VisitorsToday:     today,
		VisitorsThisMonth: thisMonth,
		TotalVisitors:     total,
		Timestamp:         now,
	}, nil
}

// Subscribe returns a live-count subscription that is cleaned up when ctx is
// cancelled.
func (t *Tracker) Subscribe(ctx context.Context) broadcast.Subscriber[LiveCount] {
	return t.live.Subscribe(ctx)
}

// Run returns a function suitable for running in an errgroup. It
// periodically flips sessions that stopped reporting without a clean leave,
// broadcasting the corrected count when anything changed.
func (t *Tracker) Run(ctx context.Context) func() error {
	return func() error {
		ticker := time.NewTicker(t.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				t.sweep(ctx)
			}
		}
	}
}

// Close shuts down the live-count broadcaster.
func (t *Tracker) Close() error {
	return t.live.Close()
}

func (t *Tracker) sweep(ctx context.Context) {
	cutoff := t.now().Add(-t.cfg.LiveWindow)
	flipped, err := t.store.DeactivateStale(ctx, cutoff)
	if err != nil {
		t.logger.LogAttrs(ctx, slog.LevelError, "presence sweep failed",
			logger.Component("presence"),
			logger.Error(err))
		return
	}
	if flipped == 0 {
		return
	}

	t.logger.LogAttrs(ctx, slog.LevelDebug, "stale visitors deactivated",
		logger.Component("presence"),
		logger.Count("deactivated", int(flipped)))
	if _, err := t.publish(ctx); err != nil {
		t.logger.LogAttrs(ctx, slog.LevelWarn, "live count broadcast failed",
			logger.Component("presence"),
			logger.Error(err))
	}
}

// publish recomputes the live count and broadcasts it. Broadcast failures do
// not fail the caller's operation.
func (t *Tracker) publish(ctx context.Context) (int64, error) {
	count, err := t.LiveCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to compute live count: %w", err)
	}

	if err := t.live.Broadcast(ctx, broadcast.Message[LiveCount]{Data: LiveCount{
		Count:     count,
		Timestamp: t.now(),
	}}); err != nil {
		t.logger.LogAttrs(ctx, slog.LevelWarn, "live count broadcast failed",
			logger.Component("presence"),
			logger.Error(err))
	}

	return count, nil
}
