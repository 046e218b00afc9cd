package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/meaaditiya/portfoliomanager-sub002/core/logger"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/clientip"
)

const (
	defaultSuspicionThreshold = 100
	defaultSuspicionWindow    = time.Minute
	defaultSuspicionSweep     = 5 * time.Minute
)

// SuspicionState tracks per-IP request timestamps to detect burst abuse.
// It is independent of the rate limit tiers: an IP that trips this detector
// is blocked even when individual tiers still have capacity.
//
// State lives in process memory only and is shared across all requests.
type SuspicionState struct {
	mu        sync.Mutex
	byIP      map[string][]time.Time
	threshold int
	window    time.Duration
	sweep     time.Duration
	now       func() time.Time
}

// SuspicionOption configures a SuspicionState.
type SuspicionOption func(*SuspicionState)

// WithSuspicionThreshold sets the number of requests within the window that
// marks an IP as suspicious.
func WithSuspicionThreshold(n int) SuspicionOption {
	return func(s *SuspicionState) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithSuspicionWindow sets the sliding observation window.
func WithSuspicionWindow(d time.Duration) SuspicionOption {
	return func(s *SuspicionState) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithSuspicionSweepInterval sets how often idle IP entries are evicted.
func WithSuspicionSweepInterval(d time.Duration) SuspicionOption {
	return func(s *SuspicionState) {
		if d > 0 {
			s.sweep = d
		}
	}
}

// WithSuspicionClock overrides the time source. Intended for tests.
func WithSuspicionClock(now func() time.Time) SuspicionOption {
	return func(s *SuspicionState) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSuspicionState creates a detector with a 100-requests-per-minute
// threshold unless overridden.
func NewSuspicionState(opts ...SuspicionOption) *SuspicionState {
	s := &SuspicionState{
		byIP:      make(map[string][]time.Time),
		threshold: defaultSuspicionThreshold,
		window:    defaultSuspicionWindow,
		sweep:     defaultSuspicionSweep,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record registers a request from ip and reports whether the IP has crossed
// the suspicion threshold within the window.
func (s *SuspicionState) Record(ip string) bool {
	now := s.now()
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	times := s.byIP[ip]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	s.byIP[ip] = kept

	return len(kept) > s.threshold
}

// Sweep removes IP entries whose timestamps have all aged out of the window.
func (s *SuspicionState) Sweep() {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	for ip, times := range s.byIP {
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(s.byIP, ip)
		}
	}
}

// Reset clears all tracked state.
func (s *SuspicionState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byIP = make(map[string][]time.Time)
}

// TrackedIPs returns the number of IPs currently held in memory.
func (s *SuspicionState) TrackedIPs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byIP)
}

// Run returns a function suitable for running in an errgroup that sweeps
// idle entries periodically until the context is cancelled.
func (s *SuspicionState) Run(ctx context.Context) func() error {
	return func() error {
		ticker := time.NewTicker(s.sweep)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				s.Sweep()
			}
		}
	}
}

// SuspiciousActivityConfig configures the suspicious activity middleware.
type SuspiciousActivityConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool
	// State is the shared per-IP detector (required)
	State *SuspicionState
	// Allowlist contains IPs that bypass detection entirely
	Allowlist []string
	// Logger records blocked requests (default: discard)
	Logger *slog.Logger
}

// SuspiciousActivity creates a middleware that rejects requests from IPs
// exceeding the burst threshold. Panics if no state is provided.
func SuspiciousActivity(cfg SuspiciousActivityConfig) Middleware {
	if cfg.State == nil {
		panic("suspicious activity middleware: state is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	allowed := make(map[string]struct{}, len(cfg.Allowlist))
	for _, ip := range cfg.Allowlist {
		allowed[ip] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientip.GetIP(r)
			if _, ok := allowed[ip]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.State.Record(ip) {
				cfg.Logger.LogAttrs(r.Context(), slog.LevelWarn, "suspicious activity blocked",
					logger.Component("security"),
					logger.ClientIP(ip),
					logger.Path(r.URL.Path),
					logger.Reason("request burst over threshold"))
				WriteError(w, http.StatusTooManyRequests, ErrorBody{
					Error: "Suspicious activity detected. Access temporarily restricted.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
