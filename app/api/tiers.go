package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/meaaditiya/portfoliomanager-sub002/middleware"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/clientip"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/ratelimiter"
)

// Tiers bundles the rate limit policies applied at different depths of the
// routing tree. All tiers share one counter store, so limits hold across
// instances when the store is Redis-backed. Key prefixes keep the tiers'
// windows independent for one client.
type Tiers struct {
	// General is the broad per-IP limit on all API traffic.
	General middleware.Middleware
	// Burst catches short request spikes that the longer general window
	// would absorb.
	Burst middleware.Middleware
	// API is the limit for the /api subtree.
	API middleware.Middleware
	// Strict protects sensitive operations, keyed by IP and user.
	Strict middleware.Middleware
	// Auth limits failed authentication attempts; successful responses
	// refund their slot.
	Auth middleware.Middleware
	// Public covers cheap anonymous reads and skips health probes.
	Public middleware.Middleware
	// Upload limits file upload endpoints.
	Upload middleware.Middleware

	authLimiter *ratelimiter.Limiter
	logger      *slog.Logger
}

// AuthKeyed returns an auth-tier limiter keyed by the credential the
// extractor pulls from the request, typically the submitted email or
// username, so one address cannot lock out a whole NAT. Requests where the
// extractor returns "" fall back to the client IP. The counter is shared
// with the default Auth tier.
func (t *Tiers) AuthKeyed(extract func(r *http.Request) string) middleware.Middleware {
	return middleware.RateLimit(middleware.RateLimitConfig{
		Limiter: t.authLimiter,
		KeyExtractor: func(r *http.Request) string {
			if cred := extract(r); cred != "" {
				return "auth:" + cred
			}
			return "auth:" + clientip.GetIP(r)
		},
		Message:         "Too many authentication attempts, please try again later.",
		RefundOnSuccess: true,
		Logger:          t.logger,
	})
}

// NewTiers builds the tier middlewares on a shared counter store.
func NewTiers(store ratelimiter.Store, cfg LimitsConfig, log *slog.Logger) (*Tiers, error) {
	general, err := tierLimiter(store, cfg.GeneralLimit, cfg.GeneralWindow, "general")
	if err != nil {
		return nil, err
	}
	burst, err := tierLimiter(store, cfg.BurstLimit, cfg.BurstWindow, "burst")
	if err != nil {
		return nil, err
	}
	apiTier, err := tierLimiter(store, cfg.APILimit, cfg.APIWindow, "api")
	if err != nil {
		return nil, err
	}
	strict, err := tierLimiter(store, cfg.StrictLimit, cfg.StrictWindow, "strict")
	if err != nil {
		return nil, err
	}
	auth, err := tierLimiter(store, cfg.AuthLimit, cfg.AuthWindow, "auth")
	if err != nil {
		return nil, err
	}
	public, err := tierLimiter(store, cfg.PublicLimit, cfg.PublicWindow, "public")
	if err != nil {
		return nil, err
	}
	upload, err := tierLimiter(store, cfg.UploadLimit, cfg.UploadWindow, "upload")
	if err != nil {
		return nil, err
	}

	return &Tiers{
		General: middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:      general,
			KeyExtractor: prefixedIP("general"),
			SetHeaders:   true,
			Logger:       log,
		}),
		Burst: middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:      burst,
			KeyExtractor: prefixedIP("burst"),
			Message:      "Request rate too high, slow down.",
			Logger:       log,
		}),
		API: middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:      apiTier,
			KeyExtractor: prefixedIP("api"),
			SetHeaders:   true,
			Logger:       log,
		}),
		Strict: middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:      strict,
			KeyExtractor: strictKey,
			Logger:       log,
		}),
		Auth: middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:         auth,
			KeyExtractor:    prefixedIP("auth"),
			Message:         "Too many authentication attempts, please try again later.",
			RefundOnSuccess: true,
			Logger:          log,
		}),
		Public: middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:      public,
			KeyExtractor: prefixedIP("public"),
			Skip: func(r *http.Request) bool {
				return strings.HasPrefix(r.URL.Path, "/health")
			},
			Logger: log,
		}),
		Upload: middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:      upload,
			KeyExtractor: prefixedIP("upload"),
			Message:      "Upload limit reached, please try again later.",
			Logger:       log,
		}),
		authLimiter: auth,
		logger:      log,
	}, nil
}

func tierLimiter(store ratelimiter.Store, limit int, window time.Duration, name string) (*ratelimiter.Limiter, error) {
	limiter, err := ratelimiter.New(store, ratelimiter.Config{Limit: limit, Window: window})
	if err != nil {
		return nil, fmt.Errorf("%s tier: %w", name, err)
	}
	return limiter, nil
}

func prefixedIP(prefix string) func(r *http.Request) string {
	return func(r *http.Request) string {
		return prefix + ":" + clientip.GetIP(r)
	}
}

// strictKey combines IP with the authenticated user when one is known, so a
// NATed office does not exhaust one shared budget.
func strictKey(r *http.Request) string {
	key := "strict:" + clientip.GetIP(r)
	if user := r.Header.Get("X-User-ID"); user != "" {
		key += ":" + user
	}
	return key
}
