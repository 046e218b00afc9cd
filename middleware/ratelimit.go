package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/meaaditiya/portfoliomanager-sub002/core/logger"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/clientip"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/ratelimiter"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool
	// Limiter is the rate limiting policy to enforce
	Limiter *ratelimiter.Limiter
	// KeyExtractor derives the rate limiting key from requests (default: client IP)
	KeyExtractor func(r *http.Request) string
	// Message overrides the rejection body text
	Message string
	// SetHeaders includes X-RateLimit-* information in response headers
	SetHeaders bool
	// RefundOnSuccess returns the consumed slot when the wrapped handler
	// responds with a 2xx status. Used by the auth tier, which only counts
	// failed attempts.
	RefundOnSuccess bool
	// Logger records rejected requests (default: discard)
	Logger *slog.Logger
}

// RateLimit creates a rate limiting middleware with the provided
// configuration. Panics if no limiter is provided.
//
// Rejections respond 429 with a machine-readable body carrying a retryAfter
// hint in seconds. Storage failures fail open: a broken counter must not
// take the API down, and the FallbackStore already absorbs shared-store
// outages before they reach this point.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		panic("ratelimit middleware: limiter is required")
	}
	if cfg.KeyExtractor == nil {
		cfg.KeyExtractor = clientip.GetIP
	}
	if cfg.Message == "" {
		cfg.Message = "Too many requests, please try again later."
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.KeyExtractor(r)
			result, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				cfg.Logger.LogAttrs(r.Context(), slog.LevelError, "rate limiter check failed",
					logger.Component("security"),
					logger.Path(r.URL.Path),
					logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if cfg.SetHeaders {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			}

			if !result.Allowed() {
				retryAfter := int(result.RetryAfter().Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				cfg.Logger.LogAttrs(r.Context(), slog.LevelWarn, "rate limit exceeded",
					logger.Component("security"),
					logger.ClientIP(clientip.GetIP(r)),
					logger.Path(r.URL.Path),
					logger.Reason("rate limit"),
					slog.String("limit_key", key))
				WriteError(w, http.StatusTooManyRequests, ErrorBody{
					Error:      cfg.Message,
					RetryAfter: retryAfter,
				})
				return
			}

			if !cfg.RefundOnSuccess {
				next.ServeHTTP(w, r)
				return
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if wrapped.statusCode >= 200 && wrapped.statusCode < 300 {
				if err := cfg.Limiter.Refund(r.Context(), key); err != nil {
					cfg.Logger.LogAttrs(r.Context(), slog.LevelWarn, "rate limit refund failed",
						logger.Component("security"),
						logger.Error(err))
				}
			}
		})
	}
}
