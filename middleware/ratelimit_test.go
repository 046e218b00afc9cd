package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meaaditiya/portfoliomanager-sub002/middleware"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/ratelimiter"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *ratelimiter.Limiter {
	t.Helper()
	limiter, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Limit:  limit,
		Window: window,
	})
	require.NoError(t, err)
	return limiter
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("allows up to limit then rejects", func(t *testing.T) {
		t.Parallel()

		handler := middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:    newTestLimiter(t, 3, time.Minute),
			SetHeaders: true,
		})(okHandler())

		for i := range 3 {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
			req.RemoteAddr = "203.0.113.7:4000"
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
		}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		var body struct {
			Error      string `json:"error"`
			RetryAfter int    `json:"retryAfter"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Error)
		assert.GreaterOrEqual(t, body.RetryAfter, 1)
		assert.LessOrEqual(t, body.RetryAfter, 60)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()

		handler := middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: newTestLimiter(t, 1, time.Minute),
		})(okHandler())

		first := httptest.NewRecorder()
		reqA := httptest.NewRequest(http.MethodGet, "/", nil)
		reqA.RemoteAddr = "198.51.100.1:1000"
		handler.ServeHTTP(first, reqA)
		require.Equal(t, http.StatusOK, first.Code)

		blocked := httptest.NewRecorder()
		handler.ServeHTTP(blocked, reqA)
		require.Equal(t, http.StatusTooManyRequests, blocked.Code)

		other := httptest.NewRecorder()
		reqB := httptest.NewRequest(http.MethodGet, "/", nil)
		reqB.RemoteAddr = "198.51.100.2:1000"
		handler.ServeHTTP(other, reqB)
		assert.Equal(t, http.StatusOK, other.Code)
	})

	t.Run("custom key extractor", func(t *testing.T) {
		t.Parallel()

		handler := middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: newTestLimiter(t, 1, time.Minute),
			KeyExtractor: func(r *http.Request) string {
				return "strict:" + r.Header.Get("X-User")
			},
		})(okHandler())

		for _, user := range []string{"alice", "bob"} {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-User", user)
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User", "alice")
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("refund on success keeps slots for failures only", func(t *testing.T) {
		t.Parallel()

		status := http.StatusUnauthorized
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		handler := middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:         newTestLimiter(t, 2, time.Minute),
			RefundOnSuccess: true,
		})(inner)

		send := func() int {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			req.RemoteAddr = "203.0.113.9:5000"
			handler.ServeHTTP(rec, req)
			return rec.Code
		}

		// Two failed attempts exhaust the limit.
		require.Equal(t, http.StatusUnauthorized, send())
		require.Equal(t, http.StatusUnauthorized, send())
		require.Equal(t, http.StatusTooManyRequests, send())

		// Successful responses refund their slot, so a fresh window of
		// successes never trips the limit.
		other := middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:         newTestLimiter(t, 2, time.Minute),
			RefundOnSuccess: true,
		})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		for range 5 {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			req.RemoteAddr = "203.0.113.9:5000"
			other.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("fails open on store error", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimiter.New(brokenStore{}, ratelimiter.Config{Limit: 1, Window: time.Minute})
		require.NoError(t, err)

		handler := middleware.RateLimit(middleware.RateLimitConfig{Limiter: limiter})(okHandler())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("skip predicate bypasses limiter", func(t *testing.T) {
		t.Parallel()

		handler := middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: newTestLimiter(t, 1, time.Minute),
			Skip:    func(r *http.Request) bool { return r.URL.Path == "/health" },
		})(okHandler())

		for range 10 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("panics without limiter", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			middleware.RateLimit(middleware.RateLimitConfig{})
		})
	})
}

type brokenStore struct{}

func (brokenStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("store unavailable")
}

func (brokenStore) Decr(ctx context.Context, key string) error {
	return errors.New("store unavailable")
}

func (brokenStore) Reset(ctx context.Context, key string) error {
	return errors.New("store unavailable")
}
