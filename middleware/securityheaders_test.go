package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meaaditiya/portfoliomanager-sub002/middleware"
)

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	t.Run("strict defaults", func(t *testing.T) {
		t.Parallel()

		handler := middleware.SecurityHeaders()(okHandler())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "0", rec.Header().Get("X-XSS-Protection"))
		assert.Equal(t, "max-age=63072000; includeSubDomains; preload", rec.Header().Get("Strict-Transport-Security"))
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
		assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
		assert.Equal(t, "geolocation=(), microphone=(), camera=()", rec.Header().Get("Permissions-Policy"))
	})

	t.Run("removes disclosure headers", func(t *testing.T) {
		t.Parallel()

		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.SecurityHeaders()(inner)
		rec := httptest.NewRecorder()
		rec.Header().Set("X-Powered-By", "Express")
		rec.Header().Set("Server", "nginx")
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Empty(t, rec.Header().Get("X-Powered-By"))
		assert.Empty(t, rec.Header().Get("Server"))
	})

	t.Run("development drops HSTS", func(t *testing.T) {
		t.Parallel()

		handler := middleware.SecurityHeadersWithConfig(middleware.DevelopmentSecurity)(okHandler())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		cfg := middleware.StrictSecurity
		cfg.CustomHeaders = map[string]string{"X-Custom-Security": "enabled"}
		handler := middleware.SecurityHeadersWithConfig(cfg)(okHandler())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "enabled", rec.Header().Get("X-Custom-Security"))
	})

	t.Run("skip predicate", func(t *testing.T) {
		t.Parallel()

		cfg := middleware.StrictSecurity
		cfg.Skip = func(r *http.Request) bool { return r.URL.Path == "/internal" }
		handler := middleware.SecurityHeadersWithConfig(cfg)(okHandler())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal", nil))

		assert.Empty(t, rec.Header().Get("X-Frame-Options"))
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
