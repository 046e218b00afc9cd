package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meaaditiya/portfoliomanager-sub002/middleware"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	handler := middleware.Validate()(okHandler())

	t.Run("clean request passes", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts?page=2&limit=10", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("oversized url rejected", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		long := "/api/posts?q=" + strings.Repeat("a", 2100)
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, long, nil))

		require.Equal(t, http.StatusRequestURITooLong, rec.Code)
	})

	t.Run("attack signatures rejected", func(t *testing.T) {
		t.Parallel()

		urls := []string{
			"/api/posts?q=%3Cscript%3Ealert(1)%3C/script%3E",
			"/api/posts?redirect=javascript:alert(1)",
			"/api/posts?x=%22%20onerror%3Dalert(1)",
			"/api/files/../../etc/passwd",
			"/api/posts?q=%00",
		}
		for _, target := range urls {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			require.Equal(t, http.StatusBadRequest, rec.Code, "url %q should be rejected", target)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Invalid request", body["error"], "rejection must not echo the payload")
		}
	})

	t.Run("mutating request without content type rejected", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/visitors/track", strings.NewReader(`{}`))
		req.Header.Del("Content-Type")
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get without content type passes", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("custom max url length", func(t *testing.T) {
		t.Parallel()

		short := middleware.ValidateWithConfig(middleware.ValidateConfig{MaxURLLength: 32})(okHandler())
		rec := httptest.NewRecorder()
		short.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts?q="+strings.Repeat("b", 40), nil))

		assert.Equal(t, http.StatusRequestURITooLong, rec.Code)
	})
}
