package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meaaditiya/portfoliomanager-sub002/middleware"
)

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	t.Run("declared oversize rejected up front", func(t *testing.T) {
		t.Parallel()

		handler := middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{MaxSize: middleware.KB})(okHandler())

		req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(strings.Repeat("a", 2048)))
		req.Header.Set("Content-Length", strconv.Itoa(2048))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "payload too large")
	})

	t.Run("undeclared oversize fails during read", func(t *testing.T) {
		t.Parallel()

		var readErr error
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, readErr = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{MaxSize: 16})(inner)

		req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(strings.Repeat("a", 64)))
		req.Header.Del("Content-Length")
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Error(t, readErr)
	})

	t.Run("body within limit passes", func(t *testing.T) {
		t.Parallel()

		var got string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			got = string(raw)
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.BodyLimit()(inner)

		req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader("hello"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello", got)
	})
}
