package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meaaditiya/portfoliomanager-sub002/middleware"
)

func TestSanitizeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"plain key", "email", "email"},
		{"operator prefix", "$ne", "_ne"},
		{"dotted path", "profile.role", "profile_role"},
		{"mixed", "$where.this", "_where_this"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, middleware.SanitizeKey(tt.key))
		})
	}
}

func TestStripScripts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello ", middleware.StripScripts("hello <script>alert(1)</script>"))
	assert.Equal(t, "alert(1)", middleware.StripScripts("JavaScript:alert(1)"))
	assert.Equal(t, `<img src=x "alert(1)">`, middleware.StripScripts(`<img src=x onerror="alert(1)">`))
	assert.Equal(t, "plain text", middleware.StripScripts("plain text"))
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	t.Run("operator key in body is defanged", func(t *testing.T) {
		t.Parallel()

		var got map[string]any
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.Sanitize()(inner)

		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":{"$ne":null},"password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		email, ok := got["email"].(map[string]any)
		require.True(t, ok)
		assert.NotContains(t, email, "$ne")
		assert.Contains(t, email, "_ne")
		assert.Equal(t, "x", got["password"])
	})

	t.Run("nested arrays and strings", func(t *testing.T) {
		t.Parallel()

		var got map[string]any
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.Sanitize()(inner)

		body := `{"tags":["go","<script>x</script>infra"],"meta":{"a.b":{"$gt":1}}}`
		req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		tags, ok := got["tags"].([]any)
		require.True(t, ok)
		assert.Equal(t, "infra", tags[1])
		meta, ok := got["meta"].(map[string]any)
		require.True(t, ok)
		inner2, ok := meta["a_b"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, inner2, "_gt")
	})

	t.Run("unparseable body passes through", func(t *testing.T) {
		t.Parallel()

		var got string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			got = string(raw)
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.Sanitize()(inner)

		req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{not json`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, `{not json`, got)
	})

	t.Run("duplicate query params collapse to last value", func(t *testing.T) {
		t.Parallel()

		var got string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Query().Get("id")
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.Sanitize()(inner)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts?id=1&id=2&id=3", nil))

		assert.Equal(t, "3", got)
	})

	t.Run("multi-value params keep all values", func(t *testing.T) {
		t.Parallel()

		var got []string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Query()["sort"]
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.Sanitize()(inner)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts?sort=date&sort=title", nil))

		assert.Equal(t, []string{"date", "title"}, got)
	})

	t.Run("operator query key is defanged", func(t *testing.T) {
		t.Parallel()

		var keys []string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k := range r.URL.Query() {
				keys = append(keys, k)
			}
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.Sanitize()(inner)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts?%24where=1", nil))

		assert.Contains(t, keys, "_where")
		assert.NotContains(t, keys, "$where")
	})

	t.Run("non-json body untouched", func(t *testing.T) {
		t.Parallel()

		var got string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			got = string(raw)
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.Sanitize()(inner)

		req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("$ne=1"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "$ne=1", got)
	})
}
