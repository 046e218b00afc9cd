package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Script-content patterns stripped from every string value before it reaches
// application logic.
var (
	scriptTagRegex     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script\s*>`)
	jsSchemeRegex      = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRegex  = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	operatorCharsRegex = regexp.MustCompile(`[$.]`)
)

// SanitizeConfig configures the input sanitization middleware.
type SanitizeConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool

	// MultiValueParams lists query parameters allowed to keep multiple
	// values; all other duplicates collapse to the last value
	// (default: sort, filter, page, limit, fields)
	MultiValueParams []string
}

// Sanitize creates an input sanitization middleware with default configuration.
func Sanitize() Middleware {
	return SanitizeWithConfig(SanitizeConfig{})
}

// SanitizeWithConfig creates an input sanitization middleware with custom
// configuration. It neutralizes injection-operator keys in JSON bodies and
// query parameters, strips script content from string values, and collapses
// polluted duplicate query parameters.
func SanitizeWithConfig(cfg SanitizeConfig) Middleware {
	if cfg.MultiValueParams == nil {
		cfg.MultiValueParams = []string{"sort", "filter", "page", "limit", "fields"}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			sanitizeQuery(r, cfg.MultiValueParams)
			sanitizeJSONBody(r)

			next.ServeHTTP(w, r)
		})
	}
}

// sanitizeQuery rewrites the request's query string in place.
func sanitizeQuery(r *http.Request, multiValue []string) {
	raw := r.URL.Query()
	if len(raw) == 0 {
		return
	}

	clean := make(url.Values, len(raw))
	for key, values := range raw {
		cleanKey := SanitizeKey(key)
		if slices.Contains(multiValue, cleanKey) {
			for _, v := range values {
				clean.Add(cleanKey, StripScripts(v))
			}
			continue
		}
		// Parameter pollution: keep only the last supplied value.
		clean.Set(cleanKey, StripScripts(values[len(values)-1]))
	}

	r.URL.RawQuery = clean.Encode()
}

// sanitizeJSONBody rewrites a JSON request body in place. Bodies that do not
// parse are passed through untouched; the route handler owns that rejection.
func sanitizeJSONBody(r *http.Request) {
	if r.Body == nil || !isJSONRequest(r) {
		return
	}

	raw, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(nil))
		r.ContentLength = 0
		return
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		r.Body = io.NopCloser(bytes.NewReader(raw))
		return
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		r.Body = io.NopCloser(bytes.NewReader(raw))
		return
	}

	clean, err := json.Marshal(sanitizeValue(parsed))
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(raw))
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(clean))
	r.ContentLength = int64(len(clean))
	r.Header.Set("Content-Length", strconv.Itoa(len(clean)))
}

// sanitizeValue walks parsed JSON, defanging operator keys and scripted strings.
func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		clean := make(map[string]any, len(val))
		for k, inner := range val {
			clean[SanitizeKey(k)] = sanitizeValue(inner)
		}
		return clean
	case []any:
		for i, inner := range val {
			val[i] = sanitizeValue(inner)
		}
		return val
	case string:
		return StripScripts(val)
	default:
		return v
	}
}

// SanitizeKey neutralizes query-operator injection by replacing '$' and '.'
// in structured keys with '_'.
func SanitizeKey(key string) string {
	if !strings.ContainsAny(key, "$.") {
		return key
	}
	return operatorCharsRegex.ReplaceAllString(key, "_")
}

// StripScripts removes script tags, javascript: schemes, and inline event
// handlers from a string value.
func StripScripts(s string) string {
	if s == "" {
		return s
	}
	s = scriptTagRegex.ReplaceAllString(s, "")
	s = jsSchemeRegex.ReplaceAllString(s, "")
	s = eventHandlerRegex.ReplaceAllString(s, "")
	return s
}

func isJSONRequest(r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
		return false
	}
	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(strings.ToLower(mediaType)) == "application/json"
}
