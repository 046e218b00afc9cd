// Package middleware provides the request-defense pipeline stages: security
// headers, URL and content validation, input sanitization, body limits,
// tiered rate limiting, suspicious-activity detection, request IDs,
// structured logging, and response compression.
//
// Every stage follows the same shape: a Config struct with an optional Skip
// predicate, a constructor that fills defaults, and a
// func(http.Handler) http.Handler it returns. Stages short-circuit with a
// small JSON error body and never leak stack traces; each rejection produces
// exactly one structured WARN log entry with the offending key, path, and
// reason.
package middleware

import (
	"encoding/json"
	"net/http"
)

// Middleware wraps handlers to add cross-cutting functionality.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares around h; the first middleware listed is the
// outermost and therefore runs first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// ErrorBody is the JSON payload of every security rejection.
type ErrorBody struct {
	Error string `json:"error"`
	// RetryAfter is a hint in whole seconds, present on rate-limit rejections.
	RetryAfter int `json:"retryAfter,omitempty"`
}

// WriteError renders a rejection as a small JSON body.
func WriteError(w http.ResponseWriter, status int, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
