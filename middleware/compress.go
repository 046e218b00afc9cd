package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// Compress returns a middleware that transparently gzips responses for
// clients that accept it. Small responses and already-compressed content
// types are left untouched by the underlying handler.
func Compress() Middleware {
	return func(next http.Handler) http.Handler {
		return gzhttp.GzipHandler(next)
	}
}
