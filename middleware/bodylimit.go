package middleware

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/meaaditiya/portfoliomanager-sub002/core/logger"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/clientip"
)

// Common size constants for convenience.
const (
	// KB represents 1 kilobyte
	KB int64 = 1024
	// MB represents 1 megabyte
	MB = 1024 * KB
)

// BodyLimitConfig configures the request body limit middleware.
type BodyLimitConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool

	// MaxSize is the maximum allowed size in bytes (default: 10MB)
	MaxSize int64

	// Logger records rejected requests (default: discard)
	Logger *slog.Logger
}

// BodyLimit creates a body limit middleware with the default 10MB cap.
func BodyLimit() Middleware {
	return BodyLimitWithConfig(BodyLimitConfig{})
}

// BodyLimitWithConfig creates a body limit middleware with custom
// configuration. Requests whose declared Content-Length exceeds the cap are
// rejected up front with 413; bodies without a declared length are wrapped in
// a limited reader so downstream decoding fails once the cap is crossed.
func BodyLimitWithConfig(cfg BodyLimitConfig) Middleware {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10 * MB
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

			if contentLengthStr := r.Header.Get("Content-Length"); contentLengthStr != "" {
				contentLength, err := strconv.ParseInt(contentLengthStr, 10, 64)
				if err == nil && contentLength > cfg.MaxSize {
					cfg.Logger.LogAttrs(r.Context(), slog.LevelWarn, "request body rejected",
						logger.Component("security"),
						logger.ClientIP(clientip.GetIP(r)),
						logger.Path(r.URL.Path),
						logger.Reason("payload too large"),
						slog.Int64("content_length", contentLength))
					WriteError(w, http.StatusRequestEntityTooLarge, ErrorBody{
						Error: fmt.Sprintf("Request payload too large. Maximum allowed: %d bytes", cfg.MaxSize),
					})
					return
				}
			}

			if r.Body != nil {
				r.Body = &limitedReader{reader: r.Body, limit: cfg.MaxSize}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limitedReader wraps an io.ReadCloser to enforce a size limit during reads.
type limitedReader struct {
	reader io.ReadCloser
	limit  int64
	read   int64
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.read >= lr.limit {
		// A body of exactly the limit is still within bounds; only fail
		// when more bytes actually follow.
		var probe [1]byte
		if n, err := lr.reader.Read(probe[:]); n == 0 && err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("request body size exceeds limit of %d bytes", lr.limit)
	}

	remaining := lr.limit - lr.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := lr.reader.Read(p)
	lr.read += int64(n)
	return n, err
}

func (lr *limitedReader) Close() error {
	return lr.reader.Close()
}
