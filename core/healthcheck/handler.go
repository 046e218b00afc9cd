// Package healthcheck provides HTTP probe handlers for liveness and
// readiness checks.
package healthcheck

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meaaditiya/portfoliomanager-sub002/core/logger"
)

// Handler creates a health check handler that can serve as both a liveness
// and readiness probe depending on the provided dependency functions.
//
// When no dependency functions are provided, it acts as a liveness probe and
// returns "ALIVE" to indicate the service is running.
//
// When dependency functions are provided, it acts as a readiness probe and
// executes each function in sequence. If all succeed, it returns "READY".
// If any function fails, it logs the error and responds 503.
//
//	mux.Handle("/health/live", healthcheck.Handler(log))
//	mux.Handle("/health/ready", healthcheck.Handler(log,
//		mongo.Healthcheck(client),
//		redis.Healthcheck(redisClient),
//	))
func Handler(log *slog.Logger, fn ...func(context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Liveness probe: no dependency functions supplied.
		if len(fn) == 0 {
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		// Readiness probe: verify all dependency functions succeed.
		for _, f := range fn {
			if err := f(r.Context()); err != nil {
				log.LogAttrs(r.Context(), slog.LevelError, "readiness check failed",
					logger.Component("healthcheck"),
					logger.Error(err))
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		_, _ = w.Write([]byte("READY"))
	})
}
