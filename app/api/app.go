// Package api assembles the public HTTP surface: the request-defense
// pipeline, visitor presence endpoints, the live-visitor websocket, and
// health probes. Domain routers mount under /api and inherit the full
// pipeline.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/meaaditiya/portfoliomanager-sub002/core/healthcheck"
	"github.com/meaaditiya/portfoliomanager-sub002/core/presence"
	"github.com/meaaditiya/portfoliomanager-sub002/middleware"
)

// App owns the HTTP handler tree. Construct it with New, mount any domain
// routers, then serve Handler().
type App struct {
	cfg       Config
	logger    *slog.Logger
	tracker   *presence.Tracker
	tiers     *Tiers
	suspicion *middleware.SuspicionState
	apiRouter chi.Router
	handler   http.Handler
}

// Option configures optional App collaborators.
type Option func(*App)

// WithSuspicionState overrides the default burst-abuse detector, usually to
// share the instance whose sweep loop the caller runs.
func WithSuspicionState(state *middleware.SuspicionState) Option {
	return func(a *App) {
		if state != nil {
			a.suspicion = state
		}
	}
}

// New assembles the application around its collaborators. Readiness checks
// are exposed at /health/ready; /health/live always answers while the
// process is up.
func New(cfg Config, log *slog.Logger, tracker *presence.Tracker, tiers *Tiers,
	readiness []func(context.Context) error, opts ...Option) *App {

	a := &App{
		cfg:     cfg,
		logger:  log,
		tracker: tracker,
		tiers:   tiers,
		suspicion: middleware.NewSuspicionState(
			middleware.WithSuspicionThreshold(cfg.Suspicion.Threshold),
			middleware.WithSuspicionWindow(cfg.Suspicion.Window),
			middleware.WithSuspicionSweepInterval(cfg.Suspicion.SweepInterval),
		),
	}
	for _, opt := range opts {
		opt(a)
	}

	root := chi.NewRouter()
	root.Method(http.MethodGet, "/health/live", healthcheck.Handler(log))
	root.Method(http.MethodGet, "/health/ready", healthcheck.Handler(log, readiness...))

	// The presence socket lives outside /api: one long-lived upgrade per
	// visitor should not draw down the API tier's budget.
	root.Get("/ws", a.serveWS)

	root.Route("/api", func(r chi.Router) {
		r.Use(tiers.API)
		a.apiRouter = r

		r.Route("/visitors", func(r chi.Router) {
			r.Post("/track", a.trackVisitor)
			r.Post("/leave", a.leaveVisitor)
			r.Get("/stats/all", a.visitorStats)
		})
	})

	securityCfg := middleware.StrictSecurity
	if cfg.IsDevelopment() {
		securityCfg = middleware.DevelopmentSecurity
	}

	// Ordering is deliberate: identity and logging wrap everything, the
	// cheap screens reject garbage before any body is touched, and the
	// rate tiers run last so rejected requests still get logged with
	// security headers applied.
	a.handler = middleware.Chain(root,
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger: log,
			Skip:   skipHealth,
		}),
		middleware.SecurityHeadersWithConfig(securityCfg),
		middleware.Compress(),
		middleware.ValidateWithConfig(middleware.ValidateConfig{
			RequireContentType: true,
			Logger:             log,
		}),
		middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			MaxSize: cfg.MaxBodySize,
			Logger:  log,
		}),
		middleware.Sanitize(),
		middleware.SuspiciousActivity(middleware.SuspiciousActivityConfig{
			State:     a.suspicion,
			Allowlist: cfg.IPAllowlist,
			Logger:    log,
		}),
		tiers.Public,
		tiers.General,
		tiers.Burst,
	)

	return a
}

// Handler returns the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Suspicion returns the burst-abuse detector so the caller can run its
// sweep loop.
func (a *App) Suspicion() *middleware.SuspicionState {
	return a.suspicion
}

// Mount attaches a domain router under /api. The mounted handler inherits
// the defense pipeline and the API tier; apply Tiers.Strict, Tiers.Auth, or
// Tiers.Upload inside the subtree where needed.
func (a *App) Mount(pattern string, h http.Handler) {
	a.apiRouter.Mount(pattern, h)
}

func skipHealth(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/health")
}
