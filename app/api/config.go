package api

import (
	"time"

	"github.com/meaaditiya/portfoliomanager-sub002/core/logger"
	"github.com/meaaditiya/portfoliomanager-sub002/core/presence"
	"github.com/meaaditiya/portfoliomanager-sub002/core/server"
	"github.com/meaaditiya/portfoliomanager-sub002/integration/database/mongo"
	"github.com/meaaditiya/portfoliomanager-sub002/integration/database/redis"
)

// LimitsConfig holds the per-tier rate limit knobs. Every tier is a fixed
// window keyed by client IP unless its middleware supplies another key.
type LimitsConfig struct {
	GeneralLimit  int           `env:"RATE_LIMIT_GENERAL" envDefault:"100"`
	GeneralWindow time.Duration `env:"RATE_LIMIT_GENERAL_WINDOW" envDefault:"15m"`

	BurstLimit  int           `env:"RATE_LIMIT_BURST" envDefault:"150"`
	BurstWindow time.Duration `env:"RATE_LIMIT_BURST_WINDOW" envDefault:"60s"`

	APILimit  int           `env:"RATE_LIMIT_API" envDefault:"300"`
	APIWindow time.Duration `env:"RATE_LIMIT_API_WINDOW" envDefault:"15m"`

	StrictLimit  int           `env:"RATE_LIMIT_STRICT" envDefault:"30"`
	StrictWindow time.Duration `env:"RATE_LIMIT_STRICT_WINDOW" envDefault:"15m"`

	AuthLimit  int           `env:"RATE_LIMIT_AUTH" envDefault:"5"`
	AuthWindow time.Duration `env:"RATE_LIMIT_AUTH_WINDOW" envDefault:"15m"`

	PublicLimit  int           `env:"RATE_LIMIT_PUBLIC" envDefault:"500"`
	PublicWindow time.Duration `env:"RATE_LIMIT_PUBLIC_WINDOW" envDefault:"15m"`

	UploadLimit  int           `env:"RATE_LIMIT_UPLOAD" envDefault:"20"`
	UploadWindow time.Duration `env:"RATE_LIMIT_UPLOAD_WINDOW" envDefault:"60m"`
}

// SuspicionConfig holds the burst-abuse detector knobs.
type SuspicionConfig struct {
	Threshold     int           `env:"SUSPICION_THRESHOLD" envDefault:"100"`
	Window        time.Duration `env:"SUSPICION_WINDOW" envDefault:"1m"`
	SweepInterval time.Duration `env:"SUSPICION_SWEEP_INTERVAL" envDefault:"5m"`
}

// Config aggregates all application settings, loaded from environment
// variables in one pass.
type Config struct {
	Mongo     mongo.Config
	Redis     redis.Config
	Server    server.Config
	Logger    logger.Config
	Presence  presence.TrackerConfig
	Limits    LimitsConfig
	Suspicion SuspicionConfig

	AppName      string `env:"APP_NAME" envDefault:"portfolio-api"`
	Env          string `env:"APP_ENV" envDefault:"development"`
	DatabaseName string `env:"MONGODB_DATABASE" envDefault:"portfolio"`

	// IPAllowlist bypasses suspicious-activity detection for trusted
	// addresses (monitoring agents, office egress IPs).
	IPAllowlist []string `env:"IP_ALLOWLIST" envSeparator:","`

	// MaxBodySize caps request bodies in bytes (default 10MB).
	MaxBodySize int64 `env:"MAX_BODY_SIZE" envDefault:"10485760"`
}

// IsDevelopment reports whether the app runs in a local environment.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}
