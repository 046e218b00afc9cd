package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration with environment variable support.
type Config struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"APP_ENV" envDefault:"development"`

	// File output. Records are JSON, split into an error-only stream and a
	// combined stream, both size-rotated.
	Dir        string `env:"LOG_DIR" envDefault:"logs"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"5"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`

	// Console mirrors records to stderr in text format. Ignored in production.
	Console bool `env:"LOG_TO_CONSOLE" envDefault:"true"`
}

// New builds a slog.Logger that writes JSON records to size-rotated files:
// error.log receives error-level records only, combined.log receives
// everything at or above the configured level. Outside production the
// records are mirrored to stderr as human-readable text.
func New(cfg Config) *slog.Logger {
	level := ParseLevel(cfg.Level)

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 5
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	if cfg.Dir == "" {
		cfg.Dir = "logs"
	}

	handlers := []slog.Handler{
		slog.NewJSONHandler(rotatedFile(cfg, "combined.log"), &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(rotatedFile(cfg, "error.log"), &slog.HandlerOptions{Level: slog.LevelError}),
	}

	if cfg.Console && !strings.EqualFold(cfg.Environment, "production") {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(NewFanoutHandler(handlers...))
}

// NewDiscard returns a logger that drops everything. Useful as a test default.
func NewDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func rotatedFile(cfg Config, name string) io.Writer {
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   false,
	}
}
