package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/meaaditiya/portfoliomanager-sub002/app/api"
	"github.com/meaaditiya/portfoliomanager-sub002/core/config"
	"github.com/meaaditiya/portfoliomanager-sub002/core/logger"
	"github.com/meaaditiya/portfoliomanager-sub002/core/presence"
	"github.com/meaaditiya/portfoliomanager-sub002/core/server"
	"github.com/meaaditiya/portfoliomanager-sub002/integration/database/mongo"
	"github.com/meaaditiya/portfoliomanager-sub002/integration/database/redis"
	"github.com/meaaditiya/portfoliomanager-sub002/middleware"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/ratelimiter"
)

func main() {
	var cfg api.Config
	config.MustLoad(&cfg)

	log := logger.New(cfg.Logger)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("service exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg api.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The visitor store has no fallback: without MongoDB the service cannot
	// do its job, so startup fails instead of limping.
	db, err := mongo.NewWithDatabase(ctx, cfg.Mongo, cfg.DatabaseName)
	if err != nil {
		return err
	}
	defer func() { _ = db.Client().Disconnect(context.WithoutCancel(ctx)) }()

	visitorStore := presence.NewMongoStore(db)
	if err := visitorStore.EnsureIndexes(ctx); err != nil {
		return err
	}

	tracker := presence.NewTracker(visitorStore, cfg.Presence,
		presence.WithTrackerLogger(log))
	defer func() { _ = tracker.Close() }()

	// Rate limit counters prefer Redis so limits hold across instances;
	// without it the in-process store carries them alone.
	memStore := ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(log))
	var counterStore ratelimiter.Store = memStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, rate limits are per-instance", logger.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
			counterStore = ratelimiter.NewFallbackStore(
				ratelimiter.NewRedisStore(redisClient),
				memStore,
				redis.Healthcheck(redisClient),
				ratelimiter.WithFallbackLogger(log),
			)
		}
	}

	tiers, err := api.NewTiers(counterStore, cfg.Limits, log)
	if err != nil {
		return err
	}

	// Redis stays out of readiness on purpose: the limiter degrades to the
	// local store, so a Redis outage must not fail the probe.
	readiness := []func(context.Context) error{
		mongo.Healthcheck(db.Client()),
	}

	suspicion := middleware.NewSuspicionState(
		middleware.WithSuspicionThreshold(cfg.Suspicion.Threshold),
		middleware.WithSuspicionWindow(cfg.Suspicion.Window),
		middleware.WithSuspicionSweepInterval(cfg.Suspicion.SweepInterval),
	)

	app := api.New(cfg, log, tracker, tiers, readiness,
		api.WithSuspicionState(suspicion))

	srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Run(ctx, app.Handler()))
	g.Go(tracker.Run(ctx))
	g.Go(memStore.Run(ctx))
	g.Go(suspicion.Run(ctx))

	log.Info("service started",
		logger.Component("main"),
		slog.String("app", cfg.AppName),
		slog.String("env", cfg.Env),
		slog.String("addr", cfg.Server.Addr))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
