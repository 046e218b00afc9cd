// Package redis provides Redis client initialization and health checking
// for the shared rate-limit counters.
//
// Connect validates the connection URL, dials with retry logic to ride out
// transient network issues, and verifies connectivity with a ping before
// returning the client. Redis is optional in this deployment: an empty
// REDIS_URL means the rate limiter runs on its in-process store instead,
// so the Config does not mark the URL as required.
//
//	var cfg redis.Config
//	if err := env.Parse(&cfg); err != nil {
//		log.Fatal(err)
//	}
//	if cfg.Enabled() {
//		client, err := redis.Connect(ctx, cfg)
//		...
//	}
//
// Both redis:// and rediss:// (TLS) URL schemes are supported. Healthcheck
// returns a ping function suitable for readiness probes.
package redis
