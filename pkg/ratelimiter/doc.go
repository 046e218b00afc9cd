// Package ratelimiter provides fixed-window rate limiting with pluggable
// storage backends.
//
// A Limiter counts requests per key within a fixed time window and rejects
// requests once the configured maximum is reached. The window resets when it
// expires; the retry hint returned to rejected clients is the remaining
// window duration rounded up to whole seconds.
//
// # Core Types
//
// Limiter checks a key against its Config and returns a Result:
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, err := ratelimiter.New(store, ratelimiter.Config{
//		Limit:  100,
//		Window: 15 * time.Minute,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := limiter.Allow(ctx, "203.0.113.7")
//	if err != nil {
//		// storage failure; see FallbackStore
//	}
//	if !result.Allowed() {
//		// reject with result.RetryAfter()
//	}
//
// # Storage Backends
//
// Three Store implementations are provided:
//
//   - MemoryStore: process-local map with background stale-window cleanup.
//     Correct for a single instance only; counts are not shared.
//   - RedisStore: shared atomic counters (Lua INCR+PEXPIRE), correct across
//     horizontally scaled instances.
//   - FallbackStore: serves from a primary (Redis) store while it is
//     reachable and degrades to a local store on connection failure, so a
//     Redis outage never fails requests. Reconnection is probed with capped
//     exponential backoff.
//
// # Key Selection
//
// Keys identify the client being limited: an IP address, "burst:"+IP for a
// secondary tier over the same client, a user ID, or an email address for
// authentication endpoints. Distinct tiers must use distinct key prefixes so
// their windows do not collide in a shared store.
package ratelimiter
