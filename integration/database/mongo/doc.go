// Package mongo provides MongoDB client initialization and health checking
// for the visitor store.
//
// New wraps the official MongoDB Go driver with application-level retry
// logic for cloud deployments, particularly MongoDB Atlas: cold starts and
// brief network interruptions during startup are retried instead of failing
// the process. The connection is verified with a ping before either
// constructor returns.
//
//	var cfg mongo.Config
//	if err := env.Parse(&cfg); err != nil {
//		log.Fatal(err)
//	}
//	db, err := mongo.NewWithDatabase(ctx, cfg, "portfolio")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Configuration comes from environment variables:
//
//	MONGODB_URL                 (required)
//	MONGODB_CONNECT_TIMEOUT     (default: 10s)
//	MONGODB_MAX_POOL_SIZE       (default: 100)
//	MONGODB_MIN_POOL_SIZE       (default: 1)
//	MONGODB_MAX_CONN_IDLE_TIME  (default: 300s)
//	MONGODB_RETRY_WRITES        (default: true)
//	MONGODB_RETRY_READS         (default: true)
//	MONGODB_RETRY_ATTEMPTS      (default: 3)
//	MONGODB_RETRY_INTERVAL      (default: 5s)
//
// Healthcheck returns a ping function for readiness probes.
package mongo
