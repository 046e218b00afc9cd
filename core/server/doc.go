// Package server provides an HTTP server with graceful shutdown,
// configurable options, and production-ready defaults. It wraps the
// standard http.Server for reliable lifecycle management.
//
// The server is plain HTTP: TLS terminates at the edge proxy, and the
// security headers middleware enforces HTTPS at the browser via HSTS.
//
// Basic usage:
//
//	srv := server.New(":8080",
//		server.WithShutdownTimeout(60*time.Second),
//		server.WithLogger(logger),
//	)
//	if err := srv.Start(ctx, handler); err != nil {
//		log.Fatal(err)
//	}
//
// For coordinated lifecycle management with other background workers, Run
// returns an errgroup-compatible function that starts the server and shuts
// it down gracefully when the context is cancelled:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, handler))
//	g.Go(tracker.Run(ctx))
//	if err := g.Wait(); err != nil {
//		log.Fatal(err)
//	}
//
// Defaults: 15s read/write timeouts, 60s idle timeout, 1MB header cap, 30s
// graceful shutdown. All methods are safe for concurrent use.
package server
