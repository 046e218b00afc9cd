// Package presence tracks live site visitors. A visitor is a browser
// session identified by a client-generated session ID; it reports activity
// over HTTP heartbeats or a websocket connection, and counts as live while
// it is active and was heard from within the liveness window.
//
// The Tracker owns the rules (liveness window, stale sweeps, live-count
// broadcasts); the Store persists visitor records. The Mongo-backed store
// is the production implementation, the memory store serves tests and
// local development.
package presence
