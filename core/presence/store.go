package presence

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMissingSessionID is returned when an operation requires a session ID.
	ErrMissingSessionID = errors.New("presence: session id is required")
	// ErrMissingSocketID is returned when a socket-based lookup has no socket ID.
	ErrMissingSocketID = errors.New("presence: socket id is required")
)

// JoinParams carries the request attributes recorded on a visitor heartbeat.
type JoinParams struct {
	SessionID string
	SocketID  string
	IPAddress string
	UserAgent string
	Page      string
}

// Store persists visitor records. Implementations must treat SessionID as
// the unique key: repeated upserts for one session update the existing
// record instead of creating a new visitor.
type Store interface {
	// Upsert records a heartbeat: it reactivates the session, refreshes its
	// request attributes and last activity, and preserves the original
	// first-visit time on existing records.
	Upsert(ctx context.Context, p JoinParams, now time.Time) error

	// Deactivate marks a session inactive. Returns false when no record
	// matched.
	Deactivate(ctx context.Context, sessionID string, now time.Time) (bool, error)

	// DeactivateBySocket marks inactive whatever session currently holds the
	// socket ID. Returns false when no record matched.
	DeactivateBySocket(ctx context.Context, socketID string, now time.Time) (bool, error)

	// DeactivateStale marks inactive every active session whose last
	// activity is before cutoff, returning how many were flipped.
	DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error)

	// LiveCount counts sessions that are active with activity at or after
	// since.
	LiveCount(ctx context.Context, since time.Time) (int64, error)

	// CountSince counts visitors whose first visit is at or after since.
	CountSince(ctx context.Context, since time.Time) (int64, error)

	// Total counts all retained visitor records.
	Total(ctx context.Context) (int64, error)
}
