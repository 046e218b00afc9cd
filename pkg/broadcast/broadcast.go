// Package broadcast provides a generic pub/sub messaging system with
// non-blocking delivery: a slow subscriber drops messages instead of
// stalling the broadcaster or its peers. Subscriptions are cleaned up
// automatically when their context is cancelled.
package broadcast

import (
	"context"
	"errors"
)

// Errors for closed resources. Operations on closed resources are safe: the
// in-memory implementation returns nil rather than these, but custom
// implementations may surface them.
var (
	ErrBroadcasterClosed = errors.New("broadcaster closed")
	ErrSubscriberClosed  = errors.New("subscriber closed")
)

// Message wraps broadcast payloads for type-safe delivery.
type Message[T any] struct {
	Data T
}

// Broadcaster sends messages to all current subscribers.
type Broadcaster[T any] interface {
	Broadcast(ctx context.Context, msg Message[T]) error
	Subscribe(ctx context.Context) Subscriber[T]
	Close() error
}

// Subscriber receives broadcast messages until closed.
type Subscriber[T any] interface {
	Receive(ctx context.Context) <-chan Message[T]
	Close() error
}
