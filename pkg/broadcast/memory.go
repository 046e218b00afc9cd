package broadcast

import (
	"context"
	"sync"
)

// MemoryBroadcaster is an in-process Broadcaster implementation. Delivery is
// non-blocking: when a subscriber's buffer is full the message is dropped for
// that subscriber only. Safe for concurrent use; read-heavy broadcasts take a
// read lock while subscription changes take a write lock.
type MemoryBroadcaster[T any] struct {
	mu          sync.RWMutex
	subscribers map[*memorySubscriber[T]]struct{}
	bufferSize  int
	closed      bool
}

// NewMemoryBroadcaster creates a broadcaster whose subscribers each buffer up
// to bufferSize undelivered messages.
func NewMemoryBroadcaster[T any](bufferSize int) *MemoryBroadcaster[T] {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &MemoryBroadcaster[T]{
		subscribers: make(map[*memorySubscriber[T]]struct{}),
		bufferSize:  bufferSize,
	}
}

// Broadcast delivers msg to every active subscriber without blocking.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	for sub := range b.subscribers {
		select {
		case sub.ch <- msg:
		default:
			// Slow consumer: drop rather than block the fan-out.
		}
	}
	return nil
}

// Subscribe registers a new subscriber that is removed automatically when ctx
// is cancelled.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	sub := &memorySubscriber[T]{
		ch:     make(chan Message[T], b.bufferSize),
		parent: b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		sub.closed = true
		return sub
	}
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return sub
}

// Close shuts the broadcaster down and closes all subscriber channels.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for sub := range b.subscribers {
		sub.mu.Lock()
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
		sub.mu.Unlock()
		delete(b.subscribers, sub)
	}
	return nil
}

// SubscriberCount returns the number of active subscriptions.
func (b *MemoryBroadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

type memorySubscriber[T any] struct {
	ch     chan Message[T]
	parent *MemoryBroadcaster[T]

	mu     sync.Mutex
	closed bool
}

// Receive returns the subscriber's message channel. The channel is closed
// when the subscription or the broadcaster closes.
func (s *memorySubscriber[T]) Receive(ctx context.Context) <-chan Message[T] {
	return s.ch
}

// Close removes the subscription. Safe to call more than once.
func (s *memorySubscriber[T]) Close() error {
	s.parent.mu.Lock()
	delete(s.parent.subscribers, s)
	s.parent.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
