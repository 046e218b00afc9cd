package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local development. It does
// not expire records; retention is the Mongo TTL index's job.
type MemoryStore struct {
	mu       sync.RWMutex
	visitors map[string]*Visitor
}

// NewMemoryStore creates an empty in-memory visitor store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{visitors: make(map[string]*Visitor)}
}

func (ms *MemoryStore) Upsert(ctx context.Context, p JoinParams, now time.Time) error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	v, ok := ms.visitors[p.SessionID]
	if !ok {
		// Address and agent are captured at first contact only, matching
		// the Mongo store's $setOnInsert.
		v = &Visitor{
			SessionID:  p.SessionID,
			IPAddress:  p.IPAddress,
			UserAgent:  p.UserAgent,
			FirstVisit: now,
		}
		ms.visitors[p.SessionID] = v
	}
	v.SocketID = p.SocketID
	v.Page = p.Page
	v.IsActive = true
	v.LastActivity = now

	return nil
}

func (ms *MemoryStore) Deactivate(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	if sessionID == "" {
		return false, ErrMissingSessionID
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	v, ok := ms.visitors[sessionID]
	if !ok {
		return false, nil
	}
	v.SocketID = ""
	v.IsActive = false
	v.LastActivity = now
	return true, nil
}

func (ms *MemoryStore) DeactivateBySocket(ctx context.Context, socketID string, now time.Time) (bool, error) {
	if socketID == "" {
		return false, ErrMissingSocketID
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, v := range ms.visitors {
		if v.SocketID == socketID {
			v.SocketID = ""
			v.IsActive = false
			v.LastActivity = now
			return true, nil
		}
	}
	return false, nil
}

func (ms *MemoryStore) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var flipped int64
	for _, v := range ms.visitors {
		if v.IsActive && v.LastActivity.Before(cutoff) {
			v.SocketID = ""
			v.IsActive = false
			flipped++
		}
	}
	return flipped, nil
}

func (ms *MemoryStore) LiveCount(ctx context.Context, since time.Time) (int64, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var count int64
	for _, v := range ms.visitors {
		if v.IsActive && !v.LastActivity.Before(since) {
			count++
		}
	}
	return count, nil
}

func (ms *MemoryStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var count int64
	for _, v := range ms.visitors {
		if !v.FirstVisit.Before(since) {
			count++
		}
	}
	return count, nil
}

func (ms *MemoryStore) Total(ctx context.Context) (int64, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return int64(len(ms.visitors)), nil
}

// Get returns a copy of the visitor record for a session, for tests.
func (ms *MemoryStore) Get(sessionID string) (Visitor, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	v, ok := ms.visitors[sessionID]
	if !ok {
		return Visitor{}, false
	}
	return *v, true
}
