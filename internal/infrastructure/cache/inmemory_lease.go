package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryLease implements Lease with a process-local map.
// Suitable for single-instance deployments and tests.
type InMemoryLease struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	now     func() time.Time
}

// NewInMemoryLease creates an empty in-memory lease table
func NewInMemoryLease() *InMemoryLease {
	return &InMemoryLease{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Acquire takes the key if it is free or its previous holder's ttl has elapsed
func (l *InMemoryLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiresAt, held := l.entries[key]; held && now.Before(expiresAt) {
		return false, nil
	}
	l.entries[key] = now.Add(ttl)
	l.cleanupLocked(now)
	return true, nil
}

// Release frees the key. Releasing an expired or unknown key returns ErrLeaseNotHeld.
func (l *InMemoryLease) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiresAt, held := l.entries[key]
	delete(l.entries, key)
	if !held || !l.now().Before(expiresAt) {
		return ErrLeaseNotHeld
	}
	return nil
}

// Close drops every entry
func (l *InMemoryLease) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]time.Time)
	return nil
}

// Size returns the number of live entries
func (l *InMemoryLease) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanupLocked(l.now())
	return len(l.entries)
}

func (l *InMemoryLease) cleanupLocked(now time.Time) {
	for key, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, key)
		}
	}
}

var _ Lease = (*InMemoryLease)(nil)
