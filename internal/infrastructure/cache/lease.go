package cache

import (
	"context"
	"errors"
	"time"
)

// ErrLeaseNotHeld is returned when releasing a key this holder does not own
var ErrLeaseNotHeld = errors.New("lease not held")

// Lease grants time-bound exclusive ownership of a key.
// Acquire returns false without error when another holder owns the key.
// Ownership lapses after ttl even if Release is never called.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Close() error
}
