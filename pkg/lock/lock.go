// Package lock provides per-instance mutual exclusion so that concurrent
// mutations of the same workflow instance are serialized.
package lock

import (
	"context"
	"errors"
	"time"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Lease represents a held lock. Release is safe to call once.
type Lease interface {
	Release(ctx context.Context) error
}

// Manager acquires exclusive leases keyed by instance id.
type Manager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
	Close() error
}
