package lock

import (
	"context"
	"sync"
	"time"
)

// LocalManager is an in-process Manager for tests and single-node deployments.
// TTLs are ignored because a crashed process releases everything anyway.
type LocalManager struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocalManager() *LocalManager {
	return &LocalManager{locks: make(map[string]chan struct{})}
}

func (m *LocalManager) Acquire(ctx context.Context, key string, _ time.Duration) (Lease, error) {
	for {
		m.mu.Lock()

		held, exists := m.locks[key]
		if !exists {
			released := make(chan struct{})
			m.locks[key] = released
			m.mu.Unlock()

			return &localLease{manager: m, key: key, released: released}, nil
		}

		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-held:
		}
	}
}

func (m *LocalManager) Close() error {
	return nil
}

type localLease struct {
	manager  *LocalManager
	key      string
	released chan struct{}
	once     sync.Once
}

func (l *localLease) Release(_ context.Context) error {
	l.once.Do(func() {
		l.manager.mu.Lock()
		delete(l.manager.locks, l.key)
		l.manager.mu.Unlock()
		close(l.released)
	})

	return nil
}
