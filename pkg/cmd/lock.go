package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/lock"
)

// NewLockManager selects the lock backend from the URL. redis:// addresses
// give distributed locking; an empty URL falls back to in-process locks.
func NewLockManager(ctx context.Context, logger *slog.Logger, redisURL string) lock.Manager {
	if redisURL == "" {
		return lock.NewLocalManager()
	}

	addr := strings.TrimPrefix(redisURL, "redis://")

	manager, err := lock.NewRedisManager(ctx, addr, "", 0, logger)
	if err != nil {
		panic(fmt.Errorf("failed to initialize Redis lock manager: %w", err))
	}

	return manager
}
