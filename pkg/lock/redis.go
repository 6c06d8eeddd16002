package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "caelex:lock:"
	acquireRetry  = 50 * time.Millisecond
	acquireBudget = 5 * time.Second
)

// RedisManager implements Manager on top of Redis SET NX with a TTL. Each
// lease stores a unique token so a lease can only release its own lock.
type RedisManager struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisManager(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", db)

	return &RedisManager{
		client: client,
		logger: logger.With("module", "lock"),
	}, nil
}

func (m *RedisManager) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.New().String()
	redisKey := keyPrefix + key
	deadline := time.Now().Add(acquireBudget)

	for {
		ok, err := m.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %q: %w", key, err)
		}

		if ok {
			return &redisLease{manager: m, key: redisKey, token: token}, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %q: %w", key, ErrNotAcquired)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(acquireRetry):
		}
	}
}

func (m *RedisManager) Close() error {
	return m.client.Close()
}

// releaseScript deletes the key only when the stored token matches, so an
// expired lease cannot release a lock re-acquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLease struct {
	manager *RedisManager
	key     string
	token   string
}

func (l *redisLease) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.manager.client, []string{l.key}, l.token).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock %q: %w", l.key, err)
	}

	return nil
}
