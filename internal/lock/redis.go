package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Compile-time check that Redis implements Locker.
var _ Locker = (*Redis)(nil)

const (
	keyPrefix      = "vidrpy:upload-lock:"
	releaseTimeout = 5 * time.Second
)

// releaseScript deletes the key only if it still carries our token, so an
// expired lock taken over by another holder is never released by us.
var releaseScript = goredis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a redis client for the locker.
func NewRedisClient(cfg RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Redis is a Locker shared by every process talking to the same redis.
// Locks expire after ttl so a crashed holder cannot block an asset forever.
type Redis struct {
	client *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis creates a redis-backed locker.
func NewRedis(client *goredis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Acquire sets the lock key with SET NX PX and a random token.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(rctx, r.client, []string{k}, token).Err(); err != nil {
				r.logger.Error("failed to release lock",
					slog.String("lock_key", k),
					slog.String("error", err.Error()),
				)
			}
		})
	}, nil
}
