package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still carries this holder's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	DialTimeout time.Duration
}

// RedisLease implements Lease with SET NX PX, shared by every instance
// pointing at the same Redis
type RedisLease struct {
	client    *redis.Client
	keyPrefix string
	token     string
}

// NewRedisLease connects to Redis and verifies the connection
func NewRedisLease(ctx context.Context, cfg RedisConfig) (*RedisLease, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisLeaseWithClient(client, ""), nil
}

// NewRedisLeaseWithClient wraps an existing client
func NewRedisLeaseWithClient(client *redis.Client, keyPrefix string) *RedisLease {
	if keyPrefix == "" {
		keyPrefix = "pharmacy:lease:"
	}
	return &RedisLease{
		client:    client,
		keyPrefix: keyPrefix,
		token:     uuid.NewString(),
	}
}

// Acquire sets the key to this holder's token if it does not exist
func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %q: %w", key, err)
	}
	return ok, nil
}

// Release deletes the key if this holder still owns it
func (l *RedisLease) Release(ctx context.Context, key string) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lease %q: %w", key, err)
	}
	if deleted == 0 {
		return ErrLeaseNotHeld
	}
	return nil
}

// Close closes the Redis client
func (l *RedisLease) Close() error {
	return l.client.Close()
}

var _ Lease = (*RedisLease)(nil)
