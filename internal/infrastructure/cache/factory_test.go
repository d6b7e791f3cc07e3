package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Nothing listens on port 1
var unreachable = RedisConfig{Host: "127.0.0.1", Port: 1, DialTimeout: 200 * time.Millisecond}

func TestLeaseFactory_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		lease, err := NewLeaseFactory(unreachable).Create(ctx, BackendMemory)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLease{}, lease)
	})

	t.Run("empty backend defaults to memory", func(t *testing.T) {
		lease, err := NewLeaseFactory(unreachable).Create(ctx, "")
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLease{}, lease)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewLeaseFactory(unreachable).Create(ctx, "etcd")
		assert.ErrorContains(t, err, "unknown lease backend")
	})

	t.Run("redis unavailable falls back", func(t *testing.T) {
		lease, err := NewLeaseFactory(unreachable).Create(ctx, BackendRedis)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLease{}, lease)
	})

	t.Run("redis unavailable without fallback", func(t *testing.T) {
		_, err := NewLeaseFactory(unreachable, WithInMemoryFallback(false)).Create(ctx, BackendRedis)
		assert.ErrorContains(t, err, "redis lease unavailable")
	})
}
