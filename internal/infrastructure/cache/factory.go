package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Lease backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// LeaseFactory creates leases based on configuration
type LeaseFactory struct {
	redisConfig           RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LeaseFactoryOption is a functional option for configuring the factory
type LeaseFactoryOption func(*LeaseFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LeaseFactoryOption {
	return func(f *LeaseFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to the
// in-memory lease. Default is true.
func WithInMemoryFallback(allow bool) LeaseFactoryOption {
	return func(f *LeaseFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLeaseFactory creates a new factory
func NewLeaseFactory(cfg RedisConfig, opts ...LeaseFactoryOption) *LeaseFactory {
	f := &LeaseFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the lease for backend
func (f *LeaseFactory) Create(ctx context.Context, backend string) (Lease, error) {
	switch backend {
	case "", BackendMemory:
		return NewInMemoryLease(), nil
	case BackendRedis:
	default:
		return nil, fmt.Errorf("unknown lease backend %q", backend)
	}

	lease, err := NewRedisLease(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis lease",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
		)
		return lease, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis lease unavailable: %w", err)
	}

	// Another instance may run the same task concurrently
	f.logger.Warn("Redis unavailable, falling back to in-memory lease", zap.Error(err))
	return NewInMemoryLease(), nil
}
