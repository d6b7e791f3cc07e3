package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Locker grants time-bound exclusive ownership of a key.
// Satisfied by cache.Lease.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// ExclusiveTask runs the wrapped task only while holding a lease on its name,
// so instances sharing a Locker never run it concurrently.
// A run whose lease is held elsewhere is skipped and counts as success.
type ExclusiveTask struct {
	task   Task
	locker Locker
	ttl    time.Duration
	logger *zap.Logger
}

// Exclusive wraps task. ttl bounds how long a crashed holder blocks others and
// should exceed the task's run timeout.
func Exclusive(task Task, locker Locker, ttl time.Duration, log *zap.Logger) *ExclusiveTask {
	return &ExclusiveTask{task: task, locker: locker, ttl: ttl, logger: log}
}

// Name returns the wrapped task's name
func (e *ExclusiveTask) Name() string { return e.task.Name() }

// Run acquires the lease, runs the task and releases the lease
func (e *ExclusiveTask) Run(ctx context.Context) error {
	key := e.task.Name()
	ok, err := e.locker.Acquire(ctx, key, e.ttl)
	if err != nil {
		return fmt.Errorf("acquire lease for %s: %w", key, err)
	}
	if !ok {
		e.logger.Info("Run skipped, lease held by another instance", zap.String("task", key))
		return nil
	}

	defer func() {
		// The run context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := e.locker.Release(releaseCtx, key); err != nil {
			e.logger.Warn("Failed to release lease", zap.String("task", key), zap.Error(err))
		}
	}()
	return e.task.Run(ctx)
}

var _ Task = (*ExclusiveTask)(nil)
