package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeLocker struct {
	mu         sync.Mutex
	held       map[string]bool
	acquireErr error
	releases   int
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: make(map[string]bool)} }

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releases++
	delete(l.held, key)
	return nil
}

func TestExclusiveTask_RunsAndReleases(t *testing.T) {
	locker := newFakeLocker()
	task := &countingTask{err: errors.New("boom")}
	exclusive := Exclusive(task, locker, time.Hour, zap.NewNop())

	assert.Equal(t, "expiry_scan", exclusive.Name())
	assert.EqualError(t, exclusive.Run(context.Background()), "boom")
	assert.Equal(t, 1, task.Calls())
	assert.Equal(t, 1, locker.releases)
	assert.Empty(t, locker.held)
}

func TestExclusiveTask_SkipsWhenHeld(t *testing.T) {
	locker := newFakeLocker()
	locker.held["expiry_scan"] = true
	core, logs := observer.New(zapcore.InfoLevel)
	task := &countingTask{}

	require.NoError(t, Exclusive(task, locker, time.Hour, zap.New(core)).Run(context.Background()))
	assert.Zero(t, task.Calls())
	assert.Zero(t, locker.releases)
	assert.Equal(t, 1, logs.FilterMessage("Run skipped, lease held by another instance").Len())
}

func TestExclusiveTask_AcquireError(t *testing.T) {
	locker := newFakeLocker()
	locker.acquireErr = errors.New("redis down")
	task := &countingTask{}

	err := Exclusive(task, locker, time.Hour, zap.NewNop()).Run(context.Background())
	assert.ErrorContains(t, err, "redis down")
	assert.Zero(t, task.Calls())
}

func TestExclusiveTask_ReleasesAfterCancellation(t *testing.T) {
	locker := newFakeLocker()
	task := &countingTask{block: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Exclusive(task, locker, time.Hour, zap.NewNop()).Run(ctx) }()
	require.Eventually(t, func() bool { return task.Calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, locker.releases)
}
