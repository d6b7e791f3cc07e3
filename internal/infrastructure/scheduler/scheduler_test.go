package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.stopped.Store(true) }

func (t *manualTicker) tick() { t.ch <- time.Now() }

type countingTask struct {
	mu     sync.Mutex
	calls  int
	runIDs []string
	err    error
	block  chan struct{}
}

func (c *countingTask) Name() string { return "expiry_scan" }

func (c *countingTask) Run(ctx context.Context) error {
	c.mu.Lock()
	c.calls++
	c.runIDs = append(c.runIDs, logger.GetRunID(ctx))
	block := c.block
	err := c.err
	c.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (c *countingTask) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestScheduler(t *testing.T, cfg Config, task Task, log *zap.Logger) (*IntervalScheduler, *manualTicker) {
	t.Helper()
	ticker := newManualTicker()
	s, err := NewIntervalScheduler(cfg, task, log, WithTicker(func(time.Duration) Ticker { return ticker }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s, ticker
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{Interval: time.Hour}.Validate())
	assert.ErrorIs(t, Config{}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{Interval: time.Hour, Timeout: -1}.Validate(), ErrInvalidConfig)

	_, err := NewIntervalScheduler(Config{}, &countingTask{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestIntervalScheduler_RunsOnStartupAndTicks(t *testing.T) {
	task := &countingTask{}
	s, ticker := newTestScheduler(t, Config{Interval: time.Hour, RunOnStartup: true}, task, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	testutil.RequireEventually(t, func() bool { return s.RunCount() == 1 }, time.Second)

	ticker.tick()
	testutil.RequireEventually(t, func() bool { return s.RunCount() == 2 }, time.Second)

	last := s.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, "interval", last.Trigger)
	assert.Equal(t, RunStatusSuccess, last.Status)
	assert.NotNil(t, last.CompletedAt)

	task.mu.Lock()
	assert.NotEmpty(t, task.runIDs[0])
	assert.NotEqual(t, task.runIDs[0], task.runIDs[1])
	task.mu.Unlock()

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, ticker.stopped.Load())
}

func TestIntervalScheduler_NoStartupRun(t *testing.T) {
	task := &countingTask{}
	s, ticker := newTestScheduler(t, Config{Interval: time.Hour}, task, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	assert.Nil(t, s.LastRun())

	ticker.tick()
	testutil.RequireEventually(t, func() bool { return s.RunCount() == 1 }, time.Second)
	assert.Equal(t, 1, task.Calls())
}

func TestIntervalScheduler_FailureIsRecordedAndLogged(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	task := &countingTask{err: errors.New("database unavailable")}
	s, _ := newTestScheduler(t, Config{Interval: time.Hour, RunOnStartup: true}, task, zap.New(core))

	require.NoError(t, s.Start(context.Background()))
	testutil.RequireEventually(t, func() bool { return s.RunCount() == 1 }, time.Second)

	last := s.LastRun()
	assert.Equal(t, RunStatusFailed, last.Status)
	assert.Equal(t, "database unavailable", last.Error)

	entries := recorded.FilterMessage("Scheduled run failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "expiry_scan", entries[0].ContextMap()["task"])
	assert.NotEmpty(t, entries[0].ContextMap()["run_id"])
}

func TestIntervalScheduler_PanicIsRecovered(t *testing.T) {
	task := TaskFunc{TaskName: "panicky", Fn: func(context.Context) error { panic("boom") }}
	s, ticker := newTestScheduler(t, Config{Interval: time.Hour, RunOnStartup: true}, task, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	testutil.RequireEventually(t, func() bool { return s.RunCount() == 1 }, time.Second)
	assert.Contains(t, s.LastRun().Error, "task panicked")

	ticker.tick()
	testutil.RequireEventually(t, func() bool { return s.RunCount() == 2 }, time.Second)
}

func TestIntervalScheduler_Trigger(t *testing.T) {
	task := &countingTask{}
	s, _ := newTestScheduler(t, Config{Interval: time.Hour}, task, zap.NewNop())

	assert.ErrorIs(t, s.Trigger(), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Trigger())
	testutil.RequireEventually(t, func() bool { return s.RunCount() == 1 }, time.Second)
	assert.Equal(t, "manual", s.LastRun().Trigger)
}

func TestIntervalScheduler_TriggerWhilePending(t *testing.T) {
	task := &countingTask{block: make(chan struct{})}
	s, _ := newTestScheduler(t, Config{Interval: time.Hour, RunOnStartup: true}, task, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	testutil.RequireEventually(t, func() bool { return task.Calls() == 1 }, time.Second)

	require.NoError(t, s.Trigger())
	assert.ErrorIs(t, s.Trigger(), ErrRunPending)

	close(task.block)
	testutil.RequireEventually(t, func() bool { return s.RunCount() == 2 }, time.Second)
}

func TestIntervalScheduler_TimeoutCancelsRun(t *testing.T) {
	task := &countingTask{block: make(chan struct{})}
	s, _ := newTestScheduler(t, Config{Interval: time.Hour, RunOnStartup: true, Timeout: 20 * time.Millisecond}, task, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	testutil.RequireEventually(t, func() bool { return s.RunCount() == 1 }, time.Second)
	assert.Equal(t, context.DeadlineExceeded.Error(), s.LastRun().Error)
}

func TestIntervalScheduler_StopCancelsRunningTask(t *testing.T) {
	task := &countingTask{block: make(chan struct{})}
	s, _ := newTestScheduler(t, Config{Interval: time.Hour, RunOnStartup: true}, task, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	testutil.RequireEventually(t, func() bool { return task.Calls() == 1 }, time.Second)

	ctx := testutil.ContextWithTimeout(t, time.Second)
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, RunStatusFailed, s.LastRun().Status)

	// stopping twice is a no-op
	require.NoError(t, s.Stop(ctx))
}

func TestIntervalScheduler_StartIsIdempotent(t *testing.T) {
	task := &countingTask{}
	s, _ := newTestScheduler(t, Config{Interval: time.Hour, RunOnStartup: true}, task, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	testutil.RequireEventually(t, func() bool { return s.RunCount() == 1 }, time.Second)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, task.Calls())
}
