package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// RunStatus represents the status of one task run
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// Run records one execution of a task
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Task        string     `json:"task"`
	Trigger     string     `json:"trigger"` // startup, interval or manual
	Status      RunStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Task is a unit of periodic background work
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to Task
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

// Name returns the task name
func (t TaskFunc) Name() string { return t.TaskName }

// Run calls the function
func (t TaskFunc) Run(ctx context.Context) error { return t.Fn(ctx) }

// Ticker abstracts time.Ticker for tests
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ *time.Ticker }

func (t stdTicker) C() <-chan time.Time { return t.Ticker.C }

// Config holds scheduler configuration
type Config struct {
	Interval     time.Duration
	RunOnStartup bool
	Timeout      time.Duration // per run, 0 means no timeout
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Option configures an IntervalScheduler
type Option func(*IntervalScheduler)

// WithTicker replaces the ticker factory
func WithTicker(factory func(time.Duration) Ticker) Option {
	return func(s *IntervalScheduler) {
		s.newTicker = factory
	}
}

// IntervalScheduler runs a task on a fixed interval, optionally once at startup.
// Runs never overlap: a tick that arrives while a run is in progress is skipped.
type IntervalScheduler struct {
	config    Config
	task      Task
	logger    *zap.Logger
	newTicker func(time.Duration) Ticker

	trigger chan string
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
	lastRun   *Run
	runs      int
}

// NewIntervalScheduler creates a scheduler for task
func NewIntervalScheduler(config Config, task Task, log *zap.Logger, opts ...Option) (*IntervalScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &IntervalScheduler{
		config:    config,
		task:      task,
		logger:    log.With(zap.String("task", task.Name())),
		newTicker: func(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} },
		trigger:   make(chan string, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start starts the run loop. Starting a running scheduler is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	ticker := s.newTicker(s.config.Interval)
	s.wg.Add(1)
	go s.loop(ctx, ticker)

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Bool("run_on_startup", s.config.RunOnStartup),
	)
	return nil
}

// Stop cancels the loop, including a run in progress, and waits for it to exit
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger requests an immediate run. It returns ErrRunPending when a manual run is
// already queued.
func (s *IntervalScheduler) Trigger() error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return ErrSchedulerNotRunning
	}
	select {
	case s.trigger <- "manual":
		return nil
	default:
		return ErrRunPending
	}
}

// LastRun returns a copy of the most recent run, or nil
func (s *IntervalScheduler) LastRun() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	r := *s.lastRun
	return &r
}

// RunCount returns the number of completed runs
func (s *IntervalScheduler) RunCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *IntervalScheduler) loop(ctx context.Context, ticker Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	if s.config.RunOnStartup {
		s.execute(ctx, "startup")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.execute(ctx, "interval")
		case trigger := <-s.trigger:
			s.execute(ctx, trigger)
		}
	}
}

// execute runs the task once. Ticks that fired during the run are drained by the
// ticker itself, which keeps at most one pending tick.
func (s *IntervalScheduler) execute(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}

	run := &Run{
		ID:        uuid.New(),
		Task:      s.task.Name(),
		Trigger:   trigger,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()

	runCtx, runLogger := logger.WithRunID(ctx, s.logger, run.ID.String())
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.config.Timeout)
		defer cancel()
	}

	err := s.safeRun(runCtx)
	completed := time.Now().UTC()

	s.mu.Lock()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = RunStatusSuccess
	}
	s.runs++
	s.mu.Unlock()

	if err != nil {
		runLogger.Error("Scheduled run failed",
			zap.String("trigger", trigger),
			zap.Duration("duration", completed.Sub(run.StartedAt)),
			zap.Error(err),
		)
		return
	}
	runLogger.Info("Scheduled run completed",
		zap.String("trigger", trigger),
		zap.Duration("duration", completed.Sub(run.StartedAt)),
	)
}

func (s *IntervalScheduler) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return s.task.Run(ctx)
}
