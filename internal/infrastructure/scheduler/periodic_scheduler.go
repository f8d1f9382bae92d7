package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of background work run by a PeriodicScheduler.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

// Name returns the task name
func (t TaskFunc) Name() string {
	return t.TaskName
}

// Run calls the wrapped function
func (t TaskFunc) Run(ctx context.Context) error {
	return t.Fn(ctx)
}

// PeriodicConfig holds configuration for a periodic scheduler
type PeriodicConfig struct {
	// Enabled indicates if the scheduler runs at all
	Enabled bool
	// Interval is the pause between two runs
	Interval time.Duration
	// InitialDelay is the pause before the first run
	InitialDelay time.Duration
	// RunTimeout bounds a single run; zero means no limit
	RunTimeout time.Duration
}

// Validate validates the configuration
func (c *PeriodicConfig) Validate() error {
	if c.Interval <= 0 || c.InitialDelay < 0 || c.RunTimeout < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// PeriodicScheduler runs one task on a fixed interval.
// A run that is still in progress when the next tick fires is not overlapped.
type PeriodicScheduler struct {
	config PeriodicConfig
	task   Task
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	busy atomic.Bool
	runs atomic.Int64
}

// NewPeriodicScheduler creates a new periodic scheduler
func NewPeriodicScheduler(config PeriodicConfig, task Task, logger *zap.Logger) (*PeriodicScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodicScheduler{
		config: config,
		task:   task,
		logger: logger.With(zap.String("task", task.Name())),
	}, nil
}

// Start starts the scheduler. A disabled scheduler starts as a no-op.
func (s *PeriodicScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Periodic scheduler disabled")
		return nil
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Periodic scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("initial_delay", s.config.InitialDelay),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *PeriodicScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Periodic scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Periodic scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduler loop is active
func (s *PeriodicScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Runs returns the number of completed runs
func (s *PeriodicScheduler) Runs() int64 {
	return s.runs.Load()
}

// RunNow runs the task immediately unless a run is already in progress.
// It returns ErrAlreadyRunning in that case.
func (s *PeriodicScheduler) RunNow(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.busy.Store(false)

	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.task.Run(ctx)
	s.runs.Add(1)
	if err != nil {
		s.logger.Warn("Periodic task failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return err
	}
	s.logger.Debug("Periodic task completed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *PeriodicScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.config.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			_ = s.RunNow(ctx)
			timer.Reset(s.config.Interval)
		}
	}
}
