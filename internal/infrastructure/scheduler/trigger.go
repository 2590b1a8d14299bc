package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IntervalTrigger submits a fixed set of jobs every interval
type IntervalTrigger struct {
	interval   time.Duration
	jobs       []string
	runOnStart bool
	scheduler  *Scheduler
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a trigger. With runOnStart the jobs are also
// submitted as soon as the trigger starts.
func NewIntervalTrigger(s *Scheduler, interval time.Duration, runOnStart bool, logger *zap.Logger, jobs ...string) *IntervalTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntervalTrigger{
		interval:   interval,
		jobs:       jobs,
		runOnStart: runOnStart,
		scheduler:  s,
		logger:     logger.Named("trigger"),
	}
}

// Start starts the ticker loop. A non-positive interval leaves it idle.
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning || t.interval <= 0 {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Interval trigger started",
		zap.Duration("interval", t.interval),
		zap.Strings("jobs", t.jobs),
	)
	return nil
}

// Stop stops the ticker loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.cancel()
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.runOnStart {
		t.fire()
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fire()
		}
	}
}

func (t *IntervalTrigger) fire() {
	for _, name := range t.jobs {
		if err := t.scheduler.Submit(name); err != nil {
			t.logger.Warn("Failed to submit job", zap.String("job", name), zap.Error(err))
		}
	}
}
