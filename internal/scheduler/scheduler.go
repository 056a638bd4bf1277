// Package scheduler runs periodic maintenance tasks on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// Scheduler wraps a cron runner. Each run gets its own timeout and runs of
// the same task never overlap.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *slog.Logger
}

// New returns a scheduler whose runs are bounded by timeout.
func New(timeout time.Duration, logger *slog.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		timeout: timeout,
		logger:  logger,
	}
}

// Add registers task under name. An empty spec disables the task.
func (s *Scheduler) Add(name, spec string, task Task) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		s.logger.Info("scheduled task disabled", "task", name)
		return nil
	}
	var running sync.Mutex
	_, err := s.cron.AddFunc(spec, func() {
		if !running.TryLock() {
			s.logger.Warn("scheduled task still running, skipping", "task", name)
			return
		}
		defer running.Unlock()
		s.run(name, task)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	start := time.Now()
	if err := task(ctx); err != nil {
		s.logger.Error("scheduled task failed", "task", name, "err", err)
		return
	}
	s.logger.Debug("scheduled task done", "task", name, "duration_ms", time.Since(start).Milliseconds())
}

// Start begins running scheduled tasks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
