package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Refresher materializes newly due recurring occurrences.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// SchedulerConfig holds configuration for the recurrence scheduler
type SchedulerConfig struct {
	// Interval is how often due occurrences are materialized (default: 1h)
	Interval time.Duration
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval: time.Hour,
	}
}

// Scheduler periodically refreshes a tracker so recurring tasks keep
// producing occurrences while the process stays up across midnight.
type Scheduler struct {
	target Refresher
	config SchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(target Refresher, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	return &Scheduler{
		target: target,
		config: config,
	}
}

// Start begins the refresh loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("recurrence scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx, s.stopCh, s.doneCh)

	slog.InfoContext(ctx, "Recurrence scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Recurrence scheduler stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recurrence scheduler stop timed out")
		return ctx.Err()
	}
}

// done is closed when the loop exits, either through Stop or ctx.
func (s *Scheduler) done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneCh
}

func (s *Scheduler) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)
	defer func() {
		s.mu.Lock()
		if s.doneCh == doneCh {
			s.running = false
		}
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single refresh and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	n, err := s.target.Refresh(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Recurrence refresh failed", "error", err)
		return 0
	}
	slog.DebugContext(ctx, "Recurrence refresh complete",
		"materialized", n,
		"next_check", time.Now().Add(s.config.Interval).Format("15:04:05"))
	return n
}
