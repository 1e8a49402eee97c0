package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweeper every five minutes.
const DefaultSchedule = "*/5 * * * *"

// Sweeper is the part of the admission service the scheduler drives.
type Sweeper interface {
	Sweep() int
}

// Scheduler runs the cleanup sweeper on a cron schedule.
//
// The sweeper only reclaims memory; admission decisions stay correct without
// it because block expiry is evaluated lazily. Common schedules:
//
//   - "*/5 * * * *" - every 5 minutes (default)
//   - "0 * * * *"   - hourly
//   - "0 3 * * *"   - daily at 3 AM
type Scheduler struct {
	sweeper  Sweeper
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a sweep scheduler. An empty schedule selects
// DefaultSchedule.
func NewScheduler(sweeper Sweeper, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{
		sweeper:  sweeper,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "admission.sweep"),
	}
}

// Start begins scheduled sweeping. It returns immediately; sweeps run on the
// cron goroutine until the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sweep scheduler already running")
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("sweep scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runSweep executes one sweep pass.
func (s *Scheduler) runSweep() {
	removed := s.sweeper.Sweep()
	if removed > 0 {
		s.logger.Info("sweep completed", "removed", removed)
	} else {
		s.logger.Debug("sweep completed, nothing to remove")
	}
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("sweep scheduler stopped")
	}
}

// IsRunning returns true while the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep time, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
