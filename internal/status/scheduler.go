package status

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CheckFunc produces a fresh status.
type CheckFunc func(ctx context.Context) (Status, error)

// Scheduler logs the staleness status on a cron schedule.
type Scheduler struct {
	check   CheckFunc
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewScheduler returns a scheduler running check.
func NewScheduler(check CheckFunc) *Scheduler {
	return &Scheduler{check: check, cron: cron.New()}
}

// Start schedules the check with a standard five-field cron expression and
// stops when ctx is done. An empty schedule does nothing.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if schedule == "" {
		logrus.Info("Status schedule not configured, skipping scheduler")
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.Run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule status check: %w", err)
	}

	s.cron.Start()
	s.running = true
	logrus.WithField("schedule", schedule).Info("Status scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Run performs one check and logs the outcome.
func (s *Scheduler) Run(ctx context.Context) {
	st, err := s.check(ctx)
	if err != nil {
		logrus.Errorf("Status check failed: %v", err)
		return
	}
	Log(st)
}

// Stop stops the scheduler and waits for a running check.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		logrus.Info("Status scheduler stopped")
	}
}

// Log writes an advisory log line for st.
func Log(st Status) {
	entry := logrus.WithField("modified", len(st.Modified))
	switch {
	case st.LastGeneration == nil:
		entry.Warn("Dataset has never been generated")
	case st.UpToDate:
		entry.WithField("last_generation", st.LastGeneration).Info("Dataset is up to date")
	default:
		entry.WithField("last_generation", st.LastGeneration).Warn("Dataset is stale, regenerate it")
	}
}
