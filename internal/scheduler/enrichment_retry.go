// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookclub/internal/logger"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a standard five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// SweepFunc starts one enrichment retry sweep.
type SweepFunc func(ctx context.Context) error

// EnrichmentRetryScheduler periodically re-enqueues books whose enrichment
// did not complete.
type EnrichmentRetryScheduler struct {
	schedule string
	sweep    SweepFunc
	timeout  time.Duration

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
	cancelFunc context.CancelFunc
	baseCtx    context.Context
}

func NewEnrichmentRetryScheduler(schedule string, sweep SweepFunc) *EnrichmentRetryScheduler {
	return &EnrichmentRetryScheduler{
		schedule: schedule,
		sweep:    sweep,
		timeout:  5 * time.Minute,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start schedules the sweep and stops it when ctx is cancelled.
func (s *EnrichmentRetryScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if err := ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.runSweep)
	if err != nil {
		return fmt.Errorf("failed to schedule enrichment retry: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)
	s.baseCtx = cancelCtx

	s.cron.Start()
	s.isRunning = true

	logger.WithComponent("scheduler").
		WithField("schedule", s.schedule).
		WithField("next_run", s.cron.Entry(entryID).Next).
		Info("enrichment retry scheduler started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running sweep to finish.
func (s *EnrichmentRetryScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	done := s.cron.Stop()
	s.mu.Unlock()

	<-done.Done()
	logger.WithComponent("scheduler").Info("enrichment retry scheduler stopped")
}

func (s *EnrichmentRetryScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next sweep will occur, or nil when stopped.
func (s *EnrichmentRetryScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	t := s.cron.Entry(s.entryID).Next
	return &t
}

// RunNow triggers a sweep immediately in the background.
func (s *EnrichmentRetryScheduler) RunNow() {
	go s.runSweep()
}

func (s *EnrichmentRetryScheduler) runSweep() {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		logger.WithComponent("scheduler").Debug("enrichment retry skipped, previous sweep still running")
		return
	}
	s.isSweeping = true
	parent := s.baseCtx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if err := s.sweep(ctx); err != nil {
		logger.WithComponent("scheduler").WithError(err).Warn("enrichment retry sweep failed")
	}
}
