// Package scheduler runs the budget auto-renewal batch on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"fiscus/internal/logger"
	"fiscus/internal/services"
)

// RenewalScheduler triggers services.BudgetServicer.ProcessAutoRenewals on
// a cron schedule (e.g. daily at 3 AM). Each run is independent; a failed
// run is logged and the next fires as scheduled.
type RenewalScheduler struct {
	budgets  services.BudgetServicer
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
}

// NewRenewalScheduler creates a scheduler for the given cron expression.
func NewRenewalScheduler(budgets services.BudgetServicer, schedule string) *RenewalScheduler {
	return &RenewalScheduler{
		budgets:  budgets,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start validates the schedule and begins firing renewal runs. An empty
// schedule disables the scheduler. The scheduler stops itself when ctx is
// cancelled.
func (s *RenewalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		logger.Get().Info("renewal schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid renewal schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.runBatch(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule renewals: %w", err)
	}

	s.cron.Start()
	s.running = true
	logger.Get().Infow("renewal scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runBatch executes one auto-renewal batch run.
func (s *RenewalScheduler) runBatch(ctx context.Context) {
	logger.Get().Info("starting scheduled budget auto-renewal run")

	summary, err := s.budgets.ProcessAutoRenewals(ctx)
	if err != nil {
		logger.Get().Errorw("scheduled auto-renewal run failed", "error", err)
		return
	}

	logger.Get().Infow("scheduled auto-renewal run completed",
		"processed", summary.Processed,
		"renewed", summary.Renewed,
		"failed", summary.Failed,
	)
}

// Stop stops the scheduler and waits for a running batch to finish.
func (s *RenewalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		s.running = false
		logger.Get().Info("renewal scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *RenewalScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
