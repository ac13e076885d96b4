// Package scheduler triggers briefing generation on a cron schedule.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"dailybrief/internal/logger"
)

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  logger.With("scheduler"),
	}
}

// Schedule registers job under a standard 5-field cron expression and starts
// the scheduler.
func (s *Scheduler) Schedule(expr string, job func()) error {
	id, err := s.cron.AddFunc(expr, func() {
		s.log.Info("scheduled briefing run triggered", "schedule", expr)
		job()
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", "schedule", expr, "entry", id)
	return nil
}

// Stop halts the scheduler without interrupting a job already running.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
