// Package sched drives the periodic update loop on a cron schedule.
package sched

import (
	"context"

	"github.com/robfig/cron/v3"

	"statuswatch/internal/log"
)

// Scheduler fires a job on a cron schedule. Jobs run on cron's single
// goroutine, so a slow tick simply delays the next one; ticks never
// overlap.
type Scheduler struct {
	cron *cron.Cron
	job  func()
	expr string
}

// New validates expr (standard cron or descriptors like "@every 20s")
// and returns a scheduler for job.
func New(expr string, job func()) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(expr, job); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, job: job, expr: expr}, nil
}

// Run fires the job once immediately, then on schedule until ctx is
// done. It blocks until the running job (if any) has finished.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info("scheduler starting", "schedule", s.expr)
	s.job()

	s.cron.Start()
	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	log.Info("scheduler stopped")
}
