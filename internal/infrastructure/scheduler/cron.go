// Package scheduler drives recurring pipeline runs from a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"feedingest/internal/ports"
)

// CronScheduler runs a job on a cron expression in a fixed timezone.
// Activations that fire while the job is still running are skipped, so no
// two pipeline executions overlap.
type CronScheduler struct {
	spec   string
	loc    *time.Location
	runner *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler; a nil location means UTC.
func NewCronScheduler(spec string, loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{spec: spec, loc: loc}
}

// Start registers the job and begins the cron loop.
func (c *CronScheduler) Start(_ context.Context, job func(time.Time)) error {
	if job == nil || c.runner != nil {
		return nil
	}

	runner := cron.New(
		cron.WithLocation(c.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := runner.AddFunc(c.spec, func() {
		job(time.Now().In(c.loc))
	}); err != nil {
		return fmt.Errorf("register cron job %q: %w", c.spec, err)
	}

	c.runner = runner
	runner.Start()
	return nil
}

// Stop halts the cron loop, waiting for a running job up to ctx's deadline.
// The runner is released only once the job has drained, so a Start issued
// while a shutdown is still draining does not spin up a second cron.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.runner == nil {
		return nil
	}

	done := c.runner.Stop()

	select {
	case <-done.Done():
		c.runner = nil
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
