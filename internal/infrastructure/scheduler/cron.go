// Package scheduler drives recurring searches from a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"JobCopilot/internal/ports"
)

// CronScheduler wraps robfig/cron. An empty expression disables it.
type CronScheduler struct {
	spec       string
	location   *time.Location
	runOnStart bool
	logger     *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for a standard five-field expression or a descriptor such as "@every 6h".
func NewCronScheduler(spec string, location *time.Location, runOnStart bool, logger *slog.Logger) *CronScheduler {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CronScheduler{spec: spec, location: location, runOnStart: runOnStart, logger: logger}
}

// Validate parses the expression without starting anything.
func (c *CronScheduler) Validate() error {
	if c.spec == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.spec); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}
	return nil
}

// Start registers job and starts the cron loop. Starting twice is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil || c.spec == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cr := cron.New(cron.WithLocation(c.location))
	_, err := cr.AddFunc(c.spec, func() {
		if ctx.Err() != nil {
			return
		}
		job(time.Now().In(c.location))
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	cr.Start()
	c.cron = cr
	c.logger.Info("cron started", "spec", c.spec, "location", c.location.String())

	if c.runOnStart {
		go job(time.Now().In(c.location))
	}
	return nil
}

// Stop halts the cron loop and waits for a running job, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return nil
	}

	done := cr.Stop()
	select {
	case <-done.Done():
		c.logger.Info("cron stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop cron: %w", ctx.Err())
	}
}
