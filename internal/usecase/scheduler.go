package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/ports"
)

// Scheduler wires the cron-like driver with the search pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	profiles ports.LibraryRepository
	options  SearchOptions
	logger   *slog.Logger
}

// NewScheduler returns a helper that re-runs the stored profile's default search on every tick.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, profiles ports.LibraryRepository, opts SearchOptions, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, pipeline: pipeline, profiles: profiles, options: opts, logger: logger}
}

// Start registers the search with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.RunOnce(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// RunOnce performs one scheduled search. It reports whether a search ran.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) bool {
	profile, err := s.profiles.Profile(ctx)
	if err != nil {
		s.logger.Error("scheduled search: load profile failed", "error", err)
		return false
	}
	if profile == nil || !profile.OnboardingCompleted {
		s.logger.Debug("scheduled search skipped, onboarding incomplete", "trigger", trigger)
		return false
	}

	result, err := s.pipeline.Search(ctx, *profile, domain.SearchFilters{}, s.options)
	if err != nil && !errors.Is(err, ErrPersistence) {
		s.logger.Error("scheduled search failed", "error", err)
		return false
	}
	s.logger.Info("scheduled search finished",
		"trigger", trigger,
		"listings", len(result.Listings),
		"total_results", result.TotalResults)
	return true
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
