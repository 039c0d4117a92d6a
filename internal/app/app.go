// Package app wires configuration to adapters, use cases and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"JobCopilot/internal/api"
	"JobCopilot/internal/config"
	"JobCopilot/internal/infrastructure/autofill"
	"JobCopilot/internal/infrastructure/egress"
	"JobCopilot/internal/infrastructure/scheduler"
	"JobCopilot/internal/infrastructure/storage"
	"JobCopilot/internal/logging"
	"JobCopilot/internal/match"
	"JobCopilot/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	library   *usecase.Library
	scheduler *usecase.Scheduler
	server    *http.Server
	closers   []func() error
}

// New builds every component. Connections opened here are released by Close.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithWriter(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	policy, err := egress.ParsePolicy(cfg.Egress.Policy)
	if err != nil {
		return nil, fmt.Errorf("egress: %w", err)
	}
	pool := egress.NewPool(policy, cfg.Egress.Proxies, cfg.Egress.Seed)

	registry, err := buildRegistry(cfg, pool, logging.Component(baseLogger, "source"))
	if err != nil {
		return nil, err
	}
	baseLogger.Info("sources registered", "platforms", registry.Names())

	store, err := a.buildStore(ctx, cfg.Storage)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	repo := storage.NewRepository(store)

	publisher, err := a.buildPublisher(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	scorer := match.NewScorer(match.Options{Delay: cfg.Search.ScoreDelay, Seed: cfg.Search.ScoreSeed})
	simulator := autofill.NewSimulator(autofill.Options{
		MinDelay:    cfg.AutoFill.MinDelay,
		MaxDelay:    cfg.AutoFill.MaxDelay,
		SuccessRate: cfg.AutoFill.SuccessRate,
		Seed:        cfg.AutoFill.Seed,
	}, logging.Component(baseLogger, "autofill"))

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Registry:      registry,
		Scorer:        scorer,
		Repository:    repo,
		Publisher:     publisher,
		Logger:        logging.Component(baseLogger, "pipeline"),
		SourceTimeout: cfg.Search.SourceTimeout,
		MaxParallel:   cfg.Search.MaxParallel,
	})
	a.library = usecase.NewLibrary(usecase.LibraryDeps{
		Repository: repo,
		AutoFiller: simulator,
		Logger:     logging.Component(baseLogger, "library"),
	})

	cron := scheduler.NewCronScheduler(
		cfg.Scheduler.CronExpression,
		cfg.Scheduler.Location(),
		cfg.Scheduler.RunOnStart,
		logging.Component(baseLogger, "cron"),
	)
	if err := cron.Validate(); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.scheduler = usecase.NewScheduler(cron, a.pipeline, repo,
		usecase.SearchOptions{Page: 1, PerPage: cfg.Search.PerPage},
		logging.Component(baseLogger, "scheduler"))

	handler := api.NewHandler(a.pipeline, a.library, cfg.Search.PerPage, logging.Component(baseLogger, "api"))
	a.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// Handler exposes the HTTP routes, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP and drives the scheduler until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if err := a.scheduler.Start(gctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop failed", "error", err)
		}
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if closeErr := a.Close(); closeErr != nil {
		a.logger.Warn("release resources failed", "error", closeErr)
	}
	return err
}

// Close releases store and publisher connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
