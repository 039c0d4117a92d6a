package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/filter"
	"JobCopilot/internal/ports"
	"JobCopilot/internal/source"
)

// ErrPersistence marks a search whose result could not be stored. The computed result is still returned.
var ErrPersistence = errors.New("persist search results")

// PipelineDeps wires all driven adapters into the search pipeline.
type PipelineDeps struct {
	Registry      *source.Registry
	Scorer        ports.Scorer
	Repository    ports.SearchRepository
	Publisher     ports.EventPublisher
	Logger        *slog.Logger
	Clock         func() time.Time
	SourceTimeout time.Duration
	MaxParallel   int
}

// SearchOptions carries pagination and egress settings for one search.
type SearchOptions struct {
	Page            int
	PerPage         int
	UseIntermediary bool
}

// SearchResult is the sorted outcome of one search.
// TotalResults sums the estimates of the sources that answered, before keyword filtering.
type SearchResult struct {
	Listings     []domain.Listing     `json:"listings"`
	TotalResults int                  `json:"totalResults"`
	Filters      domain.SearchFilters `json:"filters"`
	Timestamp    time.Time            `json:"timestamp"`
}

// Pipeline implements the fetch, filter, score, sort and persist workflow.
type Pipeline struct {
	registry      *source.Registry
	scorer        ports.Scorer
	repository    ports.SearchRepository
	publisher     ports.EventPublisher
	logger        *slog.Logger
	clock         func() time.Time
	sourceTimeout time.Duration
	maxParallel   int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	registry := deps.Registry
	if registry == nil {
		registry = source.NewRegistry(logger)
	}
	return &Pipeline{
		registry:      registry,
		scorer:        deps.Scorer,
		repository:    deps.Repository,
		publisher:     deps.Publisher,
		logger:        logger,
		clock:         clock,
		sourceTimeout: deps.SourceTimeout,
		maxParallel:   deps.MaxParallel,
	}
}

type fetchOutcome struct {
	page source.Page
	ok   bool
}

// Search runs one aggregated search. Per-source and scoring failures are logged and absorbed;
// only a failed persist returns an error, which wraps ErrPersistence.
func (p *Pipeline) Search(ctx context.Context, profile domain.UserProfile, filters domain.SearchFilters, opts SearchOptions) (SearchResult, error) {
	effective := EffectiveFilters(profile, filters)
	sources := p.registry.Resolve(enabledPlatforms(profile, filters))

	p.logger.Debug("search started",
		"sources", len(sources),
		"title", effective.Title,
		"location", effective.Location,
		"page", opts.Page)

	merged, total := p.fetchAll(ctx, sources, source.Request{
		Filters:         effective,
		Page:            opts.Page,
		PerPage:         opts.PerPage,
		UseIntermediary: opts.UseIntermediary,
	})

	kept := filter.Apply(merged, effective.IncludeKeywords, effective.ExcludeKeywords)
	scored := p.scoreAll(ctx, kept, profile)
	sortByScore(scored)

	now := p.clock()
	result := SearchResult{
		Listings:     scored,
		TotalResults: total,
		Filters:      effective,
		Timestamp:    now,
	}

	p.logger.Info("search finished",
		"fetched", len(merged),
		"kept", len(scored),
		"total_results", total)

	if p.repository != nil {
		err := p.repository.SaveSearch(ctx, domain.SearchRecord{
			Listings:  scored,
			Timestamp: now.UnixMilli(),
			Filters:   effective,
		})
		if err != nil {
			p.logger.Error("persist search results failed", "error", err)
			return result, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	p.publish(ctx, result)
	return result, nil
}

// EffectiveFilters fills unset filter fields from the profile's job preferences.
// A nil list is unset; an empty list is an explicit "none" and is kept.
// Experience, date range and platform fields come only from filters.
func EffectiveFilters(profile domain.UserProfile, filters domain.SearchFilters) domain.SearchFilters {
	prefs := profile.JobPreferences
	out := filters

	if out.Title == "" && len(prefs.Titles) > 0 {
		out.Title = prefs.Titles[0]
	}
	if out.Location == "" && len(prefs.Locations) > 0 {
		out.Location = prefs.Locations[0]
	}
	if out.Remote == nil {
		remote := prefs.Remote
		out.Remote = &remote
	}
	if out.Salary == nil && prefs.MinSalary != nil {
		salary := *prefs.MinSalary
		out.Salary = &salary
	}
	if out.JobType == nil && len(prefs.JobTypes) > 0 {
		out.JobType = append([]domain.JobType(nil), prefs.JobTypes...)
	}
	if out.IncludeKeywords == nil && len(prefs.IncludeKeywords) > 0 {
		out.IncludeKeywords = append([]string(nil), prefs.IncludeKeywords...)
	}
	if out.ExcludeKeywords == nil && len(prefs.ExcludeKeywords) > 0 {
		out.ExcludeKeywords = append([]string(nil), prefs.ExcludeKeywords...)
	}
	return out
}

// enabledPlatforms narrows the profile's platforms to filters.Platforms when that is set.
func enabledPlatforms(profile domain.UserProfile, filters domain.SearchFilters) []string {
	enabled := profile.JobPreferences.EnabledPlatforms()
	if len(filters.Platforms) == 0 {
		return enabled
	}

	wanted := make(map[string]struct{}, len(filters.Platforms))
	for _, name := range filters.Platforms {
		wanted[name] = struct{}{}
	}
	narrowed := make([]string, 0, len(enabled))
	for _, name := range enabled {
		if _, ok := wanted[name]; ok {
			narrowed = append(narrowed, name)
		}
	}
	return narrowed
}

// fetchAll queries every source concurrently and merges pages in source order.
func (p *Pipeline) fetchAll(ctx context.Context, sources []source.Source, req source.Request) ([]domain.Listing, int) {
	outcomes := make([]fetchOutcome, len(sources))

	var g errgroup.Group
	if p.maxParallel > 0 {
		g.SetLimit(p.maxParallel)
	}
	for i, src := range sources {
		g.Go(func() error {
			outcomes[i] = p.fetchOne(ctx, src, req)
			return nil
		})
	}
	_ = g.Wait()

	var (
		merged []domain.Listing
		total  int
	)
	for _, out := range outcomes {
		if !out.ok {
			continue
		}
		merged = append(merged, out.page.Listings...)
		total += out.page.TotalResults
	}
	return merged, total
}

func (p *Pipeline) fetchOne(ctx context.Context, src source.Source, req source.Request) fetchOutcome {
	fetchCtx := ctx
	if p.sourceTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.sourceTimeout)
		defer cancel()
	}

	started := time.Now()
	page, err := src.FetchPage(fetchCtx, req)
	if err == nil && fetchCtx.Err() != nil {
		err = fetchCtx.Err()
	}
	if err != nil {
		if !errors.Is(err, source.ErrUnavailable) {
			err = source.Unavailable(src.Name(), err)
		}
		p.logger.Warn("source failed, skipping", "source", src.Name(), "error", err)
		return fetchOutcome{}
	}

	p.logger.Debug("source answered",
		"source", src.Name(),
		"listings", len(page.Listings),
		"total_results", page.TotalResults,
		"elapsed", time.Since(started))
	return fetchOutcome{page: page, ok: true}
}

// scoreAll annotates listings in order. A listing the scorer rejects passes through unscored.
func (p *Pipeline) scoreAll(ctx context.Context, listings []domain.Listing, profile domain.UserProfile) []domain.Listing {
	scored := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if p.scorer == nil {
			scored = append(scored, l)
			continue
		}
		annotated, err := p.scorer.Score(ctx, l, profile)
		if err != nil {
			p.logger.Warn("scoring failed, keeping listing unscored", "listing", l.ID, "error", err)
			scored = append(scored, l)
			continue
		}
		scored = append(scored, annotated)
	}
	return scored
}

// sortByScore orders listings by score descending. Unscored counts as 0; ties keep input order.
func sortByScore(listings []domain.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].ScoreOrZero() > listings[j].ScoreOrZero()
	})
}

func (p *Pipeline) publish(ctx context.Context, result SearchResult) {
	if p.publisher == nil {
		return
	}
	event := domain.SearchCompleted{
		Timestamp:    result.Timestamp,
		Listings:     len(result.Listings),
		TotalResults: result.TotalResults,
		Filters:      result.Filters,
	}
	if len(result.Listings) > 0 {
		event.TopScore = result.Listings[0].ScoreOrZero()
	}
	if err := p.publisher.PublishSearchCompleted(ctx, event); err != nil {
		p.logger.Warn("publish search completed failed", "error", err)
	}
}
