// Package platform holds the job-board source adapters.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/infrastructure/egress"
	"JobCopilot/internal/source"
)

var errBlocked = errors.New("blocked by anti-bot check")

// Template is the shape of the listings a synthetic platform produces.
type Template struct {
	Name            string
	DisplayName     string
	DefaultTitle    string
	DefaultLocation string
	CompanyPrefix   string
	Description     string
	URLBase         string
	Count           int
	Total           int
	PostingStep     time.Duration
	Salary          func(i int) string
	Requirements    func(i int) []string
	Tags            []string
}

// LinkedInTemplate mirrors the LinkedIn job feed.
var LinkedInTemplate = Template{
	Name:            domain.PlatformLinkedIn,
	DisplayName:     "LinkedIn",
	DefaultTitle:    "Software Engineer",
	DefaultLocation: "San Francisco, CA",
	CompanyPrefix:   "Company",
	Description:     "This is a job description for job %d. It contains information about the role, responsibilities, and requirements.",
	URLBase:         "https://linkedin.com/jobs/",
	Count:           15,
	Total:           150,
	PostingStep:     24 * time.Hour,
	Salary: func(i int) string {
		return salaryRange(80000+i*10000, 90000+i*10000)
	},
	Requirements: func(i int) []string {
		return []string{
			"Bachelor's degree in Computer Science or related field",
			fmt.Sprintf("%d years of experience", 3+i),
			"Strong problem-solving skills",
			"Experience with web technologies",
		}
	},
	Tags: []string{"remote", "software", "engineer", "tech"},
}

// IndeedTemplate mirrors the Indeed job feed.
var IndeedTemplate = Template{
	Name:            domain.PlatformIndeed,
	DisplayName:     "Indeed",
	DefaultTitle:    "Software Developer",
	DefaultLocation: "New York, NY",
	CompanyPrefix:   "Indeed Company",
	Description:     "This is a job description for job %d from Indeed. It contains details about the position and company culture.",
	URLBase:         "https://indeed.com/jobs/",
	Count:           12,
	Total:           120,
	PostingStep:     20 * time.Hour,
	Salary: func(i int) string {
		if i%3 != 0 {
			return ""
		}
		return salaryRange(85000+i*8000, 95000+i*8000)
	},
	Requirements: func(i int) []string {
		return []string{
			"Proficiency in JavaScript/TypeScript",
			fmt.Sprintf("%d years of experience", 2+i),
			"Knowledge of modern frameworks",
			"Team player",
		}
	},
	Tags: []string{"developer", "javascript", "remote-friendly"},
}

// GlassdoorTemplate mirrors the Glassdoor job feed.
var GlassdoorTemplate = Template{
	Name:            domain.PlatformGlassdoor,
	DisplayName:     "Glassdoor",
	DefaultTitle:    "Frontend Developer",
	DefaultLocation: "Seattle, WA",
	CompanyPrefix:   "Glassdoor Company",
	Description:     "This is a job description for job %d from Glassdoor. It includes company benefits and work environment details.",
	URLBase:         "https://glassdoor.com/jobs/",
	Count:           10,
	Total:           100,
	PostingStep:     1000 * time.Minute,
	Salary: func(i int) string {
		if i%2 != 0 {
			return ""
		}
		return salaryRange(90000+i*7000, 100000+i*7000)
	},
	Requirements: func(i int) []string {
		return []string{
			"Experience with React",
			fmt.Sprintf("%d years of experience", 2+i/2),
			"CSS/SCSS proficiency",
			"Ability to work in an agile environment",
		}
	},
	Tags: []string{"frontend", "react", "css", "ui"},
}

// TemplateFor returns the built-in template registered under name.
func TemplateFor(name string) (Template, bool) {
	switch name {
	case domain.PlatformLinkedIn:
		return LinkedInTemplate, true
	case domain.PlatformIndeed:
		return IndeedTemplate, true
	case domain.PlatformGlassdoor:
		return GlassdoorTemplate, true
	}
	return Template{}, false
}

// Options tunes a synthetic platform. Zero Count or Total keeps the template value.
type Options struct {
	Count       int
	Total       int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	FailureRate float64
	Seed        uint64
	Now         func() time.Time
}

// Synthetic generates template listings after a simulated network delay.
type Synthetic struct {
	tmpl   Template
	opts   Options
	pool   *egress.Pool
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

var _ source.Source = (*Synthetic)(nil)

// NewSynthetic builds an adapter for tmpl. pool and logger may be nil.
func NewSynthetic(tmpl Template, opts Options, pool *egress.Pool, logger *slog.Logger) *Synthetic {
	if opts.Count <= 0 {
		opts.Count = tmpl.Count
	}
	if opts.Total <= 0 {
		opts.Total = tmpl.Total
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Synthetic{
		tmpl:   tmpl,
		opts:   opts,
		pool:   pool,
		logger: logger,
		rng:    rand.New(rand.NewPCG(seed, uint64(len(tmpl.Name)))),
	}
}

// NewLinkedIn builds the LinkedIn adapter.
func NewLinkedIn(opts Options, pool *egress.Pool, logger *slog.Logger) *Synthetic {
	return NewSynthetic(LinkedInTemplate, opts, pool, logger)
}

// NewIndeed builds the Indeed adapter.
func NewIndeed(opts Options, pool *egress.Pool, logger *slog.Logger) *Synthetic {
	return NewSynthetic(IndeedTemplate, opts, pool, logger)
}

// NewGlassdoor builds the Glassdoor adapter.
func NewGlassdoor(opts Options, pool *egress.Pool, logger *slog.Logger) *Synthetic {
	return NewSynthetic(GlassdoorTemplate, opts, pool, logger)
}

// Name identifies the adapter inside the registry.
func (s *Synthetic) Name() string {
	return s.tmpl.Name
}

// FetchPage waits out the simulated latency and returns one page of generated listings.
func (s *Synthetic) FetchPage(ctx context.Context, req source.Request) (source.Page, error) {
	s.debug("fetch page", "page", req.Page, "per_page", req.PerPage)

	if err := s.sleep(ctx); err != nil {
		return source.Page{}, source.Unavailable(s.Name(), err)
	}

	if req.UseIntermediary {
		proxy := s.pool.Pick(s.Name())
		if proxy == "" {
			proxy = "none"
		}
		s.debug("using proxy", "proxy", proxy)
	}

	if s.blocked() {
		return source.Page{}, source.Unavailable(s.Name(), errBlocked)
	}

	count := s.opts.Count
	offset := 0
	if req.PerPage > 0 {
		count = min(count, req.PerPage)
		if req.Page > 1 {
			offset = (req.Page - 1) * req.PerPage
		}
	}

	now := s.opts.Now()
	listings := make([]domain.Listing, 0, count)
	for idx := 0; idx < count; idx++ {
		listings = append(listings, s.listing(offset+idx, req.Filters, now))
	}

	return source.Page{Listings: listings, TotalResults: s.opts.Total}, nil
}

func (s *Synthetic) listing(i int, filters domain.SearchFilters, now time.Time) domain.Listing {
	n := i + 1

	title := s.tmpl.DefaultTitle
	if filters.Title != "" {
		title = filters.Title
	}
	location := s.tmpl.DefaultLocation
	if filters.Location != "" {
		location = filters.Location
	}
	if filters.IsRemote() {
		location = "Remote"
	}

	l := domain.Listing{
		ID:          uuid.NewString(),
		Title:       fmt.Sprintf("%s %d", title, n),
		Company:     fmt.Sprintf("%s %d", s.tmpl.CompanyPrefix, n),
		Location:    location,
		Description: fmt.Sprintf(s.tmpl.Description, n),
		URL:         fmt.Sprintf("%s%d", s.tmpl.URLBase, n),
		DatePosted:  now.Add(-time.Duration(i) * s.tmpl.PostingStep).UTC(),
		Platform:    s.tmpl.DisplayName,
		Status:      domain.StatusNew,
	}
	if s.tmpl.Salary != nil {
		l.Salary = s.tmpl.Salary(i)
	}
	if s.tmpl.Requirements != nil {
		l.Requirements = s.tmpl.Requirements(i)
	}
	if len(s.tmpl.Tags) > 0 {
		l.Tags = append([]string(nil), s.tmpl.Tags...)
	}
	return l
}

func (s *Synthetic) sleep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delay := s.opts.MinDelay
	if spread := s.opts.MaxDelay - s.opts.MinDelay; spread > 0 {
		s.mu.Lock()
		delay += time.Duration(s.rng.Int64N(int64(spread) + 1))
		s.mu.Unlock()
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Synthetic) blocked() bool {
	if s.opts.FailureRate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.opts.FailureRate
}

func (s *Synthetic) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, append([]any{"source", s.Name()}, args...)...)
	}
}

func salaryRange(low, high int) string {
	return fmt.Sprintf("%d - %d", low, high)
}
