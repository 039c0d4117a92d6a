package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/match"
	"JobCopilot/internal/source"
)

type fakeSource struct {
	name     string
	listings []domain.Listing
	total    int
	err      error
	delay    time.Duration
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchPage(ctx context.Context, req source.Request) (source.Page, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return source.Page{}, ctx.Err()
		}
	}
	if f.err != nil {
		return source.Page{}, f.err
	}
	out := make([]domain.Listing, len(f.listings))
	copy(out, f.listings)
	return source.Page{Listings: out, TotalResults: f.total}, nil
}

type fixedScorer struct {
	scores map[string]int
	fail   map[string]bool
}

func (s fixedScorer) Score(_ context.Context, l domain.Listing, _ domain.UserProfile) (domain.Listing, error) {
	if s.fail[l.ID] {
		return l, match.ErrScoring
	}
	out := l.Clone()
	if score, ok := s.scores[l.ID]; ok {
		out.AIScore = &score
	}
	return out, nil
}

type memorySearchRepo struct {
	mu      sync.Mutex
	records []domain.SearchRecord
	err     error
}

func (r *memorySearchRepo) SaveSearch(_ context.Context, record domain.SearchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

func (r *memorySearchRepo) LastSearch(_ context.Context) (*domain.SearchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) == 0 {
		return nil, nil
	}
	rec := r.records[len(r.records)-1]
	return &rec, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.SearchCompleted
	err    error
}

func (p *recordingPublisher) PublishSearchCompleted(_ context.Context, event domain.SearchCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

var pipelineNow = time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

func allPlatformsProfile() domain.UserProfile {
	return domain.UserProfile{
		Skills: []string{"Go"},
		JobPreferences: domain.JobPreferences{
			Platforms: domain.PlatformSelection{LinkedIn: true, Indeed: true, Glassdoor: true},
		},
	}
}

func newTestPipeline(repo *memorySearchRepo, scorer fixedScorer, sources ...source.Source) *Pipeline {
	reg := source.NewRegistry(nil)
	for _, s := range sources {
		reg.Register(s)
	}
	return NewPipeline(PipelineDeps{
		Registry:   reg,
		Scorer:     scorer,
		Repository: repo,
		Clock:      func() time.Time { return pipelineNow },
	})
}

func listingIDs(listings []domain.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

func TestSearchSortIsStableByScore(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "linkedin", total: 4, listings: []domain.Listing{{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "D"}}}
	scorer := fixedScorer{scores: map[string]int{"A": 50, "B": 80, "C": 50, "D": 90}}
	repo := &memorySearchRepo{}

	result, err := newTestPipeline(repo, scorer, src).Search(context.Background(), allPlatformsProfile(), domain.SearchFilters{}, SearchOptions{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}

	want := []string{"D", "B", "A", "C"}
	got := listingIDs(result.Listings)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSearchUnscoredSortsAsZero(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "linkedin", listings: []domain.Listing{{ID: "bad"}, {ID: "low"}, {ID: "none"}}}
	scorer := fixedScorer{scores: map[string]int{"low": 1}, fail: map[string]bool{"bad": true}}

	result, err := newTestPipeline(&memorySearchRepo{}, scorer, src).Search(context.Background(), allPlatformsProfile(), domain.SearchFilters{}, SearchOptions{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	got := listingIDs(result.Listings)
	if len(got) != 3 || got[0] != "low" || got[1] != "bad" || got[2] != "none" {
		t.Fatalf("unexpected order %v", got)
	}
	if result.Listings[1].AIScore != nil {
		t.Fatal("listing that failed scoring should stay unscored")
	}
}

func TestSearchSkipsFailingSource(t *testing.T) {
	t.Parallel()

	failing := &fakeSource{name: "linkedin", err: source.Unavailable("linkedin", errors.New("captcha")), total: 999}
	ok := &fakeSource{name: "indeed", total: 120, listings: []domain.Listing{{ID: "i1"}, {ID: "i2"}}}

	result, err := newTestPipeline(&memorySearchRepo{}, fixedScorer{}, failing, ok).Search(context.Background(), allPlatformsProfile(), domain.SearchFilters{}, SearchOptions{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if result.TotalResults != 120 {
		t.Fatalf("expected total from succeeding source only, got %d", result.TotalResults)
	}
	if got := listingIDs(result.Listings); len(got) != 2 || got[0] != "i1" || got[1] != "i2" {
		t.Fatalf("unexpected listings %v", got)
	}
}

func TestSearchSourceTimeoutIsSkipped(t *testing.T) {
	t.Parallel()

	slow := &fakeSource{name: "linkedin", delay: time.Second, total: 10, listings: []domain.Listing{{ID: "slow"}}}
	fast := &fakeSource{name: "indeed", total: 5, listings: []domain.Listing{{ID: "fast"}}}

	reg := source.NewRegistry(nil)
	reg.Register(slow)
	reg.Register(fast)
	p := NewPipeline(PipelineDeps{Registry: reg, SourceTimeout: 20 * time.Millisecond})

	result, err := p.Search(context.Background(), allPlatformsProfile(), domain.SearchFilters{}, SearchOptions{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if result.TotalResults != 5 || len(result.Listings) != 1 || result.Listings[0].ID != "fast" {
		t.Fatalf("expected only the fast source, got %+v", result)
	}
}

func TestSearchMergesInDeclarationOrder(t *testing.T) {
	t.Parallel()

	first := &fakeSource{name: "linkedin", delay: 30 * time.Millisecond, listings: []domain.Listing{{ID: "l1"}, {ID: "l2"}}}
	second := &fakeSource{name: "indeed", listings: []domain.Listing{{ID: "i1"}}}
	third := &fakeSource{name: "glassdoor", delay: 10 * time.Millisecond, listings: []domain.Listing{{ID: "g1"}}}

	result, err := newTestPipeline(&memorySearchRepo{}, fixedScorer{}, first, second, third).Search(context.Background(), allPlatformsProfile(), domain.SearchFilters{}, SearchOptions{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	want := []string{"l1", "l2", "i1", "g1"}
	got := listingIDs(result.Listings)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSearchEndToEnd(t *testing.T) {
	t.Parallel()

	const n = 5
	build := func(prefix, desc string) []domain.Listing {
		out := make([]domain.Listing, n)
		for i := range out {
			out[i] = domain.Listing{
				ID:           fmt.Sprintf("%s-%d", prefix, i),
				Title:        fmt.Sprintf("Engineer %d", i),
				Description:  desc,
				Requirements: []string{"Go", fmt.Sprintf("%d years of experience", i)},
			}
		}
		return out
	}
	one := build("linkedin", "Go services")
	one[2].Description = "Go services, security clearance required"
	two := build("indeed", "Python and Go")

	reg := source.NewRegistry(nil)
	reg.Register(&fakeSource{name: "linkedin", listings: one, total: 150})
	reg.Register(&fakeSource{name: "indeed", listings: two, total: 120})
	repo := &memorySearchRepo{}
	p := NewPipeline(PipelineDeps{
		Registry:   reg,
		Scorer:     match.NewScorer(match.Options{Seed: 11}),
		Repository: repo,
		Clock:      func() time.Time { return pipelineNow },
	})

	profile := domain.UserProfile{
		Skills: []string{"Go", "Python", "Kubernetes"},
		JobPreferences: domain.JobPreferences{
			Platforms: domain.PlatformSelection{LinkedIn: true, Indeed: true},
		},
	}
	result, err := p.Search(context.Background(), profile, domain.SearchFilters{ExcludeKeywords: []string{"clearance"}}, SearchOptions{Page: 1, PerPage: 20})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}

	if len(result.Listings) != 2*n-1 {
		t.Fatalf("expected %d listings, got %d", 2*n-1, len(result.Listings))
	}
	if result.TotalResults != 270 {
		t.Fatalf("expected summed total 270, got %d", result.TotalResults)
	}
	for i := 1; i < len(result.Listings); i++ {
		if result.Listings[i-1].ScoreOrZero() < result.Listings[i].ScoreOrZero() {
			t.Fatalf("listings not sorted descending at %d", i)
		}
	}
	for _, l := range result.Listings {
		if l.ID == "linkedin-2" {
			t.Fatal("excluded listing survived")
		}
		if l.AIScore == nil {
			t.Fatalf("listing %s was not scored", l.ID)
		}
	}
	if result.Listings[0].ID[:6] != "indeed" {
		t.Fatalf("expected indeed listings (Go and Python) first, got %s", result.Listings[0].ID)
	}

	rec, _ := repo.LastSearch(context.Background())
	if rec == nil || len(rec.Listings) != 2*n-1 || rec.Timestamp != pipelineNow.UnixMilli() {
		t.Fatalf("unexpected persisted record: %+v", rec)
	}
	if len(rec.Filters.ExcludeKeywords) != 1 {
		t.Fatalf("expected effective filters persisted, got %+v", rec.Filters)
	}
}

func TestSearchPersistenceFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "linkedin", total: 1, listings: []domain.Listing{{ID: "x"}}}
	repo := &memorySearchRepo{err: errors.New("disk full")}
	pub := &recordingPublisher{}

	reg := source.NewRegistry(nil)
	reg.Register(src)
	p := NewPipeline(PipelineDeps{Registry: reg, Repository: repo, Publisher: pub})

	result, err := p.Search(context.Background(), allPlatformsProfile(), domain.SearchFilters{}, SearchOptions{})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(result.Listings) != 1 || result.TotalResults != 1 {
		t.Fatalf("expected computed result alongside the error, got %+v", result)
	}
	if len(pub.events) != 0 {
		t.Fatal("no event should be published when persisting fails")
	}
}

func TestSearchPublishesCompletedEvent(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "linkedin", total: 40, listings: []domain.Listing{{ID: "a"}, {ID: "b"}}}
	pub := &recordingPublisher{err: errors.New("broker down")}

	reg := source.NewRegistry(nil)
	reg.Register(src)
	p := NewPipeline(PipelineDeps{
		Registry:  reg,
		Scorer:    fixedScorer{scores: map[string]int{"a": 40, "b": 70}},
		Publisher: pub,
		Clock:     func() time.Time { return pipelineNow },
	})

	if _, err := p.Search(context.Background(), allPlatformsProfile(), domain.SearchFilters{}, SearchOptions{}); err != nil {
		t.Fatalf("publish failure must not fail the search: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Listings != 2 || ev.TotalResults != 40 || ev.TopScore != 70 || !ev.Timestamp.Equal(pipelineNow) {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestSearchPlatformFilterNarrowsProfile(t *testing.T) {
	t.Parallel()

	li := &fakeSource{name: "linkedin", total: 1, listings: []domain.Listing{{ID: "li"}}}
	in := &fakeSource{name: "indeed", total: 1, listings: []domain.Listing{{ID: "in"}}}
	gd := &fakeSource{name: "glassdoor", total: 1, listings: []domain.Listing{{ID: "gd"}}}

	profile := allPlatformsProfile()
	profile.JobPreferences.Platforms.Indeed = false

	result, err := newTestPipeline(&memorySearchRepo{}, fixedScorer{}, li, in, gd).Search(context.Background(), profile,
		domain.SearchFilters{Platforms: []string{"glassdoor", "indeed"}}, SearchOptions{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got := listingIDs(result.Listings); len(got) != 1 || got[0] != "gd" {
		t.Fatalf("expected only glassdoor, got %v", got)
	}
}

func TestSearchNoEnabledSources(t *testing.T) {
	t.Parallel()

	repo := &memorySearchRepo{}
	result, err := newTestPipeline(repo, fixedScorer{}, &fakeSource{name: "linkedin"}).Search(context.Background(), domain.UserProfile{}, domain.SearchFilters{}, SearchOptions{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(result.Listings) != 0 || result.TotalResults != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if len(repo.records) != 1 {
		t.Fatal("empty search should still be persisted")
	}
}

func TestEffectiveFilters(t *testing.T) {
	t.Parallel()

	minSalary := 90000
	profile := domain.UserProfile{JobPreferences: domain.JobPreferences{
		Titles:          []string{"Go Developer", "Backend Engineer"},
		Locations:       []string{"Berlin", "Remote"},
		Remote:          true,
		MinSalary:       &minSalary,
		JobTypes:        []domain.JobType{domain.JobTypeFullTime},
		IncludeKeywords: []string{"go"},
		ExcludeKeywords: []string{"php"},
	}}

	got := EffectiveFilters(profile, domain.SearchFilters{})
	if got.Title != "Go Developer" || got.Location != "Berlin" || !got.IsRemote() {
		t.Fatalf("profile defaults not applied: %+v", got)
	}
	if got.Salary == nil || *got.Salary != 90000 || len(got.JobType) != 1 {
		t.Fatalf("salary or job type not applied: %+v", got)
	}
	if got.IncludeKeywords[0] != "go" || got.ExcludeKeywords[0] != "php" {
		t.Fatalf("keywords not applied: %+v", got)
	}

	notRemote := false
	explicit := domain.SearchFilters{
		Title:           "SRE",
		Remote:          &notRemote,
		ExcludeKeywords: []string{"java"},
		DatePosted:      domain.PostedPastWeek,
	}
	got = EffectiveFilters(profile, explicit)
	if got.Title != "SRE" || got.IsRemote() || got.ExcludeKeywords[0] != "java" || got.DatePosted != domain.PostedPastWeek {
		t.Fatalf("explicit filters must win: %+v", got)
	}
	if got.Location != "Berlin" {
		t.Fatalf("unset location should come from profile, got %s", got.Location)
	}

	got = EffectiveFilters(domain.UserProfile{}, domain.SearchFilters{})
	if got.Title != "" || got.Location != "" || got.Salary != nil || got.IsRemote() {
		t.Fatalf("empty profile should leave fields unset: %+v", got)
	}
}

func TestEffectiveFiltersKeepsExplicitEmptyLists(t *testing.T) {
	t.Parallel()

	profile := allPlatformsProfile()
	profile.JobPreferences.IncludeKeywords = []string{"kotlin"}
	profile.JobPreferences.ExcludeKeywords = []string{"senior"}
	profile.JobPreferences.JobTypes = []domain.JobType{domain.JobTypeFullTime}

	var filters domain.SearchFilters
	body := `{"includeKeywords":[],"excludeKeywords":[],"jobType":[]}`
	if err := json.Unmarshal([]byte(body), &filters); err != nil {
		t.Fatalf("decode filters: %v", err)
	}

	got := EffectiveFilters(profile, filters)
	if got.IncludeKeywords == nil || len(got.IncludeKeywords) != 0 {
		t.Fatalf("explicit empty include list must be kept, got %v", got.IncludeKeywords)
	}
	if got.ExcludeKeywords == nil || len(got.ExcludeKeywords) != 0 {
		t.Fatalf("explicit empty exclude list must be kept, got %v", got.ExcludeKeywords)
	}
	if got.JobType == nil || len(got.JobType) != 0 {
		t.Fatalf("explicit empty job types must be kept, got %v", got.JobType)
	}

	src := &fakeSource{name: "linkedin", total: 1, listings: []domain.Listing{
		{ID: "go", Title: "Senior Go Developer", Description: "Go services"},
	}}
	result, err := newTestPipeline(&memorySearchRepo{}, fixedScorer{}, src).Search(context.Background(), profile, filters, SearchOptions{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(result.Listings) != 1 {
		t.Fatalf("cleared keywords should keep the listing, got %v", listingIDs(result.Listings))
	}

	unset := EffectiveFilters(profile, domain.SearchFilters{})
	if len(unset.IncludeKeywords) != 1 || unset.IncludeKeywords[0] != "kotlin" {
		t.Fatalf("unset include list should come from the profile, got %v", unset.IncludeKeywords)
	}
}
