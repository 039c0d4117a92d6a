package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/ports"
)

var (
	// ErrNotFound is returned when a saved listing or application does not exist.
	ErrNotFound = errors.New("not found")
	// ErrApplicationFailed is returned when the auto-filler could not submit an application.
	ErrApplicationFailed = errors.New("application failed")
	// ErrNoProfile is returned when an operation needs a stored profile and there is none.
	ErrNoProfile = errors.New("no profile stored")
)

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

const dashboardTopResults = 3

// LibraryDeps wires the library to its collaborators.
type LibraryDeps struct {
	Repository ports.LibraryRepository
	AutoFiller ports.AutoFiller
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Library manages the profile, saved listings and applications.
// Updates that touch two keys are two independent writes.
type Library struct {
	repo     ports.LibraryRepository
	autofill ports.AutoFiller
	logger   *slog.Logger
	clock    func() time.Time
}

// NewLibrary builds the library use case.
func NewLibrary(deps LibraryDeps) *Library {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Library{repo: deps.Repository, autofill: deps.AutoFiller, logger: logger, clock: clock}
}

// ApplyRequest carries the user's input for one application.
type ApplyRequest struct {
	CoverLetter string `json:"coverLetter"`
	Notes       string `json:"notes"`
	Status      string `json:"status"`
	ResumeUsed  string `json:"resumeUsed"`
}

// FollowUpRequest carries one follow-up entry. A zero Date means now.
type FollowUpRequest struct {
	Date   time.Time `json:"date"`
	Method string    `json:"method"`
	Notes  string    `json:"notes"`
}

// Dashboard summarises saved listings, applications and the last search.
type Dashboard struct {
	TotalSaved      int              `json:"totalSaved"`
	TotalApplied    int              `json:"totalApplied"`
	TotalInterviews int              `json:"totalInterviews"`
	AvgMatchScore   int              `json:"avgMatchScore"`
	TopResults      []domain.Listing `json:"topResults"`
}

// Profile returns the stored profile or ErrNoProfile.
func (l *Library) Profile(ctx context.Context) (domain.UserProfile, error) {
	profile, err := l.repo.Profile(ctx)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return domain.UserProfile{}, ErrNoProfile
	}
	return *profile, nil
}

// SaveProfile validates and stores the profile.
func (l *Library) SaveProfile(ctx context.Context, profile domain.UserProfile) error {
	if strings.TrimSpace(profile.Name) == "" {
		return &ValidationError{Msg: "name is required"}
	}
	if strings.TrimSpace(profile.Email) == "" {
		return &ValidationError{Msg: "email is required"}
	}
	if err := l.repo.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// LastSearch returns the stored search record, or nil when none exists.
func (l *Library) LastSearch(ctx context.Context) (*domain.SearchRecord, error) {
	record, err := l.repo.LastSearch(ctx)
	if err != nil {
		return nil, fmt.Errorf("load last search: %w", err)
	}
	return record, nil
}

// SavedListings returns every saved listing in save order.
func (l *Library) SavedListings(ctx context.Context) ([]domain.Listing, error) {
	saved, err := l.repo.SavedListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load saved listings: %w", err)
	}
	return saved, nil
}

// SavedIDs returns the set of saved listing ids.
func (l *Library) SavedIDs(ctx context.Context) (map[string]struct{}, error) {
	saved, err := l.SavedListings(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(saved))
	for _, s := range saved {
		ids[s.ID] = struct{}{}
	}
	return ids, nil
}

// AnnotateSaved returns copies of listings with Saved set for ids in the saved set.
func (l *Library) AnnotateSaved(ctx context.Context, listings []domain.Listing) ([]domain.Listing, error) {
	ids, err := l.SavedIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Listing, len(listings))
	for i, listing := range listings {
		out[i] = listing.Clone()
		if _, ok := ids[listing.ID]; ok {
			out[i].Saved = true
		}
	}
	return out, nil
}

// SaveListing appends listing as saved. Saving an id twice keeps the first copy.
func (l *Library) SaveListing(ctx context.Context, listing domain.Listing) (domain.Listing, error) {
	if strings.TrimSpace(listing.ID) == "" {
		return domain.Listing{}, &ValidationError{Msg: "listing id is required"}
	}

	saved, err := l.SavedListings(ctx)
	if err != nil {
		return domain.Listing{}, err
	}
	for _, s := range saved {
		if s.ID == listing.ID {
			return s, nil
		}
	}

	stored := listing.Clone()
	stored.Saved = true
	stored.Status = domain.StatusSaved
	saved = append(saved, stored)
	if err := l.repo.SetSavedListings(ctx, saved); err != nil {
		return domain.Listing{}, fmt.Errorf("save listing %s: %w", listing.ID, err)
	}
	l.logger.Debug("listing saved", "listing", listing.ID)
	return stored, nil
}

// UnsaveListing removes a saved listing. Unknown ids are ignored.
func (l *Library) UnsaveListing(ctx context.Context, id string) error {
	saved, err := l.SavedListings(ctx)
	if err != nil {
		return err
	}
	kept := make([]domain.Listing, 0, len(saved))
	for _, s := range saved {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(saved) {
		return nil
	}
	if err := l.repo.SetSavedListings(ctx, kept); err != nil {
		return fmt.Errorf("unsave listing %s: %w", id, err)
	}
	return nil
}

// Apply submits an application for a saved listing through the auto-filler.
// On success the listing is marked applied and the application record is replaced by job id.
// Re-applying keeps the follow-ups and must not move the status backwards.
func (l *Library) Apply(ctx context.Context, jobID string, req ApplyRequest) (domain.ApplicationDetails, error) {
	status := domain.ApplicationApplied
	if req.Status != "" {
		parsed, err := domain.ParseApplicationStatus(req.Status)
		if err != nil {
			return domain.ApplicationDetails{}, &ValidationError{Msg: err.Error()}
		}
		status = parsed
	}

	profile, err := l.Profile(ctx)
	if err != nil {
		return domain.ApplicationDetails{}, err
	}
	saved, err := l.SavedListings(ctx)
	if err != nil {
		return domain.ApplicationDetails{}, err
	}
	idx := indexOfListing(saved, jobID)
	if idx < 0 {
		return domain.ApplicationDetails{}, fmt.Errorf("saved listing %s: %w", jobID, ErrNotFound)
	}
	listing := saved[idx]

	apps, err := l.repo.Applications(ctx)
	if err != nil {
		return domain.ApplicationDetails{}, fmt.Errorf("load applications: %w", err)
	}
	var followUps []domain.FollowUp
	if i := indexOfApplication(apps, jobID); i >= 0 {
		current := apps[i].Status
		if current != status && !domain.IsApplicationTransitionAllowed(current, status) {
			return domain.ApplicationDetails{}, &ValidationError{
				Msg: fmt.Sprintf("job %s already has a %s application", jobID, current),
			}
		}
		followUps = apps[i].FollowUps
	}

	if l.autofill == nil {
		return domain.ApplicationDetails{}, fmt.Errorf("%w: auto-fill is not configured", ErrApplicationFailed)
	}
	result, err := l.autofill.Submit(ctx, domain.AutoFillRequest{
		JobURL:      listing.URL,
		Listing:     listing,
		Profile:     profile,
		CoverLetter: req.CoverLetter,
	})
	if err != nil {
		return domain.ApplicationDetails{}, fmt.Errorf("%w: %w", ErrApplicationFailed, err)
	}
	if !result.Success {
		l.logger.Info("auto-fill rejected application", "listing", jobID, "message", result.Message)
		return domain.ApplicationDetails{}, fmt.Errorf("%w: %s", ErrApplicationFailed, result.Message)
	}

	saved[idx].MarkStatus(status.ListingStatus())
	if err := l.repo.SetSavedListings(ctx, saved); err != nil {
		return domain.ApplicationDetails{}, fmt.Errorf("mark listing %s applied: %w", jobID, err)
	}

	appliedDate := result.AppliedDate
	if appliedDate.IsZero() {
		appliedDate = l.clock()
	}
	app := domain.ApplicationDetails{
		JobID:          jobID,
		AppliedDate:    appliedDate,
		CoverLetter:    req.CoverLetter,
		ResumeUsed:     req.ResumeUsed,
		ApplicationURL: result.ApplicationURL,
		Notes:          req.Notes,
		Status:         status,
		FollowUps:      followUps,
	}

	updated := make([]domain.ApplicationDetails, 0, len(apps)+1)
	for _, a := range apps {
		if a.JobID != jobID {
			updated = append(updated, a)
		}
	}
	updated = append(updated, app)
	if err := l.repo.SetApplications(ctx, updated); err != nil {
		return domain.ApplicationDetails{}, fmt.Errorf("save application %s: %w", jobID, err)
	}

	l.logger.Info("application submitted", "listing", jobID, "status", status)
	return app, nil
}

// UpdateApplicationStatus moves an application forward and mirrors the status on the saved listing.
func (l *Library) UpdateApplicationStatus(ctx context.Context, jobID, rawStatus string) (domain.ApplicationDetails, error) {
	next, err := domain.ParseApplicationStatus(rawStatus)
	if err != nil {
		return domain.ApplicationDetails{}, &ValidationError{Msg: err.Error()}
	}

	apps, err := l.repo.Applications(ctx)
	if err != nil {
		return domain.ApplicationDetails{}, fmt.Errorf("load applications: %w", err)
	}
	idx := indexOfApplication(apps, jobID)
	if idx < 0 {
		return domain.ApplicationDetails{}, fmt.Errorf("application %s: %w", jobID, ErrNotFound)
	}

	current := apps[idx].Status
	if current == next {
		return apps[idx], nil
	}
	if !domain.IsApplicationTransitionAllowed(current, next) {
		return domain.ApplicationDetails{}, &ValidationError{
			Msg: fmt.Sprintf("transition %s -> %s is not allowed", current, next),
		}
	}

	apps[idx].Status = next
	if err := l.repo.SetApplications(ctx, apps); err != nil {
		return domain.ApplicationDetails{}, fmt.Errorf("save application %s: %w", jobID, err)
	}

	saved, err := l.SavedListings(ctx)
	if err != nil {
		return domain.ApplicationDetails{}, err
	}
	if i := indexOfListing(saved, jobID); i >= 0 {
		saved[i].MarkStatus(next.ListingStatus())
		if err := l.repo.SetSavedListings(ctx, saved); err != nil {
			return domain.ApplicationDetails{}, fmt.Errorf("update listing %s status: %w", jobID, err)
		}
	}

	l.logger.Info("application status changed", "listing", jobID, "from", current, "to", next)
	return apps[idx], nil
}

// AddFollowUp appends a follow-up to an application.
func (l *Library) AddFollowUp(ctx context.Context, jobID string, req FollowUpRequest) (domain.ApplicationDetails, error) {
	method, err := domain.ParseFollowUpMethod(req.Method)
	if err != nil {
		return domain.ApplicationDetails{}, &ValidationError{Msg: err.Error()}
	}

	apps, err := l.repo.Applications(ctx)
	if err != nil {
		return domain.ApplicationDetails{}, fmt.Errorf("load applications: %w", err)
	}
	idx := indexOfApplication(apps, jobID)
	if idx < 0 {
		return domain.ApplicationDetails{}, fmt.Errorf("application %s: %w", jobID, ErrNotFound)
	}

	date := req.Date
	if date.IsZero() {
		date = l.clock()
	}
	apps[idx].FollowUps = append(apps[idx].FollowUps, domain.FollowUp{Date: date, Method: method, Notes: req.Notes})
	if err := l.repo.SetApplications(ctx, apps); err != nil {
		return domain.ApplicationDetails{}, fmt.Errorf("save follow-up %s: %w", jobID, err)
	}
	return apps[idx], nil
}

// Applications lists applications newest first, optionally filtered by status.
func (l *Library) Applications(ctx context.Context, statusFilter string) ([]domain.ApplicationDetails, error) {
	var want domain.ApplicationStatus
	if statusFilter != "" {
		parsed, err := domain.ParseApplicationStatus(statusFilter)
		if err != nil {
			return nil, &ValidationError{Msg: err.Error()}
		}
		want = parsed
	}

	apps, err := l.repo.Applications(ctx)
	if err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}
	out := make([]domain.ApplicationDetails, 0, len(apps))
	for _, a := range apps {
		if want == "" || a.Status == want {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppliedDate.After(out[j].AppliedDate)
	})
	return out, nil
}

// Dashboard computes the overview counters.
func (l *Library) Dashboard(ctx context.Context) (Dashboard, error) {
	saved, err := l.SavedListings(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	record, err := l.LastSearch(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{TotalSaved: len(saved), TopResults: []domain.Listing{}}
	sum := 0
	for _, s := range saved {
		sum += s.ScoreOrZero()
		if s.Applied || (s.Status != domain.StatusNew && s.Status != domain.StatusSaved) {
			d.TotalApplied++
			if s.Status == domain.StatusInterviewing {
				d.TotalInterviews++
			}
		}
	}
	if len(saved) > 0 {
		d.AvgMatchScore = int(math.Floor(float64(sum)/float64(len(saved)) + 0.5))
	}
	if record != nil {
		n := min(dashboardTopResults, len(record.Listings))
		d.TopResults = append(d.TopResults, record.Listings[:n]...)
	}
	return d, nil
}

// CoverLetter renders a cover letter for a saved listing from the stored profile.
func (l *Library) CoverLetter(ctx context.Context, jobID string) (string, error) {
	profile, err := l.Profile(ctx)
	if err != nil {
		return "", err
	}
	saved, err := l.SavedListings(ctx)
	if err != nil {
		return "", err
	}
	idx := indexOfListing(saved, jobID)
	if idx < 0 {
		return "", fmt.Errorf("saved listing %s: %w", jobID, ErrNotFound)
	}
	if l.autofill == nil {
		return "", fmt.Errorf("cover letter: auto-fill is not configured")
	}
	return l.autofill.CoverLetter(saved[idx], profile), nil
}

// ClearAll removes every stored key.
func (l *Library) ClearAll(ctx context.Context) error {
	if err := l.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear all data: %w", err)
	}
	l.logger.Info("all data cleared")
	return nil
}

func indexOfListing(listings []domain.Listing, id string) int {
	for i, l := range listings {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func indexOfApplication(apps []domain.ApplicationDetails, jobID string) int {
	for i, a := range apps {
		if a.JobID == jobID {
			return i
		}
	}
	return -1
}
