package domain

import "time"

// SearchCompleted is published after a search result has been persisted.
type SearchCompleted struct {
	Timestamp    time.Time     `json:"timestamp"`
	Listings     int           `json:"listings"`
	TotalResults int           `json:"totalResults"`
	TopScore     int           `json:"topScore"`
	Filters      SearchFilters `json:"filters"`
}

// AutoFillRequest is everything an auto-filler needs to submit one application.
type AutoFillRequest struct {
	JobURL      string
	Listing     Listing
	Profile     UserProfile
	CoverLetter string
}

// AutoFillResult reports the outcome of an automated submission.
type AutoFillResult struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	AppliedDate    time.Time `json:"appliedDate,omitempty"`
	ApplicationURL string    `json:"applicationUrl,omitempty"`
}
