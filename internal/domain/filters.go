package domain

import "time"

// PostedWithin limits how old a listing may be.
type PostedWithin string

const (
	PostedToday     PostedWithin = "today"
	PostedPast3Days PostedWithin = "past3Days"
	PostedPastWeek  PostedWithin = "pastWeek"
	PostedPastMonth PostedWithin = "pastMonth"
	PostedAnytime   PostedWithin = "anytime"
)

// Cutoff returns the oldest acceptable posting time, or the zero time when there is no limit.
func (p PostedWithin) Cutoff(now time.Time) time.Time {
	switch p {
	case PostedToday:
		return now.Add(-24 * time.Hour)
	case PostedPast3Days:
		return now.Add(-3 * 24 * time.Hour)
	case PostedPastWeek:
		return now.Add(-7 * 24 * time.Hour)
	case PostedPastMonth:
		return now.AddDate(0, -1, 0)
	default:
		return time.Time{}
	}
}

// JobType is an employment arrangement.
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
)

// ExperienceLevel is a seniority bucket.
type ExperienceLevel string

const (
	ExperienceEntry    ExperienceLevel = "entry"
	ExperienceMid      ExperienceLevel = "mid"
	ExperienceSenior   ExperienceLevel = "senior"
	ExperienceDirector ExperienceLevel = "director"
)

// SearchFilters narrows a search. Zero values mean "unset"; an empty non-nil list is an explicit "none".
type SearchFilters struct {
	Title           string            `json:"title,omitempty"`
	Location        string            `json:"location,omitempty"`
	Remote          *bool             `json:"remote,omitempty"`
	Salary          *int              `json:"salary,omitempty"`
	DatePosted      PostedWithin      `json:"datePosted,omitempty"`
	JobType         []JobType         `json:"jobType,omitempty"`
	Experience      []ExperienceLevel `json:"experience,omitempty"`
	IncludeKeywords []string          `json:"includeKeywords,omitempty"`
	ExcludeKeywords []string          `json:"excludeKeywords,omitempty"`
	Platforms       []string          `json:"platforms,omitempty"`
}

// IsRemote reports whether the remote flag is set and true.
func (f SearchFilters) IsRemote() bool {
	return f.Remote != nil && *f.Remote
}

// SearchRecord is the persisted result of the last completed search.
type SearchRecord struct {
	Listings  []Listing     `json:"listings"`
	Timestamp int64         `json:"timestamp"`
	Filters   SearchFilters `json:"filters"`
}
