package domain

import (
	"fmt"
	"time"
)

// Status tracks where a listing sits in the user's search funnel.
type Status string

const (
	StatusNew          Status = "new"
	StatusSaved        Status = "saved"
	StatusApplied      Status = "applied"
	StatusInterviewing Status = "interviewing"
	StatusOffered      Status = "offered"
	StatusRejected     Status = "rejected"
)

// ParseStatus converts a raw string to a Status. Matching is exact.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusNew, StatusSaved, StatusApplied, StatusInterviewing, StatusOffered, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown listing status %q", s)
}

// SkillMatch explains one profile skill found in a listing.
type SkillMatch struct {
	Skill      string  `json:"skill"`
	Confidence float64 `json:"confidence"`
}

// Mismatch explains one listing requirement no profile skill covers.
type Mismatch struct {
	Requirement string `json:"requirement"`
	Reason      string `json:"reason"`
}

// Listing is a single job posting aggregated from one source.
type Listing struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Company      string       `json:"company"`
	Location     string       `json:"location"`
	Description  string       `json:"description"`
	Salary       string       `json:"salary,omitempty"`
	URL          string       `json:"url"`
	DatePosted   time.Time    `json:"datePosted"`
	Platform     string       `json:"platform"`
	Requirements []string     `json:"requirements,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	Applied      bool         `json:"applied"`
	Saved        bool         `json:"saved"`
	AIScore      *int         `json:"aiScore,omitempty"`
	AIMatches    []SkillMatch `json:"aiMatches,omitempty"`
	AIMismatches []Mismatch   `json:"aiMismatches,omitempty"`
	Status       Status       `json:"status"`
}

// ScoreOrZero returns the match score, treating unscored listings as 0.
func (l Listing) ScoreOrZero() int {
	if l.AIScore == nil {
		return 0
	}
	return *l.AIScore
}

// Clone returns a copy that shares no slices or pointers with l.
func (l Listing) Clone() Listing {
	out := l
	if l.Requirements != nil {
		out.Requirements = append([]string(nil), l.Requirements...)
	}
	if l.Tags != nil {
		out.Tags = append([]string(nil), l.Tags...)
	}
	if l.AIScore != nil {
		score := *l.AIScore
		out.AIScore = &score
	}
	if l.AIMatches != nil {
		out.AIMatches = append([]SkillMatch(nil), l.AIMatches...)
	}
	if l.AIMismatches != nil {
		out.AIMismatches = append([]Mismatch(nil), l.AIMismatches...)
	}
	return out
}

// MarkStatus moves the listing to s and keeps the saved/applied flags consistent with it.
func (l *Listing) MarkStatus(s Status) {
	l.Status = s
	switch s {
	case StatusSaved:
		l.Saved = true
	case StatusApplied, StatusInterviewing, StatusOffered, StatusRejected:
		l.Saved = true
		l.Applied = true
	}
}
