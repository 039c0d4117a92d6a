package domain

import (
	"fmt"
	"time"
)

// ApplicationStatus is the lifecycle of a submitted application.
//
//	applied ──► interviewing ──► offered
//	   │              │             │
//	   └──────────────┴─────────────┴──► rejected
//
// applied may also jump straight to offered. rejected is terminal.
type ApplicationStatus string

const (
	ApplicationApplied      ApplicationStatus = "applied"
	ApplicationInterviewing ApplicationStatus = "interviewing"
	ApplicationOffered      ApplicationStatus = "offered"
	ApplicationRejected     ApplicationStatus = "rejected"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationApplied:      {ApplicationInterviewing, ApplicationOffered, ApplicationRejected},
	ApplicationInterviewing: {ApplicationOffered, ApplicationRejected},
	ApplicationOffered:      {ApplicationRejected},
}

// ParseApplicationStatus converts a raw string to an ApplicationStatus.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(s)
	switch st {
	case ApplicationApplied, ApplicationInterviewing, ApplicationOffered, ApplicationRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsApplicationTransitionAllowed reports whether from -> to is a forward move.
func IsApplicationTransitionAllowed(from, to ApplicationStatus) bool {
	for _, s := range applicationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ListingStatus maps an application status onto the listing funnel.
func (s ApplicationStatus) ListingStatus() Status {
	return Status(s)
}

// FollowUpMethod is how the user chased an application.
type FollowUpMethod string

const (
	FollowUpEmail FollowUpMethod = "email"
	FollowUpPhone FollowUpMethod = "phone"
	FollowUpOther FollowUpMethod = "other"
)

// ParseFollowUpMethod converts a raw string to a FollowUpMethod.
func ParseFollowUpMethod(s string) (FollowUpMethod, error) {
	m := FollowUpMethod(s)
	switch m {
	case FollowUpEmail, FollowUpPhone, FollowUpOther:
		return m, nil
	}
	return "", fmt.Errorf("unknown follow-up method %q", s)
}

// FollowUp records one contact after applying.
type FollowUp struct {
	Date   time.Time      `json:"date"`
	Method FollowUpMethod `json:"method"`
	Notes  string         `json:"notes"`
}

// ApplicationDetails is the stored record of one application, keyed by job id.
type ApplicationDetails struct {
	JobID          string            `json:"jobId"`
	AppliedDate    time.Time         `json:"appliedDate"`
	CoverLetter    string            `json:"coverLetter,omitempty"`
	ResumeUsed     string            `json:"resumeUsed,omitempty"`
	ApplicationURL string            `json:"applicationUrl,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Status         ApplicationStatus `json:"status"`
	FollowUps      []FollowUp        `json:"followUps,omitempty"`
}
