package ports

import (
	"context"
	"time"

	"JobCopilot/internal/domain"
)

// Scorer annotates a listing with a profile match score and explanations.
type Scorer interface {
	Score(ctx context.Context, listing domain.Listing, profile domain.UserProfile) (domain.Listing, error)
}

// Store is an opaque key-value namespace with whole-value get/set per key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
}

// SearchRepository persists the last completed search.
type SearchRepository interface {
	SaveSearch(ctx context.Context, record domain.SearchRecord) error
	LastSearch(ctx context.Context) (*domain.SearchRecord, error)
}

// LibraryRepository is the typed view over every persisted key.
type LibraryRepository interface {
	SearchRepository
	Profile(ctx context.Context) (*domain.UserProfile, error)
	SaveProfile(ctx context.Context, profile domain.UserProfile) error
	SavedListings(ctx context.Context) ([]domain.Listing, error)
	SetSavedListings(ctx context.Context, listings []domain.Listing) error
	Applications(ctx context.Context) ([]domain.ApplicationDetails, error)
	SetApplications(ctx context.Context, apps []domain.ApplicationDetails) error
	Clear(ctx context.Context) error
}

// EventPublisher announces completed searches to other consumers.
type EventPublisher interface {
	PublishSearchCompleted(ctx context.Context, event domain.SearchCompleted) error
}

// AutoFiller submits an application on the user's behalf.
type AutoFiller interface {
	Submit(ctx context.Context, req domain.AutoFillRequest) (domain.AutoFillResult, error)
	CoverLetter(listing domain.Listing, profile domain.UserProfile) string
}

// Scheduler controls when recurring searches execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
