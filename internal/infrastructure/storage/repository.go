// Package storage implements the key-value store backends and the typed repository on top of them.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/ports"
)

// Persisted keys.
const (
	KeySearchResults = "searchResults"
	KeySavedJobs     = "savedJobs"
	KeyApplications  = "applications"
	KeyUserData      = "userData"
)

// Repository stores JSON documents under the fixed keys.
type Repository struct {
	store ports.Store
}

var _ ports.LibraryRepository = (*Repository)(nil)

// NewRepository wraps a store.
func NewRepository(store ports.Store) *Repository {
	return &Repository{store: store}
}

// LastSearch returns nil when no search has been stored.
func (r *Repository) LastSearch(ctx context.Context) (*domain.SearchRecord, error) {
	var record domain.SearchRecord
	found, err := r.load(ctx, KeySearchResults, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// SaveSearch overwrites the last search record.
func (r *Repository) SaveSearch(ctx context.Context, record domain.SearchRecord) error {
	return r.save(ctx, KeySearchResults, record)
}

// Profile returns nil when no profile has been stored.
func (r *Repository) Profile(ctx context.Context) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	found, err := r.load(ctx, KeyUserData, &profile)
	if err != nil || !found {
		return nil, err
	}
	return &profile, nil
}

// SaveProfile overwrites the stored profile.
func (r *Repository) SaveProfile(ctx context.Context, profile domain.UserProfile) error {
	return r.save(ctx, KeyUserData, profile)
}

// SavedListings returns an empty slice when nothing is saved.
func (r *Repository) SavedListings(ctx context.Context) ([]domain.Listing, error) {
	listings := []domain.Listing{}
	if _, err := r.load(ctx, KeySavedJobs, &listings); err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []domain.Listing{}
	}
	return listings, nil
}

// SetSavedListings replaces the saved listings.
func (r *Repository) SetSavedListings(ctx context.Context, listings []domain.Listing) error {
	if listings == nil {
		listings = []domain.Listing{}
	}
	return r.save(ctx, KeySavedJobs, listings)
}

// Applications returns an empty slice when nothing is stored.
func (r *Repository) Applications(ctx context.Context) ([]domain.ApplicationDetails, error) {
	apps := []domain.ApplicationDetails{}
	if _, err := r.load(ctx, KeyApplications, &apps); err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []domain.ApplicationDetails{}
	}
	return apps, nil
}

// SetApplications replaces the application records.
func (r *Repository) SetApplications(ctx context.Context, apps []domain.ApplicationDetails) error {
	if apps == nil {
		apps = []domain.ApplicationDetails{}
	}
	return r.save(ctx, KeyApplications, apps)
}

// Clear drops every stored key.
func (r *Repository) Clear(ctx context.Context) error {
	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}

func (r *Repository) load(ctx context.Context, key string, v any) (bool, error) {
	raw, found, err := r.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !found || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
