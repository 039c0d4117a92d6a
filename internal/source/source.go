package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"JobCopilot/internal/domain"
)

// ErrUnavailable marks a per-source failure (network, anti-bot, rate limit or timeout).
// The aggregation pipeline treats it as non-fatal.
var ErrUnavailable = errors.New("source unavailable")

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func Unavailable(name string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", name, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w: %w", name, ErrUnavailable, err)
}

// Request carries the parameters of one page fetch.
type Request struct {
	Filters         domain.SearchFilters
	Page            int
	PerPage         int
	UseIntermediary bool
}

// Page is one page of listings plus the source's estimate of total matches.
// TotalResults need not equal len(Listings).
type Page struct {
	Listings     []domain.Listing
	TotalResults int
}

// Source is a single job platform adapter.
type Source interface {
	Name() string
	FetchPage(ctx context.Context, req Request) (Page, error)
}

// Registry keeps sources by name in registration order.
type Registry struct {
	sources map[string]Source
	order   []string
	logger  *slog.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{sources: map[string]Source{}, logger: logger}
}

// Register adds or replaces a source. A replaced source keeps its original position.
func (r *Registry) Register(src Source) {
	if r.sources == nil {
		r.sources = map[string]Source{}
	}
	name := src.Name()
	if _, exists := r.sources[name]; !exists {
		r.order = append(r.order, name)
	}
	r.sources[name] = src
}

// Names lists registered sources in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Resolve returns the named sources in registration order. Unknown names are skipped.
func (r *Registry) Resolve(names []string) []Source {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := r.sources[n]; !ok {
			if r.logger != nil {
				r.logger.Warn("platform not registered, skipping", "source", n)
			}
			continue
		}
		wanted[n] = struct{}{}
	}

	resolved := make([]Source, 0, len(wanted))
	for _, n := range r.order {
		if _, ok := wanted[n]; ok {
			resolved = append(resolved, r.sources[n])
		}
	}
	return resolved
}
