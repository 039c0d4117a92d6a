// Package filter implements include/exclude keyword rules over listings.
package filter

import (
	"strings"

	"JobCopilot/internal/domain"
)

// Apply keeps listings whose title or description passes the keyword rules.
//
// Matching is a case-insensitive substring test. Any exclude hit drops the
// listing, even when an include keyword also matches. A non-empty include list
// requires at least one hit. Blank keywords are ignored.
func Apply(listings []domain.Listing, include, exclude []string) []domain.Listing {
	include = normalize(include)
	exclude = normalize(exclude)

	kept := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if keep(l, include, exclude) {
			kept = append(kept, l)
		}
	}
	return kept
}

// keep expects lowercased, non-blank keyword lists.
func keep(l domain.Listing, include, exclude []string) bool {
	text := strings.ToLower(l.Title + "\n" + l.Description)

	if containsAny(text, exclude) {
		return false
	}
	if len(include) > 0 && !containsAny(text, include) {
		return false
	}
	return true
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		out = append(out, kw)
	}
	return out
}
