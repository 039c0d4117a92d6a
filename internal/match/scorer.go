// Package match scores listings against a user's profile skills.
package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/ports"
)

// ErrScoring marks a listing the scorer could not annotate. Callers pass such listings through unscored.
var ErrScoring = errors.New("scoring failed")

const (
	mismatchReason  = "No matching skill found in your profile."
	maxMismatches   = 3
	skillWeight     = 70.0
	coverageWeight  = 30.0
	noSkillsScore   = 50
	minScore        = 1
	maxScore        = 100
	minConfidence   = 0.6
	confidenceRange = 0.4
)

// Options tunes a Scorer. A zero Seed seeds from the clock.
type Options struct {
	Delay time.Duration
	Seed  uint64
}

// Scorer is the skill-overlap scorer. It is safe for concurrent use.
type Scorer struct {
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

var _ ports.Scorer = (*Scorer)(nil)

// NewScorer builds a scorer with the given options.
func NewScorer(opts Options) *Scorer {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Scorer{
		delay: opts.Delay,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Score returns an annotated copy of listing. The input is never modified.
func (s *Scorer) Score(ctx context.Context, listing domain.Listing, profile domain.UserProfile) (domain.Listing, error) {
	if err := s.wait(ctx); err != nil {
		return listing, fmt.Errorf("score listing %s: %w: %w", listing.ID, ErrScoring, err)
	}

	out := listing.Clone()
	skills := nonBlank(profile.Skills)

	if len(skills) == 0 {
		score := noSkillsScore
		out.AIScore = &score
		out.AIMatches = []domain.SkillMatch{}
		out.AIMismatches = []domain.Mismatch{}
		return out, nil
	}

	lowerSkills := make([]string, len(skills))
	for i, skill := range skills {
		lowerSkills[i] = strings.ToLower(skill)
	}
	description := strings.ToLower(listing.Description)
	requirements := make([]string, len(listing.Requirements))
	for i, req := range listing.Requirements {
		requirements[i] = strings.ToLower(req)
	}

	matches := make([]domain.SkillMatch, 0, len(skills))
	for i, skill := range skills {
		if strings.Contains(description, lowerSkills[i]) || anyContains(requirements, lowerSkills[i]) {
			matches = append(matches, domain.SkillMatch{Skill: skill, Confidence: s.confidence()})
		}
	}

	mismatches := make([]domain.Mismatch, 0, maxMismatches)
	for i, req := range listing.Requirements {
		if len(mismatches) == maxMismatches {
			break
		}
		if !containsAnySkill(requirements[i], lowerSkills) {
			mismatches = append(mismatches, domain.Mismatch{Requirement: req, Reason: mismatchReason})
		}
	}

	score := Compute(len(matches), len(skills), len(mismatches), len(listing.Requirements))
	out.AIScore = &score
	out.AIMatches = matches
	out.AIMismatches = mismatches
	return out, nil
}

// Compute applies the score formula. With no requirements the coverage term is full credit.
// The result is rounded half up and clamped to [1, 100].
func Compute(matched, skills, mismatched, requirements int) int {
	if skills == 0 {
		return noSkillsScore
	}
	raw := float64(matched) / float64(skills) * skillWeight
	if requirements == 0 {
		raw += coverageWeight
	} else {
		raw += (1 - float64(mismatched)/float64(requirements)) * coverageWeight
	}
	score := int(math.Floor(raw + 0.5))
	return min(max(score, minScore), maxScore)
}

func (s *Scorer) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scorer) confidence() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return minConfidence + s.rng.Float64()*confidenceRange
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func anyContains(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

func containsAnySkill(requirement string, skills []string) bool {
	for _, skill := range skills {
		if strings.Contains(requirement, skill) {
			return true
		}
	}
	return false
}
