// Package autofill simulates submitting applications on the user's behalf.
package autofill

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/ports"
)

const (
	// DefaultSuccessRate is the share of simulated submissions that succeed.
	DefaultSuccessRate = 0.9

	msgSubmitted    = "Application successfully submitted"
	msgUnrecognized = "Unable to complete application. The form structure was not recognized."

	coverLetterSkills = 3
)

// Options configures the simulator. A nil SuccessRate uses DefaultSuccessRate. Seed 0 seeds from the clock.
type Options struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	SuccessRate *float64
	Seed        uint64
	Now         func() time.Time
}

// Simulator pretends to fill in an application form.
type Simulator struct {
	minDelay    time.Duration
	maxDelay    time.Duration
	successRate float64
	now         func() time.Time
	logger      *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

var _ ports.AutoFiller = (*Simulator)(nil)

// NewSimulator builds a simulator.
func NewSimulator(opts Options, logger *slog.Logger) *Simulator {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rate := DefaultSuccessRate
	if opts.SuccessRate != nil {
		rate = *opts.SuccessRate
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxDelay := opts.MaxDelay
	if maxDelay < opts.MinDelay {
		maxDelay = opts.MinDelay
	}
	return &Simulator{
		minDelay:    opts.MinDelay,
		maxDelay:    maxDelay,
		successRate: rate,
		now:         now,
		logger:      logger,
		rng:         rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d)),
	}
}

// Submit waits a random delay and then reports success or an unrecognised form.
func (s *Simulator) Submit(ctx context.Context, req domain.AutoFillRequest) (domain.AutoFillResult, error) {
	delay, roll := s.draw()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return domain.AutoFillResult{}, fmt.Errorf("submit application %s: %w", req.Listing.ID, ctx.Err())
		}
	}

	if roll >= s.successRate {
		s.logger.Debug("simulated submission rejected", "listing", req.Listing.ID)
		return domain.AutoFillResult{Success: false, Message: msgUnrecognized}, nil
	}

	return domain.AutoFillResult{
		Success:        true,
		Message:        msgSubmitted,
		AppliedDate:    s.now(),
		ApplicationURL: req.JobURL,
	}, nil
}

// CoverLetter renders the standard letter from the listing and the first three profile skills.
func (s *Simulator) CoverLetter(listing domain.Listing, profile domain.UserProfile) string {
	skills := profile.Skills
	if len(skills) > coverLetterSkills {
		skills = skills[:coverLetterSkills]
	}

	var b strings.Builder
	b.WriteString("Dear Hiring Manager,\n\n")
	fmt.Fprintf(&b, "I am writing to express my interest in the %s position at %s. ", listing.Title, listing.Company)
	fmt.Fprintf(&b, "With my background in %s, I believe I am a strong candidate for this role.\n\n", strings.Join(skills, ", "))
	b.WriteString("[Personalized content based on job description and user skills would go here]\n\n")
	b.WriteString("Thank you for considering my application. ")
	fmt.Fprintf(&b, "I look forward to the opportunity to discuss how my experience aligns with the needs of %s.\n\n", listing.Company)
	b.WriteString("Sincerely,\n")
	b.WriteString(profile.Name)
	return b.String()
}

func (s *Simulator) draw() (time.Duration, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := s.minDelay
	if span := s.maxDelay - s.minDelay; span > 0 {
		delay += time.Duration(s.rng.Int64N(int64(span) + 1))
	}
	return delay, s.rng.Float64()
}
