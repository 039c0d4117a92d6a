package domain

// Platform names used across profile preferences, config and the source registry.
const (
	PlatformLinkedIn  = "linkedin"
	PlatformIndeed    = "indeed"
	PlatformGlassdoor = "glassdoor"
)

// UserProfile is the job seeker's profile. The search pipeline only reads it.
type UserProfile struct {
	Name                string           `json:"name"`
	Email               string           `json:"email"`
	Phone               string           `json:"phone,omitempty"`
	Location            string           `json:"location"`
	ResumeText          string           `json:"resumeText,omitempty"`
	Skills              []string         `json:"skills"`
	Experience          []ExperienceItem `json:"experience"`
	Education           []EducationItem  `json:"education"`
	OnboardingCompleted bool             `json:"onboardingCompleted"`
	JobPreferences      JobPreferences   `json:"jobPreferences"`
}

// ExperienceItem is one past or current position.
type ExperienceItem struct {
	ID          string   `json:"id"`
	Company     string   `json:"company"`
	Title       string   `json:"title"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate,omitempty"`
	Current     bool     `json:"current"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

// EducationItem is one degree or course of study.
type EducationItem struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Current     bool   `json:"current"`
}

// JobPreferences are the profile-level search defaults.
type JobPreferences struct {
	Titles          []string          `json:"titles"`
	Locations       []string          `json:"locations"`
	Remote          bool              `json:"remote"`
	MinSalary       *int              `json:"minSalary,omitempty"`
	JobTypes        []JobType         `json:"jobTypes"`
	ExcludeKeywords []string          `json:"excludeKeywords"`
	IncludeKeywords []string          `json:"includeKeywords"`
	Platforms       PlatformSelection `json:"platforms"`
}

// PlatformSelection toggles the built-in platforms and names any extra configured ones.
type PlatformSelection struct {
	LinkedIn  bool     `json:"linkedin"`
	Indeed    bool     `json:"indeed"`
	Glassdoor bool     `json:"glassdoor"`
	Other     []string `json:"other"`
}

// EnabledPlatforms returns enabled platform names in declaration order:
// linkedin, indeed, glassdoor, then the extra platforms in profile order.
func (p JobPreferences) EnabledPlatforms() []string {
	var names []string
	if p.Platforms.LinkedIn {
		names = append(names, PlatformLinkedIn)
	}
	if p.Platforms.Indeed {
		names = append(names, PlatformIndeed)
	}
	if p.Platforms.Glassdoor {
		names = append(names, PlatformGlassdoor)
	}
	seen := map[string]struct{}{}
	for _, n := range names {
		seen[n] = struct{}{}
	}
	for _, other := range p.Platforms.Other {
		if other == "" {
			continue
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		names = append(names, other)
	}
	return names
}
