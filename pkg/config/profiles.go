package config

import "fmt"

// Profile is the closed enumeration of optimization profiles. A profile is
// mapped exactly once, here, to its solve bounds and default caps; no other
// layer re-interprets the profile string.
type Profile string

const (
	ProfileOutcomeFirst Profile = "outcome_first"
	ProfileBalanced     Profile = "balanced"
	ProfileSustainable  Profile = "sustainable"
)

// ParseProfile validates and normalizes a profile name. An empty name
// selects the balanced profile.
func ParseProfile(name string) (Profile, error) {
	switch Profile(name) {
	case ProfileOutcomeFirst, ProfileBalanced, ProfileSustainable:
		return Profile(name), nil
	case "":
		return ProfileBalanced, nil
	default:
		return "", fmt.Errorf("unsupported optimization profile %q", name)
	}
}

// SolveBounds limit the optimizer's work per invocation so that worst-case
// run time is bounded regardless of input size.
type SolveBounds struct {
	// HorizonWeeks is the number of weekly decision steps to plan.
	HorizonWeeks int `json:"horizonWeeks" yaml:"horizonWeeks"`

	// CandidateCount is the lattice size evaluated per decision step.
	CandidateCount int `json:"candidateCount" yaml:"candidateCount"`
}

// Engine-wide hard limits on solve bounds. These are work bounds, not
// tunables; caller overrides are clamped to them.
const (
	MaxHorizonWeeks   = 52
	MaxCandidateCount = 101
)

var profileSolveBounds = map[Profile]SolveBounds{
	ProfileOutcomeFirst: {HorizonWeeks: 16, CandidateCount: 21},
	ProfileBalanced:     {HorizonWeeks: 12, CandidateCount: 13},
	ProfileSustainable:  {HorizonWeeks: 8, CandidateCount: 9},
}

// ResolveSolveBounds returns the profile's solve bounds, optionally
// overridden by the caller. Overrides of zero or less keep the profile
// value; all results are clamped to the engine-wide limits.
func ResolveSolveBounds(p Profile, override SolveBounds) SolveBounds {
	bounds, ok := profileSolveBounds[p]
	if !ok {
		bounds = profileSolveBounds[ProfileBalanced]
	}
	if override.HorizonWeeks > 0 {
		bounds.HorizonWeeks = override.HorizonWeeks
	}
	if override.CandidateCount > 0 {
		bounds.CandidateCount = override.CandidateCount
	}
	if bounds.HorizonWeeks > MaxHorizonWeeks {
		bounds.HorizonWeeks = MaxHorizonWeeks
	}
	if bounds.CandidateCount > MaxCandidateCount {
		bounds.CandidateCount = MaxCandidateCount
	}
	if bounds.CandidateCount < 3 {
		bounds.CandidateCount = 3
	}
	return bounds
}
