package config

import (
	"fmt"
	"math"
)

// Caps are the soft safety caps: conservative, profile-dependent defaults
// the user may raise by explicit configuration, but never beyond the
// absolute rails enforced by internal/safety. Breaching a cap degrades the
// plan's feasibility classification; it does not reject the run.
type Caps struct {
	// MaxWeeklyLoad bounds the total load (TSS) of any planned week.
	MaxWeeklyLoad float64 `json:"maxWeeklyLoad" yaml:"maxWeeklyLoad"`

	// MaxCTLRampPerWeek bounds the week-over-week CTL increase.
	MaxCTLRampPerWeek float64 `json:"maxCtlRampPerWeek" yaml:"maxCtlRampPerWeek"`

	// MaxDailyLoad bounds the load of any single planned day.
	MaxDailyLoad float64 `json:"maxDailyLoad" yaml:"maxDailyLoad"`

	// MaxDailySessionHours bounds planned daily training time, derived from
	// the athlete's stated availability.
	MaxDailySessionHours float64 `json:"maxDailySessionHours" yaml:"maxDailySessionHours"`
}

var profileCaps = map[Profile]Caps{
	ProfileOutcomeFirst: {MaxWeeklyLoad: 1100, MaxCTLRampPerWeek: 7, MaxDailyLoad: 300, MaxDailySessionHours: 5},
	ProfileBalanced:     {MaxWeeklyLoad: 900, MaxCTLRampPerWeek: 5, MaxDailyLoad: 250, MaxDailySessionHours: 4},
	ProfileSustainable:  {MaxWeeklyLoad: 700, MaxCTLRampPerWeek: 4, MaxDailyLoad: 200, MaxDailySessionHours: 3},
}

// DefaultCaps returns the documented baseline caps for a profile. These are
// defaults, not ceilings: any cap may be raised up to the rails.
func DefaultCaps(p Profile) Caps {
	caps, ok := profileCaps[p]
	if !ok {
		return profileCaps[ProfileBalanced]
	}
	return caps
}

// Merge overlays explicitly set (positive) override fields onto c.
func (c Caps) Merge(override Caps) Caps {
	out := c
	if override.MaxWeeklyLoad > 0 {
		out.MaxWeeklyLoad = override.MaxWeeklyLoad
	}
	if override.MaxCTLRampPerWeek > 0 {
		out.MaxCTLRampPerWeek = override.MaxCTLRampPerWeek
	}
	if override.MaxDailyLoad > 0 {
		out.MaxDailyLoad = override.MaxDailyLoad
	}
	if override.MaxDailySessionHours > 0 {
		out.MaxDailySessionHours = override.MaxDailySessionHours
	}
	return out
}

// Validate rejects non-finite or non-positive caps. Rail conformance is
// checked separately by the safety layer, which owns the rail values.
func (c Caps) Validate() error {
	for name, v := range map[string]float64{
		"maxWeeklyLoad":        c.MaxWeeklyLoad,
		"maxCtlRampPerWeek":    c.MaxCTLRampPerWeek,
		"maxDailyLoad":         c.MaxDailyLoad,
		"maxDailySessionHours": c.MaxDailySessionHours,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("cap %s must be a finite positive number, got %v", name, v)
		}
	}
	return nil
}
