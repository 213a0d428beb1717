// Package safety enforces the two-tier bound model of the engine.
//
// Tier (a), default caps, live in pkg/config: conservative, profile-based,
// user-adjustable. Tier (b), the absolute rails defined here, are fixed:
// they protect numerical stability and hard physiological limits and cannot
// be configured, overridden, or exceeded by any calibration. A trajectory
// that breaches a rail is fatal to its candidate; a trajectory that merely
// crowds a cap only degrades the plan's feasibility classification.
package safety

import (
	"fmt"
	"math"

	"github.com/strideworks/formcast/pkg/config"
	"github.com/strideworks/formcast/pkg/core"
)

// Absolute rails. Not configurable.
const (
	// RailMaxWeeklyLoad is far beyond any sustainable human training week.
	RailMaxWeeklyLoad = 3500.0

	// RailMaxCTLRampPerWeek bounds CTL growth; ramps beyond this are outside
	// the model's stable region.
	RailMaxCTLRampPerWeek = 15.0

	// RailMaxDailyLoad bounds a single day's planned load.
	RailMaxDailyLoad = 600.0

	// RailMaxDailySessionHours bounds planned daily training time.
	RailMaxDailySessionHours = 12.0

	// RailMaxCTL and RailMaxATL bound the load accumulators themselves.
	RailMaxCTL = 250.0
	RailMaxATL = 400.0
)

// Feasibility classifies how a constrained trajectory sits against the
// configured caps (caps, not rails).
type Feasibility string

const (
	// Feasible: comfortably within caps.
	Feasible Feasibility = "feasible"

	// Aggressive: near a cap boundary.
	Aggressive Feasibility = "aggressive"

	// Unsafe: goal demand cannot be met without exceeding a configured cap.
	Unsafe Feasibility = "unsafe"
)

// aggressiveFraction is the cap proximity at which a plan stops being
// classified feasible.
const aggressiveFraction = 0.85

// railEpsilon keeps a value sitting exactly on a rail from failing on float
// rounding.
const railEpsilon = 1e-9

// RailViolation records one absolute-rail breach within a trajectory.
type RailViolation struct {
	Rail  string
	Day   int
	Value float64
	Limit float64
}

func (v RailViolation) Error() string {
	return fmt.Sprintf("absolute rail %s violated on day %d: %.2f exceeds %.2f", v.Rail, v.Day, v.Value, v.Limit)
}

// CheckCaps rejects cap configurations that exceed an absolute rail. A cap
// above its rail is a configuration error, not something to clamp: silent
// clamping would turn the rail into an undocumented cap.
func CheckCaps(caps config.Caps) error {
	if err := caps.Validate(); err != nil {
		return err
	}
	checks := []struct {
		name  string
		value float64
		rail  float64
	}{
		{"maxWeeklyLoad", caps.MaxWeeklyLoad, RailMaxWeeklyLoad},
		{"maxCtlRampPerWeek", caps.MaxCTLRampPerWeek, RailMaxCTLRampPerWeek},
		{"maxDailyLoad", caps.MaxDailyLoad, RailMaxDailyLoad},
		{"maxDailySessionHours", caps.MaxDailySessionHours, RailMaxDailySessionHours},
	}
	for _, c := range checks {
		if c.value > c.rail {
			return fmt.Errorf("cap %s (%.2f) exceeds the absolute rail (%.2f)", c.name, c.value, c.rail)
		}
	}
	return nil
}

// ActionBounds is the admissible interval for one weekly-load action.
type ActionBounds struct {
	Min float64
	Max float64
}

// DailyLoadCeiling is the effective per-day load cap: the configured daily
// cap or the athlete's availability converted through the calibration's
// session load rate, whichever is lower.
func DailyLoadCeiling(caps config.Caps, calib config.Calibration) float64 {
	ceiling := caps.MaxDailyLoad
	if avail := caps.MaxDailySessionHours * calib.SessionLoadPerHour; avail > 0 && avail < ceiling {
		ceiling = avail
	}
	return ceiling
}

// WeeklyActionBounds derives the candidate interval for the next weekly
// load from the caps, the athlete's availability, and the current CTL (so
// the ramp cap translates into a weekly-load ceiling). The result is always
// within the rails.
func WeeklyActionBounds(caps config.Caps, ctl float64, calib config.Calibration) ActionBounds {
	// A week at constant daily load equal to CTL holds CTL steady. One week
	// at CTL+d raises CTL by d*(1-(1-kc)^7), so the ramp cap translates to
	// a daily headroom of ramp/(1-(1-kc)^7).
	kc := 2 / (calib.FitnessTimeConstantDays + 1)
	weekFrac := 1 - math.Pow(1-kc, 7)
	rampCeiling := (math.Max(ctl, 0) + caps.MaxCTLRampPerWeek/weekFrac) * 7
	max := math.Min(caps.MaxWeeklyLoad, rampCeiling)
	max = math.Min(max, DailyLoadCeiling(caps, calib)*7)
	max = math.Min(max, RailMaxWeeklyLoad)
	if max < 0 {
		max = 0
	}
	return ActionBounds{Min: 0, Max: max}
}

// Clamp limits a proposed action to its bounds.
func Clamp(value float64, bounds ActionBounds) float64 {
	return math.Min(bounds.Max, math.Max(bounds.Min, value))
}

// ValidateInvariants scans a trajectory for absolute-rail breaches. Any
// returned violation is fatal to the candidate that produced the
// trajectory; violations are never corrected by substitution.
func ValidateInvariants(traj core.Trajectory, calib config.Calibration) []RailViolation {
	var violations []RailViolation
	prevWeekCTL := math.NaN()
	for i, p := range traj.Points {
		s := p.State
		if !s.IsFinite() || math.IsNaN(p.Load) || math.IsInf(p.Load, 0) {
			violations = append(violations, RailViolation{Rail: "finiteness", Day: i, Value: math.NaN(), Limit: 0})
			continue
		}
		if s.CTL < 0 {
			violations = append(violations, RailViolation{Rail: "ctl_non_negative", Day: i, Value: s.CTL, Limit: 0})
		}
		if s.ATL < 0 {
			violations = append(violations, RailViolation{Rail: "atl_non_negative", Day: i, Value: s.ATL, Limit: 0})
		}
		if s.CTL > RailMaxCTL {
			violations = append(violations, RailViolation{Rail: "ctl_max", Day: i, Value: s.CTL, Limit: RailMaxCTL})
		}
		if s.ATL > RailMaxATL {
			violations = append(violations, RailViolation{Rail: "atl_max", Day: i, Value: s.ATL, Limit: RailMaxATL})
		}
		if p.Load > RailMaxDailyLoad {
			violations = append(violations, RailViolation{Rail: "daily_load_max", Day: i, Value: p.Load, Limit: RailMaxDailyLoad})
		}
		if p.Load < 0 {
			violations = append(violations, RailViolation{Rail: "daily_load_non_negative", Day: i, Value: p.Load, Limit: 0})
		}
		if calib.SessionLoadPerHour > 0 {
			if hours := p.Load / calib.SessionLoadPerHour; hours > RailMaxDailySessionHours+railEpsilon {
				violations = append(violations, RailViolation{
					Rail: "daily_session_hours_max", Day: i, Value: hours, Limit: RailMaxDailySessionHours,
				})
			}
		}
		// Weekly ramp rail, sampled every 7th day.
		if i%7 == 0 {
			if !math.IsNaN(prevWeekCTL) && s.CTL-prevWeekCTL > RailMaxCTLRampPerWeek+railEpsilon {
				violations = append(violations, RailViolation{
					Rail: "ctl_ramp_max", Day: i, Value: s.CTL - prevWeekCTL, Limit: RailMaxCTLRampPerWeek,
				})
			}
			prevWeekCTL = s.CTL
		}
	}
	return violations
}

// CapProximity returns the trajectory's closest approach to the caps as a
// fraction in [0,1+]: 0 means untouched caps, 1 means a cap is exactly met,
// above 1 means a cap is exceeded.
func CapProximity(traj core.Trajectory, caps config.Caps, calib config.Calibration) float64 {
	prox := 0.0
	weekLoad := 0.0
	daily := DailyLoadCeiling(caps, calib)
	for i, p := range traj.Points {
		if daily > 0 {
			prox = math.Max(prox, p.Load/daily)
		}
		weekLoad += p.Load
		if (i+1)%7 == 0 || i == len(traj.Points)-1 {
			if caps.MaxWeeklyLoad > 0 {
				prox = math.Max(prox, weekLoad/caps.MaxWeeklyLoad)
			}
			weekLoad = 0
		}
	}
	return prox
}

// Classify maps cap proximity to the three-state feasibility
// classification.
func Classify(traj core.Trajectory, caps config.Caps, calib config.Calibration) Feasibility {
	prox := CapProximity(traj, caps, calib)
	switch {
	case prox > 1:
		return Unsafe
	case prox >= aggressiveFraction:
		return Aggressive
	default:
		return Feasible
	}
}
