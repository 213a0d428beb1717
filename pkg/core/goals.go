package core

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// TargetMetric enumerates the state metrics a target can constrain.
type TargetMetric string

const (
	MetricCTL        TargetMetric = "ctl"
	MetricTSB        TargetMetric = "tsb"
	MetricReadiness  TargetMetric = "readiness"
	MetricWeeklyLoad TargetMetric = "weekly_load"
)

// TargetDirection states whether the metric should reach at least or at
// most the target value by the goal date.
type TargetDirection string

const (
	AtLeast TargetDirection = "at_least"
	AtMost  TargetDirection = "at_most"
)

// Target is one desired attainment condition within a goal.
type Target struct {
	ID        string          `json:"id" yaml:"id"`
	Metric    TargetMetric    `json:"metric" yaml:"metric"`
	Direction TargetDirection `json:"direction" yaml:"direction"`
	Value     float64         `json:"value" yaml:"value"`

	// Weight is the relative weight within the goal. Zero means "use the
	// default of 1.0"; negative weights are rejected by Validate.
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// EffectiveWeight returns the target weight with the 1.0 default applied.
func (t Target) EffectiveWeight() float64 {
	if t.Weight == 0 {
		return 1.0
	}
	return t.Weight
}

// Goal is a dated objective with a priority in [0,10] (10 highest).
type Goal struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Date     time.Time `json:"date" yaml:"date"`
	Priority float64   `json:"priority" yaml:"priority"`
	Targets  []Target  `json:"targets" yaml:"targets"`
}

// Validate checks a goal and its targets for structural errors.
func (g Goal) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("goal id is required")
	}
	if g.Date.IsZero() {
		return fmt.Errorf("goal %q: date is required", g.ID)
	}
	if g.Priority < 0 || g.Priority > 10 {
		return fmt.Errorf("goal %q: priority must be between 0 and 10, got %.2f", g.ID, g.Priority)
	}
	if math.IsNaN(g.Priority) {
		return fmt.Errorf("goal %q: priority must be a number", g.ID)
	}
	if len(g.Targets) == 0 {
		return fmt.Errorf("goal %q: at least one target is required", g.ID)
	}
	for _, t := range g.Targets {
		if t.ID == "" {
			return fmt.Errorf("goal %q: target id is required", g.ID)
		}
		switch t.Metric {
		case MetricCTL, MetricTSB, MetricReadiness, MetricWeeklyLoad:
		default:
			return fmt.Errorf("goal %q: target %q: unsupported metric %q", g.ID, t.ID, t.Metric)
		}
		switch t.Direction {
		case AtLeast, AtMost:
		default:
			return fmt.Errorf("goal %q: target %q: unsupported direction %q", g.ID, t.ID, t.Direction)
		}
		if t.Weight < 0 || math.IsNaN(t.Weight) {
			return fmt.Errorf("goal %q: target %q: weight must be >= 0, got %.2f", g.ID, t.ID, t.Weight)
		}
		if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) {
			return fmt.Errorf("goal %q: target %q: value must be finite", g.ID, t.ID)
		}
	}
	return nil
}

// ValidateGoals validates a plan's goal set and rejects duplicate IDs.
func ValidateGoals(goals []Goal) error {
	if len(goals) == 0 {
		return fmt.Errorf("at least one goal is required")
	}
	seen := make(map[string]bool, len(goals))
	for _, g := range goals {
		if err := g.Validate(); err != nil {
			return err
		}
		if seen[g.ID] {
			return fmt.Errorf("duplicate goal id %q", g.ID)
		}
		seen[g.ID] = true
	}
	return nil
}

// SortGoals returns the goals ordered by date, then ID. The optimizer and
// aggregator both iterate goals in this order so that ties resolve
// identically everywhere.
func SortGoals(goals []Goal) []Goal {
	out := make([]Goal, len(goals))
	copy(out, goals)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
