// Package diagnostics assembles the explainability payload emitted with
// every engine run.
//
// The payload is a read-only observation of decisions already made: it
// records the effective (post-clamp) configuration, which constraints were
// binding, and the signed objective-term breakdown per decision step. It
// must never feed back into the selection itself.
package diagnostics

import (
	"time"

	"github.com/strideworks/formcast/pkg/config"
	"github.com/strideworks/formcast/pkg/solver"
)

// ObjectiveBreakdown is the signed contribution of each objective term for
// one evaluated candidate or decision.
type ObjectiveBreakdown struct {
	Goal       float64 `json:"goal" yaml:"goal"`
	Readiness  float64 `json:"readiness" yaml:"readiness"`
	Risk       float64 `json:"risk" yaml:"risk"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
	Churn      float64 `json:"churn" yaml:"churn"`
	Total      float64 `json:"total" yaml:"total"`
}

// StepReport describes one weekly decision step.
type StepReport struct {
	WeekStart time.Time `json:"weekStart" yaml:"weekStart"`

	// Bounds are the resolved action bounds for this step.
	MinValue float64 `json:"minValue" yaml:"minValue"`
	MaxValue float64 `json:"maxValue" yaml:"maxValue"`

	// Selected is the committed weekly load.
	Selected float64 `json:"selected" yaml:"selected"`

	// Candidates generated, evaluated, and pruned for this step.
	Generated int `json:"generated" yaml:"generated"`
	Evaluated int `json:"evaluated" yaml:"evaluated"`
	Pruned    int `json:"pruned" yaml:"pruned"`

	// ActiveConstraints names constraints binding at the selected action.
	ActiveConstraints []string `json:"activeConstraints,omitempty" yaml:"activeConstraints,omitempty"`

	// Objective is the breakdown for the selected candidate.
	Objective ObjectiveBreakdown `json:"objective" yaml:"objective"`

	// Candidates are the ranked candidates, for full decision replay.
	Candidates []solver.Candidate `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

// Report is the complete diagnostics payload for one run.
type Report struct {
	// Effective configuration after profile resolution and clamping.
	Profile        config.Profile     `json:"profile" yaml:"profile"`
	SolveBounds    config.SolveBounds `json:"solveBounds" yaml:"solveBounds"`
	EffectiveCaps  config.Caps        `json:"effectiveCaps" yaml:"effectiveCaps"`
	CalibrationVer string             `json:"calibrationVersion" yaml:"calibrationVersion"`

	// TieBreakOrder is the ranking chain applied at every step.
	TieBreakOrder []string `json:"tieBreakOrder" yaml:"tieBreakOrder"`

	// EvidenceQuality and Uncertainty summarize estimator confidence.
	EvidenceQuality  float64 `json:"evidenceQuality" yaml:"evidenceQuality"`
	StateUncertainty float64 `json:"stateUncertainty" yaml:"stateUncertainty"`

	Steps []StepReport `json:"steps" yaml:"steps"`
}
