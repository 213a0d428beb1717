package config

import (
	"fmt"
	"math"

	"github.com/strideworks/formcast/pkg/core"
)

// CurrentCalibrationVersion is the schema version written by
// DefaultCalibration and required by Validate.
const CurrentCalibrationVersion = "v1"

// EstimatorCoefficients are the filter noise parameters of the state
// estimator.
type EstimatorCoefficients struct {
	// ProcessNoise is the per-day variance added in the predict step.
	ProcessNoise float64 `json:"processNoise" yaml:"processNoise"`

	// MeasurementNoise is the base variance of a fully trusted observation.
	// Low evidence quality inflates it.
	MeasurementNoise float64 `json:"measurementNoise" yaml:"measurementNoise"`

	// MissingDayInflation multiplies uncertainty on days without evidence.
	MissingDayInflation float64 `json:"missingDayInflation" yaml:"missingDayInflation"`

	// MaxUncertainty bounds uncertainty growth under long evidence gaps.
	MaxUncertainty float64 `json:"maxUncertainty" yaml:"maxUncertainty"`
}

// AttainmentTolerances are the per-metric softness of target utilities: the
// shortfall at which an unmet target still scores exp(-1).
type AttainmentTolerances struct {
	CTL        float64 `json:"ctl" yaml:"ctl"`
	TSB        float64 `json:"tsb" yaml:"tsb"`
	Readiness  float64 `json:"readiness" yaml:"readiness"`
	WeeklyLoad float64 `json:"weeklyLoad" yaml:"weeklyLoad"`
}

// ObjectiveWeights weight the signed terms of the optimizer objective.
type ObjectiveWeights struct {
	Goal       float64 `json:"goal" yaml:"goal"`
	Readiness  float64 `json:"readiness" yaml:"readiness"`
	Risk       float64 `json:"risk" yaml:"risk"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
	Churn      float64 `json:"churn" yaml:"churn"`
}

// Calibration is the fully enumerated coefficient set for one engine run.
// Every previously implicit constant lives here; the engine reads it and
// never mutates it.
type Calibration struct {
	Version string `json:"version" yaml:"version"`

	// Composite blends the readiness components; must sum to 1.
	Composite core.CompositeWeights `json:"composite" yaml:"composite"`

	// Transition time constants, in days.
	FitnessTimeConstantDays float64 `json:"fitnessTimeConstantDays" yaml:"fitnessTimeConstantDays"`
	FatigueTimeConstantDays float64 `json:"fatigueTimeConstantDays" yaml:"fatigueTimeConstantDays"`

	// Form and timeline tolerances.
	FormToleranceTSB      float64 `json:"formToleranceTSB" yaml:"formToleranceTSB"`
	TimelineToleranceDays float64 `json:"timelineToleranceDays" yaml:"timelineToleranceDays"`

	// Durability transition coefficients. Strain above the threshold (in
	// SLB units) erodes durability; strain below it restores it.
	DurabilityRecoveryGain    float64 `json:"durabilityRecoveryGain" yaml:"durabilityRecoveryGain"`
	DurabilityOverloadPenalty float64 `json:"durabilityOverloadPenalty" yaml:"durabilityOverloadPenalty"`
	DurabilityStrainThreshold float64 `json:"durabilityStrainThreshold" yaml:"durabilityStrainThreshold"`

	// Continuous taper bias: load emphasis is reduced by
	// TaperStrength * exp(-daysToGoal/TaperTimeConstantDays).
	TaperStrength         float64 `json:"taperStrength" yaml:"taperStrength"`
	TaperTimeConstantDays float64 `json:"taperTimeConstantDays" yaml:"taperTimeConstantDays"`

	// SessionLoadPerHour converts daily availability hours into a load
	// ceiling: the load an athlete accumulates per sustainable training
	// hour.
	SessionLoadPerHour float64 `json:"sessionLoadPerHour" yaml:"sessionLoadPerHour"`

	// Envelope and durability penalty weights of the objective's risk term.
	RampPenaltyWeight       float64 `json:"rampPenaltyWeight" yaml:"rampPenaltyWeight"`
	MonotonyPenaltyWeight   float64 `json:"monotonyPenaltyWeight" yaml:"monotonyPenaltyWeight"`
	DurabilityPenaltyWeight float64 `json:"durabilityPenaltyWeight" yaml:"durabilityPenaltyWeight"`

	// Confidence floors.
	NoHistoryConfidenceFloor float64 `json:"noHistoryConfidenceFloor" yaml:"noHistoryConfidenceFloor"`
	UncertaintyFloor         float64 `json:"uncertaintyFloor" yaml:"uncertaintyFloor"`

	Estimator  EstimatorCoefficients `json:"estimator" yaml:"estimator"`
	Tolerances AttainmentTolerances  `json:"tolerances" yaml:"tolerances"`
	Objective  ObjectiveWeights      `json:"objective" yaml:"objective"`

	// Priority-weight shaping, applied identically at every aggregation
	// layer: weight = epsilon + (priority/10)^gamma.
	PriorityEpsilon float64 `json:"priorityEpsilon" yaml:"priorityEpsilon"`
	PriorityGamma   float64 `json:"priorityGamma" yaml:"priorityGamma"`
}

// DefaultCalibration returns the documented baseline ("balanced")
// calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		Version: CurrentCalibrationVersion,
		Composite: core.CompositeWeights{
			Fitness:    0.35,
			Form:       0.25,
			Durability: 0.20,
			Confidence: 0.20,
		},
		FitnessTimeConstantDays: 42,
		FatigueTimeConstantDays: 7,
		FormToleranceTSB:        10,
		TimelineToleranceDays:   7,

		DurabilityRecoveryGain:    0.8,
		DurabilityOverloadPenalty: 2.0,
		DurabilityStrainThreshold: 1.3,

		TaperStrength:         0.35,
		TaperTimeConstantDays: 10,

		SessionLoadPerHour: 100,

		RampPenaltyWeight:       0.5,
		MonotonyPenaltyWeight:   0.25,
		DurabilityPenaltyWeight: 0.4,

		NoHistoryConfidenceFloor: 0.2,
		UncertaintyFloor:         1.0,

		Estimator: EstimatorCoefficients{
			ProcessNoise:        2.0,
			MeasurementNoise:    25.0,
			MissingDayInflation: 1.05,
			MaxUncertainty:      50.0,
		},
		Tolerances: AttainmentTolerances{
			CTL:        8,
			TSB:        8,
			Readiness:  12,
			WeeklyLoad: 80,
		},
		Objective: ObjectiveWeights{
			Goal:       1.0,
			Readiness:  0.3,
			Risk:       0.4,
			Volatility: 0.15,
			Churn:      0.1,
		},
		PriorityEpsilon: 0.1,
		PriorityGamma:   2.0,
	}
}

// Validate rejects a malformed calibration before any computation begins.
func (c Calibration) Validate() error {
	if c.Version != CurrentCalibrationVersion {
		return fmt.Errorf("unsupported calibration version %q, want %q", c.Version, CurrentCalibrationVersion)
	}
	if err := c.Composite.Validate(); err != nil {
		return err
	}

	positive := map[string]float64{
		"fitnessTimeConstantDays":    c.FitnessTimeConstantDays,
		"fatigueTimeConstantDays":    c.FatigueTimeConstantDays,
		"formToleranceTSB":           c.FormToleranceTSB,
		"timelineToleranceDays":      c.TimelineToleranceDays,
		"durabilityStrainThreshold":  c.DurabilityStrainThreshold,
		"taperTimeConstantDays":      c.TaperTimeConstantDays,
		"sessionLoadPerHour":         c.SessionLoadPerHour,
		"uncertaintyFloor":           c.UncertaintyFloor,
		"estimator.processNoise":     c.Estimator.ProcessNoise,
		"estimator.measurementNoise": c.Estimator.MeasurementNoise,
		"estimator.maxUncertainty":   c.Estimator.MaxUncertainty,
		"tolerances.ctl":             c.Tolerances.CTL,
		"tolerances.tsb":             c.Tolerances.TSB,
		"tolerances.readiness":       c.Tolerances.Readiness,
		"tolerances.weeklyLoad":      c.Tolerances.WeeklyLoad,
		"priorityGamma":              c.PriorityGamma,
	}
	for name, v := range positive {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("calibration field %s must be a finite positive number, got %v", name, v)
		}
	}

	nonNegative := map[string]float64{
		"durabilityRecoveryGain":    c.DurabilityRecoveryGain,
		"durabilityOverloadPenalty": c.DurabilityOverloadPenalty,
		"rampPenaltyWeight":         c.RampPenaltyWeight,
		"monotonyPenaltyWeight":     c.MonotonyPenaltyWeight,
		"durabilityPenaltyWeight":   c.DurabilityPenaltyWeight,
		"objective.goal":            c.Objective.Goal,
		"objective.readiness":       c.Objective.Readiness,
		"objective.risk":            c.Objective.Risk,
		"objective.volatility":      c.Objective.Volatility,
		"objective.churn":           c.Objective.Churn,
		"priorityEpsilon":           c.PriorityEpsilon,
	}
	for name, v := range nonNegative {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("calibration field %s must be a finite non-negative number, got %v", name, v)
		}
	}

	if c.TaperStrength < 0 || c.TaperStrength >= 1 || math.IsNaN(c.TaperStrength) {
		return fmt.Errorf("taperStrength must be in [0,1), got %v", c.TaperStrength)
	}
	if c.NoHistoryConfidenceFloor < 0 || c.NoHistoryConfidenceFloor > 1 || math.IsNaN(c.NoHistoryConfidenceFloor) {
		return fmt.Errorf("noHistoryConfidenceFloor must be between 0 and 1, got %v", c.NoHistoryConfidenceFloor)
	}
	if c.Estimator.MissingDayInflation < 1 || math.IsNaN(c.Estimator.MissingDayInflation) || math.IsInf(c.Estimator.MissingDayInflation, 0) {
		return fmt.Errorf("estimator.missingDayInflation must be >= 1, got %v", c.Estimator.MissingDayInflation)
	}
	return nil
}

// PriorityWeight maps a goal priority in [0,10] to its aggregation weight:
// epsilon + (priority/10)^gamma. The same function is used at every layer
// so equal priorities exert equal optimization pressure.
func (c Calibration) PriorityWeight(priority float64) float64 {
	p := math.Min(10, math.Max(0, priority))
	return c.PriorityEpsilon + math.Pow(p/10, c.PriorityGamma)
}

// Tolerance returns the attainment tolerance for the given metric.
func (c Calibration) Tolerance(metric core.TargetMetric) float64 {
	switch metric {
	case core.MetricCTL:
		return c.Tolerances.CTL
	case core.MetricTSB:
		return c.Tolerances.TSB
	case core.MetricReadiness:
		return c.Tolerances.Readiness
	case core.MetricWeeklyLoad:
		return c.Tolerances.WeeklyLoad
	default:
		return c.Tolerances.CTL
	}
}
