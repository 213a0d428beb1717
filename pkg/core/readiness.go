package core

import (
	"fmt"
	"math"
)

// CompositeWeightEpsilon is the tolerance for the composite-weight sum
// constraint: Fitness+Form+Durability+Confidence must equal 1 within it.
const CompositeWeightEpsilon = 1e-6

// CompositeWeights blends the four readiness components. The weights must
// sum to 1 within CompositeWeightEpsilon.
type CompositeWeights struct {
	Fitness    float64 `json:"fitness" yaml:"fitness"`
	Form       float64 `json:"form" yaml:"form"`
	Durability float64 `json:"durability" yaml:"durability"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Validate rejects negative, non-finite, or non-normalized weights.
func (w CompositeWeights) Validate() error {
	for name, v := range map[string]float64{
		"fitness":    w.Fitness,
		"form":       w.Form,
		"durability": w.Durability,
		"confidence": w.Confidence,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("composite weight %s must be a finite non-negative number, got %v", name, v)
		}
	}
	sum := w.Fitness + w.Form + w.Durability + w.Confidence
	if math.Abs(sum-1) > CompositeWeightEpsilon {
		return fmt.Errorf("composite weights must sum to 1 (epsilon %g), got %.6f", CompositeWeightEpsilon, sum)
	}
	return nil
}

// ReadinessScore maps a latent state and evidence confidence to the bounded
// [0,100] readiness composite.
//
// Each component is squashed into [0,1] before blending:
//
//   - fitness position: CTL relative to a 100-load reference, saturating
//   - form: TSB through a logistic centered on zero with the given tolerance
//   - durability: the [0,100] durability scaled down
//   - confidence: evidence quality attenuated by state uncertainty
//
// Weights are assumed validated. The result is clamped as a last resort so
// the score stays in range even for adversarial (but finite) states.
func ReadinessScore(s LatentState, confidence float64, w CompositeWeights, formTolerance float64) float64 {
	if formTolerance <= 0 {
		formTolerance = 10
	}
	fitness := 1 - math.Exp(-math.Max(s.CTL, 0)/100)
	form := 1 / (1 + math.Exp(-s.TSB()/formTolerance))
	durability := clamp01(s.Durability / 100)
	conf := clamp01(confidence) / (1 + math.Max(s.Uncertainty, 0)/50)

	score := 100 * (w.Fitness*fitness + w.Form*form + w.Durability*durability + w.Confidence*conf)
	if math.IsNaN(score) {
		return 0
	}
	return math.Min(100, math.Max(0, score))
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
