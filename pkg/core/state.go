package core

import (
	"math"
	"time"
)

// LatentState is the inferred athlete state for a single day.
type LatentState struct {
	// CTL is the chronic training load (42-day EMA of daily load). Never negative.
	CTL float64 `json:"ctl" yaml:"ctl"`

	// ATL is the acute training load (7-day EMA of daily load). Never negative.
	ATL float64 `json:"atl" yaml:"atl"`

	// Durability tracks structural resilience in [0,100]. It rises under
	// recovery and falls under sustained overload.
	Durability float64 `json:"durability" yaml:"durability"`

	// ReadinessLatent is the unbounded latent readiness signal before it is
	// blended into the [0,100] readiness score.
	ReadinessLatent float64 `json:"readinessLatent" yaml:"readinessLatent"`

	// Uncertainty is the estimator's standard-deviation-scale confidence
	// band around the state, in load units.
	Uncertainty float64 `json:"uncertainty" yaml:"uncertainty"`
}

// TSB is the training stress balance (form): CTL - ATL.
func (s LatentState) TSB() float64 {
	return s.CTL - s.ATL
}

// SLB is the strain/load balance: ATL / max(CTL, 1).
func (s LatentState) SLB() float64 {
	return s.ATL / math.Max(s.CTL, 1)
}

// IsFinite reports whether every field of the state is a finite number.
func (s LatentState) IsFinite() bool {
	for _, v := range []float64{s.CTL, s.ATL, s.Durability, s.ReadinessLatent, s.Uncertainty} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Estimate is the inference result for one latent variable.
type Estimate struct {
	Mean            float64 `json:"mean" yaml:"mean"`
	Uncertainty     float64 `json:"uncertainty" yaml:"uncertainty"`
	EvidenceQuality float64 `json:"evidenceQuality" yaml:"evidenceQuality"`
}

// StateSnapshot is the persisted form of the estimator output. A snapshot
// produced at the end of one run is accepted as the prior of the next; the
// engine itself never stores it.
type StateSnapshot struct {
	AsOf            time.Time `json:"asOf" yaml:"asOf"`
	CTL             Estimate  `json:"ctl" yaml:"ctl"`
	ATL             Estimate  `json:"atl" yaml:"atl"`
	Durability      Estimate  `json:"durability" yaml:"durability"`
	ReadinessLatent Estimate  `json:"readinessLatent" yaml:"readinessLatent"`
}

// State collapses the snapshot to a point estimate, using the maximum
// per-variable uncertainty as the state band.
func (s StateSnapshot) State() LatentState {
	u := s.CTL.Uncertainty
	for _, e := range []Estimate{s.ATL, s.Durability, s.ReadinessLatent} {
		if e.Uncertainty > u {
			u = e.Uncertainty
		}
	}
	return LatentState{
		CTL:             s.CTL.Mean,
		ATL:             s.ATL.Mean,
		Durability:      s.Durability.Mean,
		ReadinessLatent: s.ReadinessLatent.Mean,
		Uncertainty:     u,
	}
}

// EvidenceQuality is the mean per-variable evidence quality in [0,1].
func (s StateSnapshot) EvidenceQuality() float64 {
	sum := s.CTL.EvidenceQuality + s.ATL.EvidenceQuality +
		s.Durability.EvidenceQuality + s.ReadinessLatent.EvidenceQuality
	return sum / 4
}

// TrajectoryPoint is one projected day.
type TrajectoryPoint struct {
	Date       time.Time   `json:"date" yaml:"date"`
	Load       float64     `json:"load" yaml:"load"`
	State      LatentState `json:"state" yaml:"state"`
	TSB        float64     `json:"tsb" yaml:"tsb"`
	SLB        float64     `json:"slb" yaml:"slb"`
	Readiness  float64     `json:"readiness" yaml:"readiness"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
}

// Trajectory is a projected daily future starting at Start.
type Trajectory struct {
	Start  time.Time         `json:"start" yaml:"start"`
	Points []TrajectoryPoint `json:"points" yaml:"points"`
}

// At returns the point for the given date and whether one exists.
func (t Trajectory) At(date time.Time) (TrajectoryPoint, bool) {
	d := date.Truncate(24 * time.Hour)
	for _, p := range t.Points {
		if p.Date.Equal(d) {
			return p, true
		}
	}
	return TrajectoryPoint{}, false
}

// Last returns the final point of the trajectory, or false when empty.
func (t Trajectory) Last() (TrajectoryPoint, bool) {
	if len(t.Points) == 0 {
		return TrajectoryPoint{}, false
	}
	return t.Points[len(t.Points)-1], true
}

// WeeklyAction is one committed optimizer decision: the weekly load for the
// week starting at WeekStart.
type WeeklyAction struct {
	WeekStart  time.Time `json:"weekStart" yaml:"weekStart"`
	WeeklyLoad float64   `json:"weeklyLoad" yaml:"weeklyLoad"`
	Delta      float64   `json:"delta" yaml:"delta"`
}
