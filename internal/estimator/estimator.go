// Package estimator infers the latent athlete state from daily evidence.
//
// The estimator is a deterministic predict/update filter run once per
// evidence day. The predict step extrapolates the prior state with the same
// transition equations the projection engine uses; the update step
// assimilates the day's observed load, shrinking uncertainty in proportion
// to evidence quality. Missing days skip the update and inflate uncertainty
// multiplicatively, bounded so it never diverges.
//
// CTL and ATL are filtered jointly (their errors are correlated through the
// shared load input) with a 2x2 covariance propagated via gonum/mat.
// Durability and the readiness latent are propagated as deterministic
// functions of the filtered loads.
package estimator

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/strideworks/formcast/internal/evidence"
	"github.com/strideworks/formcast/pkg/config"
	"github.com/strideworks/formcast/pkg/core"
)

// bootstrap priors when no snapshot and no history exist.
const (
	bootstrapUncertainty = 30.0
	bootstrapDurability  = 70.0
)

// Estimate runs the filter over the evidence series and returns the new
// state snapshot. prior may be nil; with no prior and no history the result
// is a conservative zero-load bootstrap whose evidence quality is the
// calibration's no-history floor. The function is pure: identical inputs
// produce identical snapshots.
func Estimate(series []evidence.DayObservation, prior *core.StateSnapshot, calib config.Calibration) (core.StateSnapshot, error) {
	if err := calib.Validate(); err != nil {
		return core.StateSnapshot{}, err
	}
	for i, d := range series {
		if math.IsNaN(d.Load) || math.IsInf(d.Load, 0) {
			return core.StateSnapshot{}, fmt.Errorf("evidence day %d: load must be finite, got %v", i, d.Load)
		}
	}

	f := newFilter(prior, calib)
	for _, day := range series {
		f.predict(day.Load)
		if day.Observed {
			f.update(day.Load, day.Quality)
		} else {
			f.inflate()
		}
		f.advanceDerived()
	}

	snap := f.snapshot(series, calib)
	if !snap.State().IsFinite() {
		// Unreachable for finite input; kept as a hard boundary so a filter
		// defect can never leak NaNs into the projection.
		return core.StateSnapshot{}, fmt.Errorf("estimator produced a non-finite state")
	}
	return snap, nil
}

type filter struct {
	calib config.Calibration

	x *mat.VecDense // [ctl, atl]
	p *mat.Dense    // 2x2 covariance

	durability      float64
	readinessLatent float64
	asOf            time.Time
}

func newFilter(prior *core.StateSnapshot, calib config.Calibration) *filter {
	f := &filter{
		calib:           calib,
		x:               mat.NewVecDense(2, nil),
		p:               mat.NewDense(2, 2, nil),
		durability:      bootstrapDurability,
		readinessLatent: 0,
	}
	if prior != nil {
		f.x.SetVec(0, prior.CTL.Mean)
		f.x.SetVec(1, prior.ATL.Mean)
		f.p.Set(0, 0, square(prior.CTL.Uncertainty))
		f.p.Set(1, 1, square(prior.ATL.Uncertainty))
		f.durability = prior.Durability.Mean
		f.readinessLatent = prior.ReadinessLatent.Mean
		f.asOf = prior.AsOf
	} else {
		f.p.Set(0, 0, square(bootstrapUncertainty))
		f.p.Set(1, 1, square(bootstrapUncertainty))
	}
	return f
}

// predict extrapolates one day forward under the observed load, using the
// same EMA transition as the projection engine, and grows the covariance by
// the process noise.
func (f *filter) predict(load float64) {
	kc := 2 / (f.calib.FitnessTimeConstantDays + 1)
	ka := 2 / (f.calib.FatigueTimeConstantDays + 1)

	// x' = F x + B load
	fMat := mat.NewDense(2, 2, []float64{1 - kc, 0, 0, 1 - ka})
	var next mat.VecDense
	next.MulVec(fMat, f.x)
	next.SetVec(0, next.AtVec(0)+kc*load)
	next.SetVec(1, next.AtVec(1)+ka*load)
	f.x.CopyVec(&next)

	// P' = F P F^T + Q
	var fp, fpft mat.Dense
	fp.Mul(fMat, f.p)
	fpft.Mul(&fp, fMat.T())
	q := f.calib.Estimator.ProcessNoise
	fpft.Set(0, 0, fpft.At(0, 0)+q)
	fpft.Set(1, 1, fpft.At(1, 1)+q)
	f.p.Copy(&fpft)

	f.clampState()
}

// update assimilates the day's load as a measurement of the acute
// accumulator (H = [0 1]); low evidence quality inflates the measurement
// noise so poor proxies move the state less.
func (f *filter) update(load, quality float64) {
	q := math.Min(1, math.Max(quality, 0.05))
	r := f.calib.Estimator.MeasurementNoise / q

	// Innovation against the acute accumulator.
	y := load - f.x.AtVec(1)
	s := f.p.At(1, 1) + r
	if s <= 0 {
		// Zero-variance degenerate input: clamp rather than divide.
		s = f.calib.UncertaintyFloor
	}
	k0 := f.p.At(0, 1) / s
	k1 := f.p.At(1, 1) / s

	f.x.SetVec(0, f.x.AtVec(0)+k0*y)
	f.x.SetVec(1, f.x.AtVec(1)+k1*y)

	// P = (I - K H) P with H = [0 1].
	ikh := mat.NewDense(2, 2, []float64{1, -k0, 0, 1 - k1})
	var next mat.Dense
	next.Mul(ikh, f.p)
	f.p.Copy(&next)

	f.clampState()
}

// inflate grows uncertainty on days without evidence, bounded by the
// configured ceiling so long gaps degrade confidence without diverging.
func (f *filter) inflate() {
	g := square(f.calib.Estimator.MissingDayInflation)
	ceil := square(f.calib.Estimator.MaxUncertainty)
	for i := 0; i < 2; i++ {
		v := f.p.At(i, i) * g
		if v > ceil {
			v = ceil
		}
		f.p.Set(i, i, v)
	}
}

// advanceDerived propagates durability and the readiness latent with the
// projection transition, driven by the filtered state.
func (f *filter) advanceDerived() {
	state := core.LatentState{CTL: f.x.AtVec(0), ATL: f.x.AtVec(1)}
	strain := state.SLB()
	if strain > f.calib.DurabilityStrainThreshold {
		f.durability -= f.calib.DurabilityOverloadPenalty * (strain - f.calib.DurabilityStrainThreshold)
	} else {
		f.durability += f.calib.DurabilityRecoveryGain * (f.calib.DurabilityStrainThreshold - strain)
	}
	f.durability = math.Min(100, math.Max(0, f.durability))

	// Readiness latent tracks form with a short memory.
	const latentBlend = 0.25
	f.readinessLatent += latentBlend * (state.TSB() - f.readinessLatent)
}

func (f *filter) clampState() {
	f.x.SetVec(0, math.Max(0, f.x.AtVec(0)))
	f.x.SetVec(1, math.Max(0, f.x.AtVec(1)))
	floor := square(f.calib.UncertaintyFloor)
	for i := 0; i < 2; i++ {
		if f.p.At(i, i) < floor {
			f.p.Set(i, i, floor)
		}
	}
}

func (f *filter) snapshot(series []evidence.DayObservation, calib config.Calibration) core.StateSnapshot {
	quality := evidenceQuality(series, calib)
	snap := core.StateSnapshot{
		CTL: core.Estimate{
			Mean:            f.x.AtVec(0),
			Uncertainty:     math.Max(calib.UncertaintyFloor, math.Sqrt(math.Max(0, f.p.At(0, 0)))),
			EvidenceQuality: quality,
		},
		ATL: core.Estimate{
			Mean:            f.x.AtVec(1),
			Uncertainty:     math.Max(calib.UncertaintyFloor, math.Sqrt(math.Max(0, f.p.At(1, 1)))),
			EvidenceQuality: quality,
		},
		Durability: core.Estimate{
			Mean:            f.durability,
			Uncertainty:     math.Max(calib.UncertaintyFloor, (1-quality)*20),
			EvidenceQuality: quality,
		},
		ReadinessLatent: core.Estimate{
			Mean:            f.readinessLatent,
			Uncertainty:     math.Max(calib.UncertaintyFloor, (1-quality)*10),
			EvidenceQuality: quality,
		},
	}
	// With no new evidence the prior's as-of date survives the round-trip,
	// so the next run still resumes the day after it.
	snap.AsOf = f.asOf
	if len(series) > 0 {
		snap.AsOf = series[len(series)-1].Date
	}
	return snap
}

// evidenceQuality blends evidence coverage with signal consistency (stable
// day-to-day loads are easier to infer from than erratic ones), floored by
// the calibration's no-history confidence floor.
func evidenceQuality(series []evidence.DayObservation, calib config.Calibration) float64 {
	if len(series) == 0 {
		return calib.NoHistoryConfidenceFloor
	}
	coverage := evidence.Coverage(series)

	loads := make([]float64, 0, len(series))
	for _, d := range series {
		if d.Observed {
			loads = append(loads, d.Load)
		}
	}
	consistency := 1.0
	if len(loads) > 1 {
		m, sd := stat.MeanStdDev(loads, nil)
		if m > 0 {
			cv := sd / m
			consistency = 1 / (1 + cv)
		}
	}

	quality := 0.7*coverage + 0.3*consistency
	return math.Min(1, math.Max(calib.NoHistoryConfidenceFloor, quality))
}

func square(v float64) float64 { return v * v }
