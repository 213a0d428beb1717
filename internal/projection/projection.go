// Package projection advances the latent athlete state day by day under a
// proposed sequence of weekly load actions.
//
// Every transition is a continuous function of the previous day's state and
// the day's load: exponentially weighted fitness/fatigue accumulation, a
// durability term that recovers under low strain and erodes under overload,
// and the readiness composite blended by the calibration's weights. Taper
// and deload behavior is a continuous bias term parameterized by
// calibration, never a week-indexed multiplier, so small input changes
// cannot produce discontinuous output jumps.
package projection

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/strideworks/formcast/pkg/config"
	"github.com/strideworks/formcast/pkg/core"
)

// ErrNonFinite reports non-finite input reaching the projection boundary.
// The projection fails fast rather than substituting values.
var ErrNonFinite = errors.New("projection: non-finite input")

// Input describes one projection run.
type Input struct {
	// Start is the first projected day (day 0 carries the starting state).
	Start time.Time

	// StartState seeds day 0. Consumed by value, never mutated.
	StartState core.LatentState

	// Confidence is the evidence quality carried into the readiness
	// composite, in [0,1].
	Confidence float64

	// WeeklyLoads are the proposed total loads per week, in order.
	WeeklyLoads []float64

	// Goals provide the target dates that drive the continuous taper bias.
	Goals []core.Goal
}

// Project simulates the full daily trajectory for the input. A zero-length
// horizon returns a degenerate single-point trajectory holding the start
// state.
func Project(in Input, calib config.Calibration) (core.Trajectory, error) {
	if !in.StartState.IsFinite() {
		return core.Trajectory{}, fmt.Errorf("%w: start state", ErrNonFinite)
	}
	for i, w := range in.WeeklyLoads {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return core.Trajectory{}, fmt.Errorf("%w: weekly load %d is %v", ErrNonFinite, i, w)
		}
		if w < 0 {
			return core.Trajectory{}, fmt.Errorf("projection: weekly load %d must be non-negative, got %v", i, w)
		}
	}

	start := in.Start.UTC().Truncate(24 * time.Hour)
	traj := core.Trajectory{Start: start}
	state := in.StartState

	appendPoint := func(date time.Time, load float64, s core.LatentState) {
		traj.Points = append(traj.Points, core.TrajectoryPoint{
			Date:       date,
			Load:       load,
			State:      s,
			TSB:        s.TSB(),
			SLB:        s.SLB(),
			Readiness:  core.ReadinessScore(s, in.Confidence, calib.Composite, calib.FormToleranceTSB),
			Confidence: in.Confidence,
		})
	}

	appendPoint(start, 0, state)
	if len(in.WeeklyLoads) == 0 {
		return traj, nil
	}

	goalDates := upcomingGoalDates(in.Goals)
	day := start
	for _, weekly := range in.WeeklyLoads {
		for d := 0; d < 7; d++ {
			day = day.AddDate(0, 0, 1)
			load := dailyLoad(weekly, day, goalDates, calib)
			state = Step(state, load, calib)
			appendPoint(day, load, state)
		}
	}
	return traj, nil
}

// Step advances the state by one day under the given load. It is the single
// transition function shared (by construction) with the estimator's predict
// step.
func Step(prev core.LatentState, load float64, calib config.Calibration) core.LatentState {
	kc := 2 / (calib.FitnessTimeConstantDays + 1)
	ka := 2 / (calib.FatigueTimeConstantDays + 1)

	next := prev
	next.CTL = math.Max(0, prev.CTL+kc*(load-prev.CTL))
	next.ATL = math.Max(0, prev.ATL+ka*(load-prev.ATL))

	strain := next.SLB()
	if strain > calib.DurabilityStrainThreshold {
		next.Durability -= calib.DurabilityOverloadPenalty * (strain - calib.DurabilityStrainThreshold)
	} else {
		next.Durability += calib.DurabilityRecoveryGain * (calib.DurabilityStrainThreshold - strain)
	}
	next.Durability = math.Min(100, math.Max(0, next.Durability))

	const latentBlend = 0.25
	next.ReadinessLatent = prev.ReadinessLatent + latentBlend*(next.TSB()-prev.ReadinessLatent)

	// Projected days add no evidence; uncertainty drifts up slowly, bounded
	// by the estimator ceiling.
	next.Uncertainty = math.Min(calib.Estimator.MaxUncertainty, prev.Uncertainty*1.01)
	return next
}

// dailyLoad spreads a weekly load across days and applies the continuous
// taper bias: emphasis fades exponentially as the nearest goal approaches,
// so a taper week carries less total load without any discrete phase cliff.
func dailyLoad(weekly float64, day time.Time, goalDates []time.Time, calib config.Calibration) float64 {
	base := weekly / 7
	days := daysToNearestGoal(day, goalDates)
	if days < 0 {
		return base
	}
	bias := 1 - calib.TaperStrength*math.Exp(-float64(days)/calib.TaperTimeConstantDays)
	return base * bias
}

func upcomingGoalDates(goals []core.Goal) []time.Time {
	dates := make([]time.Time, 0, len(goals))
	for _, g := range core.SortGoals(goals) {
		dates = append(dates, g.Date.UTC().Truncate(24*time.Hour))
	}
	return dates
}

// daysToNearestGoal returns the day distance to the next goal on or after
// the given day, or -1 when none remains.
func daysToNearestGoal(day time.Time, goalDates []time.Time) int {
	for _, gd := range goalDates {
		if !gd.Before(day) {
			return int(gd.Sub(day).Hours() / 24)
		}
	}
	return -1
}
