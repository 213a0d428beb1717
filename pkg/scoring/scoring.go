// Package scoring converts projected state into target, goal, and plan
// scores.
//
// Target utility is a continuous expected-value-style attainment score in
// [0,1], not a pass/fail threshold: it decays smoothly with the shortfall
// against the target (scaled by the calibration's per-metric tolerance) and
// is attenuated by evidence confidence, so overlapping goals under sparse
// evidence cannot all score near the maximum at once.
//
// Aggregation is weighted means at both layers, with priority weights
// computed by the one shared shaping function
// (config.Calibration.PriorityWeight) so that priority and weight mean the
// same thing everywhere.
package scoring

import (
	"math"
	"time"

	"github.com/strideworks/formcast/pkg/config"
	"github.com/strideworks/formcast/pkg/core"
)

// GoalScore is the aggregated score of one goal.
type GoalScore struct {
	GoalID string  `json:"goalId" yaml:"goalId"`
	Score  float64 `json:"score" yaml:"score"`

	// TargetUtilities are the per-target utilities in target order.
	TargetUtilities []float64 `json:"targetUtilities" yaml:"targetUtilities"`
}

// metricValue extracts a target's metric from a trajectory point.
func metricValue(traj core.Trajectory, p core.TrajectoryPoint, metric core.TargetMetric) float64 {
	switch metric {
	case core.MetricCTL:
		return p.State.CTL
	case core.MetricTSB:
		return p.TSB
	case core.MetricReadiness:
		return p.Readiness
	case core.MetricWeeklyLoad:
		return weeklyLoad(traj, p.Date)
	default:
		return math.NaN()
	}
}

// weeklyLoad sums the planned load over the seven days ending at date, so a
// taper toward the date is read as the week actually planned, not the final
// day extrapolated. A shorter covered window is scaled up to weekly units.
func weeklyLoad(traj core.Trajectory, date time.Time) float64 {
	d := date.UTC().Truncate(24 * time.Hour)
	lo := d.AddDate(0, 0, -6)
	var sum float64
	n := 0
	for _, p := range traj.Points {
		if p.Date.Before(lo) || p.Date.After(d) {
			continue
		}
		sum += p.Load
		n++
	}
	if n == 0 {
		return 0
	}
	if n < 7 {
		sum *= 7 / float64(n)
	}
	return sum
}

// TargetUtility scores one target against the projected state at the goal
// date. The utility is exp(-shortfall/tolerance) on the unmet side and
// saturates toward 1 on the met side, attenuated by confidence so sparse
// evidence caps how certain any attainment claim can be.
func TargetUtility(traj core.Trajectory, p core.TrajectoryPoint, target core.Target, calib config.Calibration) float64 {
	value := metricValue(traj, p, target.Metric)
	if math.IsNaN(value) {
		return 0
	}
	tol := calib.Tolerance(target.Metric)

	var shortfall float64
	switch target.Direction {
	case core.AtMost:
		shortfall = value - target.Value
	default:
		shortfall = target.Value - value
	}

	var base float64
	if shortfall <= 0 {
		// Met, with margin: approach 1 smoothly rather than jumping there.
		base = 1 - 0.1*math.Exp(shortfall/tol)
	} else {
		base = 0.9 * math.Exp(-shortfall/tol)
	}

	conf := math.Min(1, math.Max(0, p.Confidence))
	utility := base * (0.5 + 0.5*conf)
	return math.Min(1, math.Max(0, utility))
}

// ScoreGoal aggregates a goal's target utilities by weighted mean, reading
// the state at the goal date (or the trajectory end, whichever is earlier).
func ScoreGoal(traj core.Trajectory, goal core.Goal, calib config.Calibration) GoalScore {
	point, ok := traj.At(goal.Date)
	if !ok {
		if point, ok = traj.Last(); !ok {
			return GoalScore{GoalID: goal.ID}
		}
	}

	gs := GoalScore{GoalID: goal.ID, TargetUtilities: make([]float64, 0, len(goal.Targets))}
	var weighted, weights float64
	for _, t := range goal.Targets {
		u := TargetUtility(traj, point, t, calib)
		w := t.EffectiveWeight()
		gs.TargetUtilities = append(gs.TargetUtilities, u)
		weighted += u * w
		weights += w
	}
	if weights > 0 {
		gs.Score = weighted / weights
	}
	return gs
}

// ScorePlan aggregates goal scores by priority-weighted mean. Goals are
// scored in deterministic (date, ID) order.
func ScorePlan(traj core.Trajectory, goals []core.Goal, calib config.Calibration) (float64, []GoalScore) {
	ordered := core.SortGoals(goals)
	scores := make([]GoalScore, 0, len(ordered))
	var weighted, weights float64
	for _, g := range ordered {
		gs := ScoreGoal(traj, g, calib)
		scores = append(scores, gs)
		w := calib.PriorityWeight(g.Priority)
		weighted += gs.Score * w
		weights += w
	}
	if weights == 0 {
		return 0, scores
	}
	return weighted / weights, scores
}
