package optimizer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/strideworks/formcast/internal/diagnostics"
	"github.com/strideworks/formcast/internal/estimator"
	"github.com/strideworks/formcast/internal/evidence"
	"github.com/strideworks/formcast/internal/logging"
	"github.com/strideworks/formcast/internal/metrics"
	"github.com/strideworks/formcast/internal/projection"
	"github.com/strideworks/formcast/internal/safety"
	"github.com/strideworks/formcast/pkg/config"
	"github.com/strideworks/formcast/pkg/core"
	"github.com/strideworks/formcast/pkg/scoring"
	"github.com/strideworks/formcast/pkg/solver"
)

// Request carries every input of one engine run. All fields are consumed as
// read-only values.
type Request struct {
	// Records is the normalized activity history from the evidence
	// collaborator.
	Records []evidence.ActivityRecord

	// AthleteProfile supplies HR zones and threshold metrics for load
	// derivation.
	AthleteProfile evidence.Profile

	// PriorSnapshot is the previously persisted state, if any.
	PriorSnapshot *core.StateSnapshot

	// Goals define what the plan optimizes toward.
	Goals []core.Goal

	// Calibration is the validated coefficient set for this run.
	Calibration config.Calibration

	// Profile selects the optimization profile (defaults to balanced).
	Profile config.Profile

	// CapsOverride raises or lowers the profile's default caps; zero fields
	// keep the defaults. Values above an absolute rail are rejected.
	CapsOverride config.Caps

	// BoundsOverride clamps the profile's solve bounds.
	BoundsOverride config.SolveBounds

	// Start is the first planned day. Zero means the day after the last
	// evidence day (or the day after AsOf of the prior snapshot).
	Start time.Time
}

// GoalResult pairs a goal's score with its feasibility classification.
type GoalResult struct {
	GoalID      string             `json:"goalId" yaml:"goalId"`
	Score       float64            `json:"score" yaml:"score"`
	Feasibility safety.Feasibility `json:"feasibility" yaml:"feasibility"`
}

// PlanResult is the complete output of one run, shaped for the
// presentation/persistence collaborator.
type PlanResult struct {
	Trajectory  core.Trajectory     `json:"trajectory" yaml:"trajectory"`
	Actions     []core.WeeklyAction `json:"actions" yaml:"actions"`
	PlanScore   float64             `json:"planScore" yaml:"planScore"`
	GoalScores  []scoring.GoalScore `json:"goalScores" yaml:"goalScores"`
	GoalResults []GoalResult        `json:"goalResults" yaml:"goalResults"`
	Feasibility safety.Feasibility  `json:"feasibility" yaml:"feasibility"`
	Snapshot    core.StateSnapshot  `json:"snapshot" yaml:"snapshot"`
	Diagnostics diagnostics.Report  `json:"diagnostics" yaml:"diagnostics"`
}

// Solve runs the full pipeline once. It is deterministic: identical
// requests produce identical results.
func Solve(ctx context.Context, req Request) (*PlanResult, error) {
	logger := logging.FromContext(ctx)
	started := time.Now()

	profile, err := config.ParseProfile(string(req.Profile))
	if err != nil {
		metrics.SolvesTotal.WithLabelValues("config_error").Inc()
		return nil, err
	}
	if err := req.Calibration.Validate(); err != nil {
		metrics.SolvesTotal.WithLabelValues("config_error").Inc()
		return nil, fmt.Errorf("calibration: %w", err)
	}
	caps := config.DefaultCaps(profile).Merge(req.CapsOverride)
	if err := safety.CheckCaps(caps); err != nil {
		metrics.SolvesTotal.WithLabelValues("config_error").Inc()
		return nil, fmt.Errorf("caps: %w", err)
	}
	if err := core.ValidateGoals(req.Goals); err != nil {
		metrics.SolvesTotal.WithLabelValues("config_error").Inc()
		return nil, fmt.Errorf("goals: %w", err)
	}
	bounds := config.ResolveSolveBounds(profile, req.BoundsOverride)

	// Estimation.
	records := make([]evidence.ActivityRecord, len(req.Records))
	copy(records, req.Records)
	evidence.SortRecords(records)
	series, err := evidence.DailySeries(records, req.AthleteProfile)
	if err != nil {
		metrics.SolvesTotal.WithLabelValues("config_error").Inc()
		return nil, fmt.Errorf("evidence: %w", err)
	}
	snapshot, err := estimator.Estimate(series, req.PriorSnapshot, req.Calibration)
	if err != nil {
		metrics.SolvesTotal.WithLabelValues("config_error").Inc()
		return nil, fmt.Errorf("estimator: %w", err)
	}

	start := resolveStart(req, snapshot)
	state := snapshot.State()
	confidence := snapshot.EvidenceQuality()
	baselineWeekly := evidence.WeeklyAverage(series)
	prevAction := baselineWeekly
	if prevAction <= 0 {
		prevAction = state.CTL * 7
	}

	logger.V(logging.DEBUG).Info("starting solve",
		"profile", profile,
		"horizonWeeks", bounds.HorizonWeeks,
		"candidateCount", bounds.CandidateCount,
		"ctl", state.CTL, "atl", state.ATL,
		"evidenceQuality", confidence)

	result := &PlanResult{
		Snapshot: snapshot,
		Diagnostics: diagnostics.Report{
			Profile:          profile,
			SolveBounds:      bounds,
			EffectiveCaps:    caps,
			CalibrationVer:   req.Calibration.Version,
			TieBreakOrder:    solver.TieBreakOrder,
			EvidenceQuality:  confidence,
			StateUncertainty: state.Uncertainty,
		},
	}
	result.Trajectory = core.Trajectory{Start: start}
	result.Trajectory.Points = append(result.Trajectory.Points, seedPoint(start, state, confidence, req.Calibration))

	weekStart := start
	for week := 0; week < bounds.HorizonWeeks; week++ {
		actionBounds := safety.WeeklyActionBounds(caps, state.CTL, req.Calibration)

		remaining := bounds.HorizonWeeks - week
		eval := func(value float64) solver.Evaluation {
			return evaluateCandidate(candidateInput{
				state:          state,
				confidence:     confidence,
				weekStart:      weekStart,
				value:          value,
				remainingWeeks: remaining,
				prevAction:     prevAction,
				baseline:       baselineWeekly,
				goals:          req.Goals,
				calib:          req.Calibration,
				caps:           caps,
			})
		}

		solved, err := solver.Solve(actionBounds.Min, actionBounds.Max, prevAction, bounds.CandidateCount, eval)
		if err != nil {
			metrics.SolvesTotal.WithLabelValues("invariant_error").Inc()
			return nil, fmt.Errorf("week %d: %w", week, err)
		}
		metrics.CandidatesEvaluated.Add(float64(solved.Evaluated))
		metrics.CandidatesPruned.Add(float64(solved.Pruned))

		if math.IsInf(solved.Selected.Score, -1) {
			// Every candidate breached a rail; the run cannot proceed.
			metrics.SolvesTotal.WithLabelValues("invariant_error").Inc()
			return nil, fmt.Errorf("week %d: no candidate satisfies the absolute rails", week)
		}

		selected := solved.Selected.Value

		// Commit only the first week of the winning plan.
		committed, err := projection.Project(projection.Input{
			Start:       weekStart,
			StartState:  state,
			Confidence:  confidence,
			WeeklyLoads: []float64{selected},
			Goals:       req.Goals,
		}, req.Calibration)
		if err != nil {
			metrics.SolvesTotal.WithLabelValues("invariant_error").Inc()
			return nil, fmt.Errorf("week %d: %w", week, err)
		}

		result.Trajectory.Points = append(result.Trajectory.Points, committed.Points[1:]...)
		last := committed.Points[len(committed.Points)-1]

		result.Actions = append(result.Actions, core.WeeklyAction{
			WeekStart:  weekStart,
			WeeklyLoad: selected,
			Delta:      selected - prevAction,
		})
		result.Diagnostics.Steps = append(result.Diagnostics.Steps, stepReport(weekStart, actionBounds, solved, caps, req.Calibration, evaluateBreakdown(state, confidence, weekStart, selected, remaining, prevAction, baselineWeekly, req.Goals, req.Calibration, caps)))

		state = last.State
		prevAction = selected
		weekStart = weekStart.AddDate(0, 0, 7)
	}

	// Final scoring and feasibility on the committed trajectory.
	planScore, goalScores := scoring.ScorePlan(result.Trajectory, req.Goals, req.Calibration)
	result.PlanScore = planScore
	result.GoalScores = goalScores
	result.GoalResults = classifyGoals(result.Trajectory, req.Goals, goalScores, caps, req.Calibration)
	result.Feasibility = safety.Classify(result.Trajectory, caps, req.Calibration)

	if violations := safety.ValidateInvariants(result.Trajectory, req.Calibration); len(violations) > 0 {
		// Committed weeks came from rail-validated candidates, so this is a
		// pipeline defect, not a user error.
		metrics.RailViolations.Add(float64(len(violations)))
		metrics.SolvesTotal.WithLabelValues("invariant_error").Inc()
		return nil, violations[0]
	}

	metrics.SolvesTotal.WithLabelValues("ok").Inc()
	metrics.SolveDuration.Observe(time.Since(started).Seconds())
	logger.V(logging.INFO).Info("solve complete",
		"planScore", result.PlanScore,
		"feasibility", result.Feasibility,
		"weeks", len(result.Actions))
	return result, nil
}

type candidateInput struct {
	state          core.LatentState
	confidence     float64
	weekStart      time.Time
	value          float64
	remainingWeeks int
	prevAction     float64
	baseline       float64
	goals          []core.Goal
	calib          config.Calibration
	caps           config.Caps
}

// evaluateCandidate simulates the remaining horizon under the candidate
// (held constant after the decision week, with the taper bias applied
// inside the projection) and scores the objective. Rail breaches score
// -Inf.
func evaluateCandidate(in candidateInput) solver.Evaluation {
	var ev solver.Evaluation

	loads := make([]float64, in.remainingWeeks)
	for i := range loads {
		loads[i] = in.value
	}
	traj, err := projection.Project(projection.Input{
		Start:       in.weekStart,
		StartState:  in.state,
		Confidence:  in.confidence,
		WeeklyLoads: loads,
		Goals:       in.goals,
	}, in.calib)
	if err != nil {
		ev.Score = math.Inf(-1)
		return ev
	}
	if violations := safety.ValidateInvariants(traj, in.calib); len(violations) > 0 {
		metrics.RailViolations.Add(float64(len(violations)))
		ev.Score = math.Inf(-1)
		return ev
	}

	b, goalScores := objective(traj, in)
	ev.Score = b.Total
	ev.GoalDate, ev.GoalID = dominantGoal(in.goals, goalScores, in.calib)
	return ev
}

// objective computes the signed objective-term breakdown for a candidate
// trajectory, along with the per-goal scores behind its goal term.
func objective(traj core.Trajectory, in candidateInput) (diagnostics.ObjectiveBreakdown, []scoring.GoalScore) {
	w := in.calib.Objective
	planScore, goalScores := scoring.ScorePlan(traj, in.goals, in.calib)

	var readinessSum, minDurability float64
	minDurability = 100
	for _, p := range traj.Points {
		readinessSum += p.Readiness
		if p.State.Durability < minDurability {
			minDurability = p.State.Durability
		}
	}
	avgReadiness := readinessSum / float64(len(traj.Points))

	prox := safety.CapProximity(traj, in.caps, in.calib)
	risk := in.calib.RampPenaltyWeight*math.Max(0, prox-0.5)*2 +
		in.calib.MonotonyPenaltyWeight*monotony(traj) +
		in.calib.DurabilityPenaltyWeight*(1-minDurability/100)

	scale := in.calib.Tolerances.WeeklyLoad
	volatility := math.Abs(in.value-in.prevAction) / scale
	churn := 0.0
	if in.baseline > 0 {
		churn = math.Abs(in.value-in.baseline) / scale
	}

	b := diagnostics.ObjectiveBreakdown{
		Goal:       w.Goal * planScore,
		Readiness:  w.Readiness * avgReadiness / 100,
		Risk:       -w.Risk * risk,
		Volatility: -w.Volatility * volatility,
		Churn:      -w.Churn * churn,
	}
	b.Total = b.Goal + b.Readiness + b.Risk + b.Volatility + b.Churn
	return b, goalScores
}

// monotony measures day-to-day load sameness over loaded days: high weekly
// load with no variation is a known overtraining marker, and penalizing it
// continuously replaces any discrete deload rule.
func monotony(traj core.Trajectory) float64 {
	var loads []float64
	for _, p := range traj.Points[1:] {
		loads = append(loads, p.Load)
	}
	if len(loads) < 2 {
		return 0
	}
	var sum float64
	for _, l := range loads {
		sum += l
	}
	mean := sum / float64(len(loads))
	if mean <= 0 {
		return 0
	}
	var varSum float64
	for _, l := range loads {
		varSum += (l - mean) * (l - mean)
	}
	sd := math.Sqrt(varSum / float64(len(loads)))
	// Foster monotony is mean/sd; map it to [0,1) so the penalty stays
	// bounded for perfectly flat weeks.
	m := mean / math.Max(sd, 1)
	return m / (m + 10)
}

func stepReport(weekStart time.Time, bounds safety.ActionBounds, solved solver.Result, caps config.Caps, calib config.Calibration, breakdown diagnostics.ObjectiveBreakdown) diagnostics.StepReport {
	report := diagnostics.StepReport{
		WeekStart:  weekStart,
		MinValue:   bounds.Min,
		MaxValue:   bounds.Max,
		Selected:   solved.Selected.Value,
		Generated:  len(solved.Candidates),
		Evaluated:  solved.Evaluated,
		Pruned:     solved.Pruned,
		Objective:  breakdown,
		Candidates: solved.Candidates,
	}

	const boundaryTolerance = 1e-6
	if solved.Selected.Value >= bounds.Max-boundaryTolerance {
		report.ActiveConstraints = append(report.ActiveConstraints, activeBoundName(bounds.Max, caps, calib))
	}
	if solved.Selected.Value <= bounds.Min+boundaryTolerance {
		report.ActiveConstraints = append(report.ActiveConstraints, "min_weekly_load")
	}
	return report
}

// activeBoundName identifies which cap produced the binding upper bound.
func activeBoundName(max float64, caps config.Caps, calib config.Calibration) string {
	const tol = 1e-6
	daily := safety.DailyLoadCeiling(caps, calib)
	switch {
	case math.Abs(max-caps.MaxWeeklyLoad) < tol:
		return "max_weekly_load"
	case daily < caps.MaxDailyLoad && math.Abs(max-daily*7) < tol:
		return "max_daily_session_hours"
	case math.Abs(max-caps.MaxDailyLoad*7) < tol:
		return "max_daily_load"
	case math.Abs(max-safety.RailMaxWeeklyLoad) < tol:
		return "rail_max_weekly_load"
	default:
		return "max_ctl_ramp_per_week"
	}
}

// evaluateBreakdown recomputes the selected candidate's objective breakdown
// for diagnostics. Observation only: the selection is already made.
func evaluateBreakdown(state core.LatentState, confidence float64, weekStart time.Time, value float64, remaining int, prevAction, baseline float64, goals []core.Goal, calib config.Calibration, caps config.Caps) diagnostics.ObjectiveBreakdown {
	in := candidateInput{
		state: state, confidence: confidence, weekStart: weekStart,
		value: value, remainingWeeks: remaining, prevAction: prevAction,
		baseline: baseline, goals: goals, calib: calib, caps: caps,
	}
	loads := make([]float64, remaining)
	for i := range loads {
		loads[i] = value
	}
	traj, err := projection.Project(projection.Input{
		Start: weekStart, StartState: state, Confidence: confidence,
		WeeklyLoads: loads, Goals: goals,
	}, calib)
	if err != nil {
		return diagnostics.ObjectiveBreakdown{Total: math.Inf(-1)}
	}
	b, _ := objective(traj, in)
	return b
}

// classifyGoals assigns per-goal feasibility from the committed trajectory
// up to each goal date. A goal is unsafe when its demand cannot be met
// without exceeding a configured cap: the plan is already pinned at a cap
// and the goal still scores poorly.
func classifyGoals(traj core.Trajectory, goals []core.Goal, scores []scoring.GoalScore, caps config.Caps, calib config.Calibration) []GoalResult {
	scoreByID := make(map[string]float64, len(scores))
	for _, gs := range scores {
		scoreByID[gs.GoalID] = gs.Score
	}

	ordered := core.SortGoals(goals)
	results := make([]GoalResult, 0, len(ordered))
	for _, g := range ordered {
		sub := trajectoryUntil(traj, g.Date)
		feas := safety.Classify(sub, caps, calib)
		score := scoreByID[g.ID]
		if feas != safety.Unsafe && score < 0.5 && safety.CapProximity(sub, caps, calib) >= 0.98 {
			feas = safety.Unsafe
		}
		results = append(results, GoalResult{GoalID: g.ID, Score: score, Feasibility: feas})
	}
	return results
}

func trajectoryUntil(traj core.Trajectory, date time.Time) core.Trajectory {
	d := date.UTC().Truncate(24 * time.Hour)
	out := core.Trajectory{Start: traj.Start}
	for _, p := range traj.Points {
		if p.Date.After(d) {
			break
		}
		out.Points = append(out.Points, p)
	}
	if len(out.Points) == 0 {
		out.Points = traj.Points
	}
	return out
}

func seedPoint(start time.Time, state core.LatentState, confidence float64, calib config.Calibration) core.TrajectoryPoint {
	return core.TrajectoryPoint{
		Date:       start.UTC().Truncate(24 * time.Hour),
		State:      state,
		TSB:        state.TSB(),
		SLB:        state.SLB(),
		Readiness:  core.ReadinessScore(state, confidence, calib.Composite, calib.FormToleranceTSB),
		Confidence: confidence,
	}
}

func resolveStart(req Request, snapshot core.StateSnapshot) time.Time {
	if !req.Start.IsZero() {
		return req.Start.UTC().Truncate(24 * time.Hour)
	}
	if !snapshot.AsOf.IsZero() {
		return snapshot.AsOf.AddDate(0, 0, 1)
	}
	// No evidence and no prior: plan from the earliest goal minus the
	// horizon is ambiguous, so anchor on the first goal's week.
	ordered := core.SortGoals(req.Goals)
	return ordered[0].Date.AddDate(0, 0, -7*12).UTC().Truncate(24 * time.Hour)
}

// dominantGoal attributes a candidate to the goal contributing the most
// priority-weighted score to its evaluation; ties resolve in (date, ID)
// order through the sorted iteration.
func dominantGoal(goals []core.Goal, scores []scoring.GoalScore, calib config.Calibration) (time.Time, string) {
	scoreByID := make(map[string]float64, len(scores))
	for _, gs := range scores {
		scoreByID[gs.GoalID] = gs.Score
	}
	var date time.Time
	var id string
	best := math.Inf(-1)
	for _, g := range core.SortGoals(goals) {
		if w := calib.PriorityWeight(g.Priority) * scoreByID[g.ID]; w > best {
			best = w
			date, id = g.Date, g.ID
		}
	}
	return date, id
}
