package solver

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrNoCandidates reports an empty candidate set. This is a contract
// violation by the caller (inverted bounds), not a recoverable condition.
var ErrNoCandidates = errors.New("solver: empty candidate set")

// latticePrecision is the rounding grid for candidate deduplication.
const latticePrecision = 1e-6

// TieBreakOrder documents the fixed ranking chain, in order, for
// diagnostics output.
var TieBreakOrder = []string{
	"score_desc",
	"delta_from_previous_asc",
	"goal_date_asc",
	"goal_id_lex",
	"value_asc",
}

// Candidate is one scored weekly-load proposal.
type Candidate struct {
	// Value is the proposed weekly load.
	Value float64 `json:"value"`

	// Score is the objective score; -Inf for infeasible or degenerate
	// candidates.
	Score float64 `json:"score"`

	// DeltaFromPrevious is |Value - previous action|.
	DeltaFromPrevious float64 `json:"deltaFromPrevious"`

	// GoalDate and GoalID identify the dominant goal of the candidate's
	// evaluation, used only as tie-breakers.
	GoalDate time.Time `json:"goalDate"`
	GoalID   string    `json:"goalId"`
}

// Evaluation is what an evaluation function reports for one candidate
// value.
type Evaluation struct {
	Score    float64
	GoalDate time.Time
	GoalID   string
}

// EvalFunc scores one candidate weekly load.
type EvalFunc func(value float64) Evaluation

// Result is one solved decision step.
type Result struct {
	// Selected is the winning candidate.
	Selected Candidate `json:"selected"`

	// Candidates are all generated candidates in final rank order.
	Candidates []Candidate `json:"candidates"`

	// Evaluated counts candidates scored through the evaluation function.
	Evaluated int `json:"evaluated"`

	// Pruned counts candidates demoted to -Inf by non-finite or infeasible
	// evaluations.
	Pruned int `json:"pruned"`
}

// Lattice returns the deterministic candidate values for the interval
// [min, max]: count evenly spaced points, plus the point nearest the
// previous action (to bias toward continuity), deduplicated after rounding.
// The result is ascending.
func Lattice(min, max, previous float64, count int) []float64 {
	if max < min || count <= 0 {
		return nil
	}
	values := make([]float64, 0, count+1)
	if count == 1 || max == min {
		values = append(values, roundTo(min, latticePrecision))
	} else {
		step := (max - min) / float64(count-1)
		for i := 0; i < count; i++ {
			values = append(values, roundTo(min+float64(i)*step, latticePrecision))
		}
	}
	values = append(values, roundTo(clamp(previous, min, max), latticePrecision))

	sort.Float64s(values)
	dedup := values[:1]
	for _, v := range values[1:] {
		if v != dedup[len(dedup)-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}

// Solve generates, evaluates, and ranks candidates for one decision step
// and returns the selection with full candidate diagnostics.
func Solve(min, max, previous float64, count int, eval EvalFunc) (Result, error) {
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return Result{}, fmt.Errorf("solver: non-finite bounds [%v, %v]", min, max)
	}
	values := Lattice(min, max, previous, count)
	if len(values) == 0 {
		return Result{}, fmt.Errorf("%w: bounds [%v, %v], count %d", ErrNoCandidates, min, max, count)
	}

	res := Result{Candidates: make([]Candidate, 0, len(values))}
	for _, v := range values {
		ev := eval(v)
		res.Evaluated++
		// Non-finite scores are the worst possible score, never a crash.
		score := ev.Score
		if math.IsNaN(score) || math.IsInf(score, 1) {
			score = math.Inf(-1)
		}
		if math.IsInf(score, -1) {
			res.Pruned++
		}
		res.Candidates = append(res.Candidates, Candidate{
			Value:             v,
			Score:             score,
			DeltaFromPrevious: math.Abs(v - previous),
			GoalDate:          ev.GoalDate,
			GoalID:            ev.GoalID,
		})
	}

	Rank(res.Candidates)
	res.Selected = res.Candidates[0]
	return res, nil
}

// Rank sorts candidates in place by the fixed total-order tie-break chain.
func Rank(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DeltaFromPrevious != b.DeltaFromPrevious {
			return a.DeltaFromPrevious < b.DeltaFromPrevious
		}
		if !a.GoalDate.Equal(b.GoalDate) {
			return a.GoalDate.Before(b.GoalDate)
		}
		if a.GoalID != b.GoalID {
			return a.GoalID < b.GoalID
		}
		return a.Value < b.Value
	})
}

func roundTo(v, precision float64) float64 {
	return math.Round(v/precision) * precision
}

func clamp(v, min, max float64) float64 {
	return math.Min(max, math.Max(min, v))
}
