package optimizer

import (
	"context"
	"math"
	"math/rand"
	"reflect"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strideworks/formcast/internal/evidence"
	"github.com/strideworks/formcast/internal/safety"
	"github.com/strideworks/formcast/pkg/config"
	"github.com/strideworks/formcast/pkg/core"
	"github.com/strideworks/formcast/pkg/scoring"
	"github.com/strideworks/formcast/pkg/solver"
)

var (
	historyStart = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	planStart    = historyStart.AddDate(0, 0, 90)
)

// steadyHistory builds n days of measured activities at a constant weekly
// TSS total.
func steadyHistory(days int, weeklyTSS float64) []evidence.ActivityRecord {
	daily := weeklyTSS / 7
	records := make([]evidence.ActivityRecord, 0, days)
	for i := 0; i < days; i++ {
		tss := daily
		records = append(records, evidence.ActivityRecord{
			Date:        historyStart.AddDate(0, 0, i),
			DurationSec: 3600,
			TSS:         &tss,
		})
	}
	return records
}

func ctlGoal(id string, date time.Time, priority, targetCTL float64) core.Goal {
	return core.Goal{
		ID: id, Date: date, Priority: priority,
		Targets: []core.Target{
			{ID: "fitness", Metric: core.MetricCTL, Direction: core.AtLeast, Value: targetCTL},
		},
	}
}

func baseRequest() Request {
	return Request{
		Records:     steadyHistory(90, 400),
		Goals:       []core.Goal{ctlGoal("race", planStart.AddDate(0, 0, 84), 8, 75)},
		Calibration: config.DefaultCalibration(),
		Profile:     config.ProfileBalanced,
		Start:       planStart,
	}
}

var _ = Describe("Solve", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("with a steady 90-day history and a 12-week fitness goal", func() {
		var result *PlanResult

		BeforeEach(func() {
			var err error
			result, err = Solve(ctx, baseRequest())
			Expect(err).NotTo(HaveOccurred())
		})

		It("should commit one action per horizon week", func() {
			Expect(result.Actions).To(HaveLen(12))
			Expect(result.Trajectory.Points).To(HaveLen(1 + 12*7))
			for i, a := range result.Actions {
				Expect(a.WeekStart).To(Equal(planStart.AddDate(0, 0, 7*i)))
			}
		})

		It("should estimate the starting fitness from the history", func() {
			state := result.Snapshot.State()
			Expect(state.CTL).To(BeNumerically("~", 55, 5))
			Expect(state.ATL).To(BeNumerically("~", 57, 5))
			Expect(result.Diagnostics.EvidenceQuality).To(BeNumerically("~", 1.0, 0.05))
		})

		It("should ramp toward the goal without breaching the ramp cap", func() {
			last, ok := result.Trajectory.Last()
			Expect(ok).To(BeTrue())
			Expect(last.State.CTL).To(BeNumerically(">", 68))
			Expect(last.State.CTL).To(BeNumerically("<", 100))

			caps := config.DefaultCaps(config.ProfileBalanced)
			points := result.Trajectory.Points
			for i := 7; i < len(points); i += 7 {
				ramp := points[i].State.CTL - points[i-7].State.CTL
				Expect(ramp).To(BeNumerically("<=", caps.MaxCTLRampPerWeek+0.05),
					"week ending day %d", i)
			}
		})

		It("should keep every projected day inside the hard invariants", func() {
			Expect(safety.ValidateInvariants(result.Trajectory, config.DefaultCalibration())).To(BeEmpty())
			for _, p := range result.Trajectory.Points {
				Expect(p.Readiness).To(BeNumerically(">=", 0))
				Expect(p.Readiness).To(BeNumerically("<=", 100))
				Expect(p.State.Durability).To(BeNumerically(">=", 0))
				Expect(p.State.Durability).To(BeNumerically("<=", 100))
			}
		})

		It("should score the goal as attainable and not unsafe", func() {
			Expect(result.PlanScore).To(BeNumerically(">", 0.5))
			Expect(result.Feasibility).NotTo(Equal(safety.Unsafe))
			Expect(result.GoalResults).To(HaveLen(1))
			Expect(result.GoalResults[0].GoalID).To(Equal("race"))
			Expect(result.GoalResults[0].Feasibility).NotTo(Equal(safety.Unsafe))
		})

		It("should report full decision diagnostics", func() {
			d := result.Diagnostics
			Expect(d.Profile).To(Equal(config.ProfileBalanced))
			Expect(d.TieBreakOrder).To(Equal(solver.TieBreakOrder))
			Expect(d.CalibrationVer).To(Equal(config.CurrentCalibrationVersion))
			Expect(d.Steps).To(HaveLen(12))
			for _, step := range d.Steps {
				Expect(step.MinValue).To(Equal(0.0))
				Expect(step.MaxValue).To(BeNumerically("<=", safety.RailMaxWeeklyLoad))
				Expect(step.Selected).To(BeNumerically(">=", step.MinValue))
				Expect(step.Selected).To(BeNumerically("<=", step.MaxValue))
				Expect(step.Evaluated).To(BeNumerically(">", 0))
				Expect(step.Candidates).NotTo(BeEmpty())
				for _, c := range step.Candidates {
					if !math.IsInf(c.Score, -1) {
						Expect(c.GoalID).To(Equal("race"))
					}
				}
			}
		})
	})

	Context("determinism", func() {
		It("should produce identical results for identical requests", func() {
			a, err := Solve(ctx, baseRequest())
			Expect(err).NotTo(HaveOccurred())
			b, err := Solve(ctx, baseRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(reflect.DeepEqual(a, b)).To(BeTrue())
		})

		It("should not depend on the order of the activity records", func() {
			req := baseRequest()
			for i, j := 0, len(req.Records)-1; i < j; i, j = i+1, j-1 {
				req.Records[i], req.Records[j] = req.Records[j], req.Records[i]
			}
			shuffled, err := Solve(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			plain, err := Solve(ctx, baseRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(reflect.DeepEqual(shuffled, plain)).To(BeTrue())
		})
	})

	Context("with no history at all", func() {
		It("should bootstrap a conservative low-volume plan", func() {
			req := baseRequest()
			req.Records = nil
			req.Goals = []core.Goal{ctlGoal("first-race", planStart.AddDate(0, 0, 56), 6, 50)}

			result, err := Solve(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Diagnostics.EvidenceQuality).To(BeNumerically("~", req.Calibration.NoHistoryConfidenceFloor, 1e-12))
			Expect(result.Snapshot.State().CTL).To(BeZero())

			// From a zero CTL the ramp cap pins the first week low.
			Expect(result.Actions).NotTo(BeEmpty())
			Expect(result.Actions[0].WeeklyLoad).To(BeNumerically("<=", 130))
			Expect(safety.ValidateInvariants(result.Trajectory, req.Calibration)).To(BeEmpty())
		})
	})

	Context("with a prior snapshot instead of records", func() {
		It("should plan from the prior state", func() {
			req := baseRequest()
			req.Records = nil
			req.PriorSnapshot = &core.StateSnapshot{
				AsOf:            planStart.AddDate(0, 0, -1),
				CTL:             core.Estimate{Mean: 62, Uncertainty: 6, EvidenceQuality: 0.9},
				ATL:             core.Estimate{Mean: 58, Uncertainty: 8, EvidenceQuality: 0.9},
				Durability:      core.Estimate{Mean: 80, Uncertainty: 4, EvidenceQuality: 0.9},
				ReadinessLatent: core.Estimate{Mean: 3, Uncertainty: 3, EvidenceQuality: 0.9},
			}
			req.Start = time.Time{}

			result, err := Solve(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Snapshot.State().CTL).To(Equal(62.0))
			// Planning resumes the day after the prior snapshot, and the
			// returned snapshot keeps the prior's as-of date so the next run
			// can do the same.
			Expect(result.Trajectory.Start).To(Equal(planStart))
			Expect(result.Snapshot.AsOf).To(Equal(req.PriorSnapshot.AsOf))
		})
	})

	Context("with scarce daily availability", func() {
		It("should bound every action by the availability ceiling", func() {
			tight := baseRequest()
			tight.CapsOverride = config.Caps{MaxDailySessionHours: 0.5}
			wide := baseRequest()
			wide.CapsOverride = config.Caps{MaxDailySessionHours: 12}

			constrained, err := Solve(ctx, tight)
			Expect(err).NotTo(HaveOccurred())
			free, err := Solve(ctx, wide)
			Expect(err).NotTo(HaveOccurred())

			// Half an hour a day converts to a weekly ceiling through the
			// calibration's session load rate.
			ceiling := 0.5 * tight.Calibration.SessionLoadPerHour * 7
			for _, a := range constrained.Actions {
				Expect(a.WeeklyLoad).To(BeNumerically("<=", ceiling+1e-6))
			}
			for _, step := range constrained.Diagnostics.Steps {
				Expect(step.MaxValue).To(BeNumerically("<=", ceiling+1e-6))
			}
			Expect(free.Actions).NotTo(Equal(constrained.Actions))
		})
	})

	Context("configuration errors", func() {
		It("should reject an unknown profile", func() {
			req := baseRequest()
			req.Profile = "heroic"
			_, err := Solve(ctx, req)
			Expect(err).To(HaveOccurred())
		})

		It("should reject caps raised above an absolute rail", func() {
			req := baseRequest()
			req.CapsOverride = config.Caps{MaxWeeklyLoad: safety.RailMaxWeeklyLoad + 100}
			_, err := Solve(ctx, req)
			Expect(err).To(MatchError(ContainSubstring("rail")))
		})

		It("should reject an invalid calibration", func() {
			req := baseRequest()
			req.Calibration.Version = "v0"
			_, err := Solve(ctx, req)
			Expect(err).To(HaveOccurred())
		})

		It("should reject duplicate goal ids", func() {
			req := baseRequest()
			req.Goals = append(req.Goals, ctlGoal("race", planStart.AddDate(0, 0, 30), 5, 60))
			_, err := Solve(ctx, req)
			Expect(err).To(MatchError(ContainSubstring("duplicate")))
		})

		It("should reject an empty goal set", func() {
			req := baseRequest()
			req.Goals = nil
			_, err := Solve(ctx, req)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("under randomized cap configurations", func() {
		It("should never emit a trajectory that breaches an absolute rail", func() {
			rng := rand.New(rand.NewSource(7))
			for i := 0; i < 20; i++ {
				req := baseRequest()
				req.BoundsOverride = config.SolveBounds{HorizonWeeks: 6, CandidateCount: 9}
				req.CapsOverride = config.Caps{
					MaxWeeklyLoad:        200 + rng.Float64()*3200,
					MaxCTLRampPerWeek:    1 + rng.Float64()*13,
					MaxDailyLoad:         60 + rng.Float64()*530,
					MaxDailySessionHours: 1 + rng.Float64()*11,
				}
				req.Goals = []core.Goal{
					ctlGoal("g", planStart.AddDate(0, 0, 42), 1+rng.Float64()*9, 40+rng.Float64()*80),
				}

				result, err := Solve(ctx, req)
				Expect(err).NotTo(HaveOccurred(), "iteration %d caps %+v", i, req.CapsOverride)
				Expect(safety.ValidateInvariants(result.Trajectory, req.Calibration)).To(BeEmpty(), "iteration %d", i)
				for _, p := range result.Trajectory.Points {
					Expect(p.Readiness).To(And(
						BeNumerically(">=", 0), BeNumerically("<=", 100)), "iteration %d", i)
				}
			}
		})
	})

	Context("with several goals", func() {
		It("should classify and score each goal in date order", func() {
			req := baseRequest()
			req.Goals = []core.Goal{
				ctlGoal("late", planStart.AddDate(0, 0, 84), 9, 75),
				ctlGoal("early", planStart.AddDate(0, 0, 28), 4, 60),
			}

			result, err := Solve(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.GoalResults).To(HaveLen(2))
			Expect(result.GoalResults[0].GoalID).To(Equal("early"))
			Expect(result.GoalResults[1].GoalID).To(Equal("late"))
			Expect(result.GoalScores[0].GoalID).To(Equal("early"))
		})

		It("should attribute each candidate to the goal dominating its evaluation", func() {
			calib := config.DefaultCalibration()
			goals := []core.Goal{
				ctlGoal("minor", planStart.AddDate(0, 0, 28), 2, 60),
				ctlGoal("major", planStart.AddDate(0, 0, 84), 9, 75),
			}
			scores := []scoring.GoalScore{
				{GoalID: "minor", Score: 0.9},
				{GoalID: "major", Score: 0.4},
			}
			date, id := dominantGoal(goals, scores, calib)
			Expect(id).To(Equal("major"))
			Expect(date).To(Equal(goals[1].Date))

			// Equal weighted contributions resolve to the earlier date, then
			// the smaller ID.
			even := []core.Goal{
				ctlGoal("b", planStart.AddDate(0, 0, 28), 5, 60),
				ctlGoal("a", planStart.AddDate(0, 0, 28), 5, 60),
			}
			evenScores := []scoring.GoalScore{
				{GoalID: "a", Score: 0.5},
				{GoalID: "b", Score: 0.5},
			}
			_, id = dominantGoal(even, evenScores, calib)
			Expect(id).To(Equal("a"))
		})

		It("should favor the higher-priority goal when goals conflict", func() {
			build := func(buildPriority, restPriority float64) float64 {
				req := baseRequest()
				req.BoundsOverride = config.SolveBounds{HorizonWeeks: 8}
				req.Goals = []core.Goal{
					ctlGoal("build", planStart.AddDate(0, 0, 56), buildPriority, 80),
					{
						ID: "rest", Date: planStart.AddDate(0, 0, 56), Priority: restPriority,
						Targets: []core.Target{
							{ID: "cap", Metric: core.MetricWeeklyLoad, Direction: core.AtMost, Value: 250},
						},
					},
				}
				result, err := Solve(ctx, req)
				Expect(err).NotTo(HaveOccurred())
				last, _ := result.Trajectory.Last()
				return last.State.CTL
			}

			buildFirst := build(10, 1)
			restFirst := build(1, 10)
			Expect(buildFirst).To(BeNumerically(">", restFirst))
		})
	})
})
