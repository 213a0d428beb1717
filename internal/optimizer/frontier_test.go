package optimizer

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strideworks/formcast/pkg/config"
)

// The reachable-state frontier must move monotonically with the caps: a
// tighter cap can only shrink what the plan reaches, a wider one can only
// extend it, and nothing outside the caps and rails limits the plan.
var _ = Describe("Capability frontier", func() {
	var ctx context.Context

	maxAction := func(result *PlanResult) float64 {
		m := 0.0
		for _, a := range result.Actions {
			if a.WeeklyLoad > m {
				m = a.WeeklyLoad
			}
		}
		return m
	}

	finalCTL := func(result *PlanResult) float64 {
		last, ok := result.Trajectory.Last()
		Expect(ok).To(BeTrue())
		return last.State.CTL
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should reach less under binding tight caps", func() {
		defaults, err := Solve(ctx, baseRequest())
		Expect(err).NotTo(HaveOccurred())

		tightReq := baseRequest()
		tightReq.CapsOverride = config.Caps{
			MaxWeeklyLoad:        400,
			MaxCTLRampPerWeek:    2,
			MaxDailyLoad:         100,
			MaxDailySessionHours: 2,
		}
		tight, err := Solve(ctx, tightReq)
		Expect(err).NotTo(HaveOccurred())

		// Capped at the historical 400-a-week, fitness can only hold, not
		// build; the default caps leave room to ramp toward the goal.
		Expect(finalCTL(tight)).To(BeNumerically("<", 62))
		Expect(finalCTL(defaults)).To(BeNumerically(">", finalCTL(tight)+5))
		Expect(maxAction(defaults)).To(BeNumerically(">", maxAction(tight)))
		Expect(maxAction(tight)).To(BeNumerically("<=", 400))
	})

	It("should hold the step bounds monotone in the caps", func() {
		lowReq := baseRequest()
		lowReq.CapsOverride = config.Caps{MaxCTLRampPerWeek: 2}
		lowRun, err := Solve(ctx, lowReq)
		Expect(err).NotTo(HaveOccurred())

		highReq := baseRequest()
		highReq.CapsOverride = config.Caps{MaxCTLRampPerWeek: 8}
		highRun, err := Solve(ctx, highReq)
		Expect(err).NotTo(HaveOccurred())

		// Same starting state, wider ramp cap: the first decision step must
		// offer strictly more headroom.
		low, high := lowRun.Diagnostics.Steps, highRun.Diagnostics.Steps
		Expect(high[0].MaxValue).To(BeNumerically(">", low[0].MaxValue))
	})
})
