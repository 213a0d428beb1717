// Package core provides the fundamental data structures of the formcast
// prediction engine.
//
// The package contains the domain models shared by every stage of the
// pipeline:
//
//   - LatentState: the per-day athlete state (CTL, ATL, durability,
//     readiness latent, uncertainty) with derived TSB/SLB metrics
//   - Estimate / StateSnapshot: the persisted inference result handed back
//     to the caller after every run and accepted as the prior of the next
//   - Trajectory / TrajectoryPoint: a projected daily future
//   - Goal / Target: what the athlete is training for, with priorities and
//     target weights
//   - WeeklyAction: one committed weekly-load decision
//
// All types are plain values. The engine never mutates an input in place;
// each stage consumes values and produces new ones, which keeps repeated
// runs byte-identical for identical inputs.
//
// The readiness score is the one piece of behavior that lives here, because
// every stage needs the identical definition: a [0,100] composite of
// fitness position, form, durability, and evidence confidence, blended by
// calibration weights that must sum to 1.
package core
