// Package optimizer orchestrates the formcast decision pipeline.
//
// The pipeline runs leaves-first:
//
//	Evidence → Estimator → (per week) Solver + Projection + Scoring → Diagnostics
//
// One invocation is a single-threaded, pure computation: it performs no
// I/O, owns no shared state, and its worst-case work is bounded by the
// resolved solve bounds (horizon weeks x candidate count), so run time is
// predictable regardless of input size. Concurrent invocations for
// different athletes are fully independent.
//
// The optimizer is model-predictive-control shaped: at each weekly decision
// step it evaluates a bounded candidate lattice by simulating the remaining
// horizon under each candidate, commits only the first week of the winning
// plan, advances the state through that week, and re-solves. Candidates
// whose trajectories breach an absolute safety rail are discarded with a
// -Inf score, never corrected.
//
// Error semantics follow the engine-wide taxonomy: configuration errors are
// rejected before any computation, rail breaches kill individual candidates
// (and the run only if every candidate dies), cap crowding degrades the
// feasibility classification inside a successful result, and non-finite
// intermediate scores are demoted to -Inf at the solver boundary.
package optimizer
