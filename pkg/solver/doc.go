// Package solver implements the bounded deterministic search at the heart
// of the formcast optimizer.
//
// At each weekly decision step the solver:
//
//  1. Builds a deterministic candidate lattice: evenly spaced weekly-load
//     values across the admissible interval, guaranteed to include the
//     point nearest the previous action, deduplicated after rounding to a
//     fixed precision.
//  2. Scores every candidate through a caller-supplied evaluation function.
//     Non-finite scores are demoted to -Inf, never propagated or treated as
//     a crash.
//  3. Ranks candidates with a fixed total-order tie-break chain and selects
//     the top one.
//
// The tie-break chain is what makes the solver deterministic under
// floating-point score ties, and its order is part of the public contract:
// objective score (descending), then absolute delta from the previous
// action (ascending), then associated goal date (earliest), then goal ID
// (lexicographic), then candidate value (ascending).
//
// The solver is designed to be:
//   - Deterministic: same inputs produce the same selection, always
//   - Bounded: work is proportional to the candidate count, never the input
//   - Observable: every generated candidate is returned for diagnostics
package solver
