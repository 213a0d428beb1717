// Package config provides the validated configuration values consumed by
// the formcast engine.
//
// Configuration Types:
//
//   - Calibration: every numeric coefficient governing estimation,
//     projection, scoring, and optimization, as one versioned value object
//   - Caps: the soft, user-adjustable safety caps (bounded by the absolute
//     rails enforced in internal/safety)
//   - Profile / SolveBounds: the closed optimization-profile enumeration
//     and its deterministic bounds table
//
// Ownership model: the caller constructs (or loads) one Calibration and one
// Caps value per run and passes them through every layer unchanged. The
// engine only reads them. Nothing in this package or the engine mutates a
// configuration after validation, and no package-level state carries
// configuration between runs.
//
// Validation happens before any computation: Load and the Validate methods
// reject unknown fields, non-finite numbers, out-of-range values, and
// cross-field violations (composite weights must sum to 1) with errors that
// name the offending field and bound.
package config
