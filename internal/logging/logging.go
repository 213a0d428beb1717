// Package logging provides the shared logr-based logger used across the
// formcast engine and CLI.
//
// Library packages take a logr.Logger (or derive one from a context) and
// never construct their own backend; the CLI installs a zap backend once at
// startup. Verbosity follows the usual logr convention: level 0 is always
// on, DEBUG and TRACE are enabled with increasing verbosity.
package logging

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels for logger.V(...).
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// NewLogger returns a zap-backed logr.Logger. Verbosity selects the highest
// V level that will be emitted.
func NewLogger(verbosity int) logr.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	z, err := cfg.Build()
	if err != nil {
		// Production config with a static level cannot fail to build.
		panic(err)
	}
	return zapr.NewLogger(z)
}

// NewTestLogger returns a development-config logger with TRACE verbosity,
// suitable for test suites.
func NewTestLogger() logr.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-TRACE))
	z, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return zapr.NewLogger(z)
}

// IntoContext stores the logger in the context.
func IntoContext(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

// FromContext retrieves the logger stored by IntoContext, falling back to a
// discarding logger so library code can log unconditionally.
func FromContext(ctx context.Context) logr.Logger {
	if logger, err := logr.FromContext(ctx); err == nil {
		return logger
	}
	return logr.Discard()
}
