package logger

import corelogger "github.com/microgrid-lab/mgsim/core/logger"

// Logger mirrors the core logger interface so infra callers do not need a
// second import.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods. It backs tests and the
// default wiring before configuration is loaded.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. Output format is selected by
// the APP_ENV environment variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}
