// Package logging is the orchestration server's process-wide logger: a
// thin wrapper over the stdlib log.Logger, package-level so every
// component can log without threading a logger through every constructor.
package logging

import (
	"log"
	"os"
)

var (
	disabled = false
	logger   = log.New(os.Stderr, "", log.LstdFlags)
)

// Disable silences all logging, for tests that assert on stdout/stderr.
func Disable() {
	disabled = true
}

// Enable turns logging back on.
func Enable() {
	disabled = false
}

// Info logs a non-propagating informational message.
func Info(v ...any) {
	if !disabled {
		logger.Println(v...)
	}
}

// Infof logs a formatted informational message.
func Infof(format string, v ...any) {
	if !disabled {
		logger.Printf(format, v...)
	}
}

// Warn logs a degraded-but-continuing condition, e.g. a best-effort
// secondary write that failed (spec §9: best-effort steps are logged, not
// surfaced as operation failures).
func Warn(v ...any) {
	if !disabled {
		logger.Println(v...)
	}
}

// Warnf logs a formatted warning message.
func Warnf(format string, v ...any) {
	if !disabled {
		logger.Printf(format, v...)
	}
}

// Error logs a failure that was swallowed rather than returned, e.g.
// cleanup-on-terminal-transition errors (spec §4.G: cleanup failures never
// block a status transition).
func Error(v ...any) {
	if !disabled {
		logger.Println(v...)
	}
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...any) {
	if !disabled {
		logger.Printf(format, v...)
	}
}
