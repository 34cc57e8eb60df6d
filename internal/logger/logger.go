// Package logger prints pipeline progress to stderr. Debug, Info, and
// Section output appears only when the --verbose flag is set; Warn
// always prints because it reports degraded behaviour the user should
// see, like a skipped source or a planner fallback.
package logger

import (
	"fmt"
	"os"
	"sync/atomic"
)

var verbose atomic.Bool

// SetVerbose toggles verbose output.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Section prints a header grouping the messages of one pipeline stage.
func Section(name string) {
	if verbose.Load() {
		fmt.Fprintf(os.Stderr, "\n=== %s ===\n", name)
	}
}

// Debug prints a message when verbose output is enabled.
func Debug(format string, args ...any) {
	if verbose.Load() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// Info prints a message when verbose output is enabled.
func Info(format string, args ...any) {
	if verbose.Load() {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

// Warn prints a warning regardless of the verbose setting.
func Warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[WARN] "+format+"\n", args...)
}
