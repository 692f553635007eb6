// Package cli implements the stackload command-line interface.
//
// # Commands
//
//   - assemble: Resolve a program and list its packages
//   - provision: Download an archive and prepare its program descriptor
//   - graph: Render the package graph of a program as DOT or SVG
//   - cache: Inspect and clear downloaded archives
//   - serve: Expose assembly over HTTP
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging to stderr.
// Results go to stdout so they can be piped.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs e.g. "Assembled 12 packages (1.234s)".
func (p *progress) done(format string, args ...any) {
	args = append(args, time.Since(p.start).Round(time.Millisecond))
	p.logger.Infof(format+" (%s)", args...)
}
