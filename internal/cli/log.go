// Package cli implements the vizgo command-line interface.
//
// The commands render DOT sources with the Graphviz layout engines, run the
// HTTP render service and manage the local render cache:
//   - render: render a file or stdin to any Graphviz output format
//   - serve: run the HTTP render service on a worker pool
//   - engines: list the layout engines
//   - cache: clear or locate the file cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// carried on the CLI struct and passed through context.Context, so helpers
// deep in a command log with the same level and format.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is meant for one goroutine; a render and its output write share one.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that starts counting now.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since the tracker was created,
// rounded to the millisecond, e.g. "Rendered graph.svg (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// ctxKey is the type for context keys used in this package.
type ctxKey int

// loggerKey is the context key for the command logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
// loadConfig attaches the CLI logger before any subcommand runs.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// Without one, as in tests that call a run function directly, it returns
// log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
