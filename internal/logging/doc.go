// Package logging assembles structured slog loggers and formatting helpers used
// across pairmux.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context helpers so merge code can tag log lines with the run ID
// and the episode being processed. A no-op logger is provided for tests and
// library callers that do not care about output.
package logging
