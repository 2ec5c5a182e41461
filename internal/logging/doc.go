// Package logging assembles structured slog loggers used across parley.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing (including rotated log files), and exposes context-aware helpers
// so pipeline code tags log lines with recording IDs, chunk indexes, stages,
// and correlation IDs. A no-op logger is provided for tests.
package logging
