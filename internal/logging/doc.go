// Package logging assembles structured slog loggers and formatting helpers used
// across scribe.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so provider and runner code can
// tag log lines with run IDs, provider names, and vendor request IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Logs go to stderr by default so stdout carries only transcripts.
package logging
