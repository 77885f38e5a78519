// Package logging assembles the structured slog loggers used by the analyzer
// and its CLI.
//
// It owns the console and JSON handlers, level and output plumbing, log
// retention, and context helpers that tag lines with the run ID, node path,
// tree depth, and pipeline stage. Console output goes to stderr so command
// results printed on stdout stay machine-readable.
package logging
