// Package main hosts the codesummary CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration once, builds a logger
// from it and hands the real work to internal packages: workflow for
// analysis runs, scanner for tree previews, checkpoint and preflight for
// status, and depgraph for dependency reports.
//
// Keep this package lean: new behaviour belongs in an internal package first
// and is only surfaced here through a command or flag.
package main
