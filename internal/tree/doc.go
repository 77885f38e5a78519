// Package tree models the scanned source hierarchy that drives an analysis run.
//
// Nodes carry their depth and root-relative path, which is the only identity
// that survives across runs; checkpoint reconciliation keys everything on it.
// The package also renders the human-readable project structure used in the
// reading guide and the scan command.
package tree
