// Package depgraph extracts file-level dependencies from source trees.
//
// Imports are found with per-language regular expressions (Python,
// JavaScript/TypeScript, Java, Go) rather than full parsers, so results are
// approximate. Targets that name a file or directory of the scanned tree are
// resolved to that node's key and marked local; cycle detection only follows
// local edges.
package depgraph
