// Package scanner walks a source directory and builds the analysis tree.
//
// Hidden entries, ignore-pattern matches, unsupported extensions and files
// above the size limit are left out; directories that end up without any
// analyzable file are pruned before the tree is returned. Ignore patterns use
// shell-style globbing in which `*` also crosses path separators, and a
// trailing `/**` additionally matches the directory by name at any depth.
package scanner
