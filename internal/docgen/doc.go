// Package docgen maps tree nodes to document paths and persists formatted
// analysis documents.
//
// The layout mirrors the source tree: a file X becomes <docs>/X.md and a
// directory D gets <docs>/D/<dir summary name>. Checkpoint reconciliation
// depends on this mapping being reversible, so Layout exposes both
// directions. Reads go through a small LRU cache that every write through
// the Generator invalidates.
package docgen
