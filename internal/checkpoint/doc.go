// Package checkpoint persists the progress of an analysis run so an
// interrupted run can resume where it stopped.
//
// The store keeps completed, failed and API-bearing node keys plus the
// stage-1 extraction caches in a single JSON file inside the docs root. Every
// mutation is flushed immediately. Completion is never trusted on its own:
// IsCompleted also requires the node's document to exist on disk, which makes
// the checkpoint self-healing when documents are deleted.
//
// Lock guards a docs root against concurrent runs using an flock-style lock
// file.
package checkpoint
