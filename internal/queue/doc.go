// Package queue runs a batch of per-file analysis tasks on a bounded worker
// pool.
//
// A Queue is level-scoped: the scheduler submits one depth level's files,
// calls ProcessAll, and Resets before the next level. Every worker acquires
// the shared gate before executing a task, so the pool size bounds local
// parallelism while the gate bounds model calls process-wide.
//
// Completion callbacks run on the worker goroutine after the gate is
// released. Errors and panics from callbacks are logged and swallowed so one
// bad callback cannot stop the batch.
package queue
