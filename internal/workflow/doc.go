// Package workflow drives one documentation run over a source tree.
//
// The Processor walks the tree level by level from the deepest depth to the
// root. Within a level, files run first through the worker queue and then
// directories run concurrently; every model call on either path passes the
// run's single gate, so max_concurrent is a process-wide bound. A level with
// any failed node stops the run after the checkpoint is saved, and the next
// run resumes from the first incomplete level.
//
// After the root is summarized the Processor writes the project documents:
// README, reading guide, API reference and API usage guide. The API documents
// use a two-stage strategy. Stage one extracts interface details per
// API-bearing file and caches them in the checkpoint. Stage two aggregates the
// cache, while the interface overview table and, for large interface sets,
// the usage sections are assembled programmatically so no interface can be
// dropped by the model. A final consistency check re-parses both documents
// and logs any difference in interface counts.
//
// Analyzer wires scanner, checkpoint, incremental change detection, document
// generator, gate, queue and Processor together for a single run and holds a
// lock on the docs root while it works.
package workflow
