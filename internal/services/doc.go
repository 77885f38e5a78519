// Package services defines shared utilities consumed by the analysis pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, node paths, tree depth, and stage
//     names so log lines can be correlated across concurrent workers.
//   - Structured error markers plus the Wrap helper that tag failures so the
//     retry layer can tell permanent problems from transient ones.
//
// The llm subpackage holds the chat-completion client and the summarizer
// service built on top of it.
package services
