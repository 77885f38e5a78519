// Package incremental detects source changes between analysis runs.
//
// Fingerprints (size, modification time, SHA-256) of every analyzed file are
// kept in a SQLite database inside the docs root. Detect compares the current
// tree against them and Plan turns the changes into the set of documents that
// must be regenerated: the changed files themselves, every ancestor directory
// summary, and the project-level documents.
package incremental
