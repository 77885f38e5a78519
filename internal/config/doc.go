// Package config loads, normalizes, and validates codesummary configuration.
//
// It supplies defaults, reads TOML files, loads a working-directory .env file,
// resolves ${NAME} references and provider key fallbacks such as
// OPENAI_API_KEY, and expands user paths. Callers obtain every knob through
// Config so the CLI, scanner, and pipeline agree on limits and document names.
package config
