package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codesummary/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects the optional checks RunAll performs.
type Options struct {
	// DocsRoot is checked for write access when set.
	DocsRoot string
	// Ping issues a live completion against the configured endpoint.
	Ping bool
}

// ErrNotReady is wrapped by Err when at least one check failed.
var ErrNotReady = errors.New("preflight checks failed")

// RunAll executes the applicable preflight checks for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if opts.DocsRoot != "" {
		results = append(results, CheckDocsRoot("Docs directory", opts.DocsRoot))
	}

	settings := cfg.GetLLM()
	configured := CheckLLMSettings("LLM configuration", settings)
	results = append(results, configured)

	// A ping without credentials can only fail with the same message.
	if opts.Ping && configured.Passed {
		results = append(results, CheckLLM(ctx, "LLM endpoint", settings))
	}
	return results
}

// Failures returns the results that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err folds failed results into one error, or nil when every check passed.
func Err(results []Result) error {
	failed := Failures(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, r.Name+": "+r.Detail)
	}
	return fmt.Errorf("%w: %s", ErrNotReady, strings.Join(parts, "; "))
}
