// Package llm talks to the language model that writes every document of an
// analysis run.
//
// # Wire Formats
//
// Client speaks two formats: OpenAI-compatible chat completions and the
// Anthropic Messages API. Format "auto" picks Anthropic for model names that
// contain "claude" and OpenAI for everything else. Endpoints are derived from
// base_url: a base ending in /v1 gets the resource path appended, a base that
// already names the resource is used as-is, and anything else gets /v1 plus
// the resource. Doubled and trailing slashes are repaired first.
//
// # Relays
//
// simulate_browser adds desktop-browser request headers and verify_ssl=false
// accepts self-signed certificates. requests_per_minute throttles requests
// with a token-bucket limiter shared by all workers.
//
// # Errors
//
// A Client call is a single attempt. Non-2xx responses become *StatusError,
// which exposes RetryAfter and unwraps to a services marker: 401/403 and 404
// are permanent, 408/429 and 5xx are transient, other 4xx are validation
// failures. Empty completions unwrap to retry.ErrEmptyOutput.
//
// # Service
//
// Service owns the prompts and token budgets and runs every call through a
// retry.Handler. It is the production summarizer used by the workflow package.
package llm
