// Package preflight provides readiness checks for the paths and services an
// analysis run depends on.
//
// These checks run in two contexts:
//   - "codesummary analyze" calls RunAll before scanning so a run with an
//     unwritable docs directory or missing credentials fails in seconds
//     instead of after the first level of model calls.
//   - "codesummary config validate" and "codesummary status" use individual
//     checks (CheckLLM, ProbeDocs) to display readiness.
//
// The live LLM ping is opt-in because it spends a request.
package preflight
