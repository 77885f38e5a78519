// Package retry runs fallible operations with exponential backoff and jitter.
//
// A Handler owns one Policy and is shared by every model-calling site in a
// run. Empty model output counts as a transient failure, errors that expose
// RetryAfter override the computed delay, and exhaustion is reported as an
// ExhaustedError carrying the operation name and attempt count.
package retry
