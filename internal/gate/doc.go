// Package gate bounds the number of simultaneous model calls in a run.
//
// One Gate is built per analysis and handed to every component that talks to
// the model, so the configured ceiling holds across the worker pool, the
// directory fan-out and the final-document stages alike.
package gate
