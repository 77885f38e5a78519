// Package apidoc parses and assembles the API documentation artifacts.
//
// Everything here is a pure function over text. The analysis pipeline relies
// on these helpers to:
//   - read the API marker block a model appends to each file analysis
//   - keep a compact per-file endpoint digest in the checkpoint
//   - build the interface overview table without asking the model
//   - splice the model's module narrative behind that table
//   - assemble large usage documents section by section
//   - reconcile the inventory and usage documents after generation
//
// Parsers never panic on model output; they report an explicit outcome
// (for example MarkerMalformed) and let callers decide how loud to be.
package apidoc
