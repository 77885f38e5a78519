// Package textutil holds small string helpers shared by document rendering
// and the CLI: display-name title casing, rune-safe truncation, and a generic
// conditional.
package textutil
