// Package assert guards internal invariants of the engine. A failed assertion means the engine's
// own bookkeeping is broken, not that a caller misused an API, so it panics instead of returning
// an error.
package assert

import "fmt"

// That panics with the formatted message when cond is false.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf("invariant violated: "+format, args...))
	}
}
