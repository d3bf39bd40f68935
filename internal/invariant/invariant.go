// Package invariant provides the assertion helper used to abort on
// simulation-invariant violations (spec.md §7: "an inconsistency... is an
// assertion failure — the simulation is deterministic and such conditions
// indicate a bug, not a recoverable runtime error"). Generalized from the
// teacher's Must0/Must1 panic-on-Go-error helpers to panic-on-broken-
// invariant.
package invariant

import "fmt"

// Check panics with a formatted diagnostic if cond is false.
func Check(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("desnet: invariant violated: "+format, args...))
	}
}
