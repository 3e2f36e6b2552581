// Package analysis defines the solver capability the bridge invokes and
// ships a Datalog implementation of it.
//
// The bridge only depends on the Engine interface: it hands over a frozen
// facts.Snapshot together with an Algorithm and Options and receives an
// Output (the Result Set). Loan, subset and move errors found by an engine
// are ordinary data in the Output, never a Go error; an error return means the
// engine itself could not run.
//
// # Datalog Engine
//
// Datalog evaluates embedded rule programs with Mangle
// (github.com/google/mangle). Every call loads the snapshot into a fresh
// in-memory fact store, so a single Datalog value can serve any number of
// goroutines. Rule programs are parsed and analyzed once per algorithm.
//
// Supported algorithms:
//   - Naive: location-sensitive subset propagation to fixpoint.
//   - LocationInsensitive: a cheaper pass that ignores points when
//     propagating loans through subsets; it reports a superset of Naive's
//     loan errors and attributes subset errors to point 0.
//
// Both share the liveness and initialization rules (rules/prelude.mg).
package analysis
