// Package bridge implements the handle protocol between a compiler frontend
// and the borrow-check fact solver.
//
// A frontend opens one handle per analysis unit (one function body), records
// facts through it while walking the body, asks for the analysis once, and
// closes the handle:
//
//	h := b.Open()
//	b.RecordUse(h, atom.VariableOf(5), atom.PointOf(1))
//	b.RecordDefinition(h, atom.VariableOf(5), atom.PointOf(0))
//	out, err := b.Compute(ctx, h)
//	...
//	b.Close(h)
//
// Handles are opaque (index, generation) pairs into an arena owned by the
// Bridge. Closing a handle bumps its slot's generation, so a stale copy of
// the handle is rejected with an INVALID_HANDLE ContractError instead of
// touching a reused slot.
//
// Slot lifecycle:
//
//	Free --Open--> Accumulating --Compute--> Computed --Close--> Free
//
// Record calls are accepted only while Accumulating; once a unit is Computed
// its facts are frozen and Record calls fail with FROZEN. Compute on a
// Computed unit returns the retained Output without re-running the engine.
//
// Thread-safety: a Bridge is safe for concurrent use. Operations on distinct
// handles proceed in parallel. Overlapping operations on the same handle are
// detected and the later one fails with CONCURRENT_USE.
package bridge
