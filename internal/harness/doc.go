// Package harness runs call-sequence scenarios against a real Bridge.
//
// A scenario is a YAML file naming handles and driving them through the
// handle protocol step by step:
//
//	name: loan-invalidated-while-live
//	description: A loan used after a conflicting write is reported.
//	steps:
//	  - {op: open, handle: f}
//	  - {op: record, handle: f, relation: cfg_edge, tuple: [0, 1]}
//	  - {op: record, handle: f, relation: loan_issued_at, tuple: [1, 0, 0]}
//	  - op: compute
//	    handle: f
//	    expect:
//	      errors: [[0, 1]]
//	  - {op: close, handle: f}
//	  - {op: record, handle: f, relation: var_used_at, tuple: [1, 1], expect_error: INVALID_HANDLE}
//	assertions:
//	  - {type: live_handles, count: 0}
//
// Steps run in order against a fresh Bridge using the Datalog engine, a
// deterministic clock and fixed unit IDs, so the resulting trace is
// byte-identical across runs and can be compared against golden files.
// Every computed unit is also recorded to an in-memory store and replayed
// at the end; a replay mismatch fails the scenario.
//
// A handle name that was never opened resolves to the zero Handle, which
// lets scenarios exercise calls made before open.
package harness
