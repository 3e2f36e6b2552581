// Package facts implements the fact schema and the append-only accumulator
// that feeds the borrow-check solver.
//
// A Store holds one slice per input relation. Tuples are appended in call
// order and never deduplicated or reordered; there is no referential check
// between relations (an atom may appear in var_used_at without ever being
// defined). Global consistency is the solver's problem, not the collector's.
//
// A Snapshot is a deep copy of a Store taken when analysis is requested. The
// solver only ever sees snapshots, so later mutation of the Store (or of the
// copy handed out by Snapshot.Store) can't change a computation in flight.
//
// # Relations
//
// The schema mirrors the solver's input contract:
//
//	loan_issued_at(Origin, Loan, Point)
//	universal_region(Origin)
//	cfg_edge(Point, Point)
//	loan_killed_at(Loan, Point)
//	subset_base(Origin, Origin, Point)
//	loan_invalidated_at(Loan, Point)
//	var_used_at(Variable, Point)
//	var_defined_at(Variable, Point)
//	var_dropped_at(Variable, Point)
//	use_of_var_derefs_origin(Variable, Origin)
//	drop_of_var_derefs_origin(Variable, Origin)
//	child_path(Path, Path)
//	path_is_var(Path, Variable)
//	path_assigned_at_base(Path, Point)
//	path_moved_at_base(Path, Point)
//	path_accessed_at_base(Path, Point)
//	known_placeholder_subset(Origin, Origin)
//	placeholder(Origin, Loan)
//
// # Dump Format
//
// WriteDir and ReadDir use the nll_facts directory layout: one
// <relation>.facts file per relation, one tuple per line, fields separated by
// a tab. Fields are decimal atom indices; quoted fields are accepted on read.
package facts
