package bridge

import (
	"github.com/roach88/nllfacts/internal/atom"
	"github.com/roach88/nllfacts/internal/facts"
)

// RecordUse records that variable v is used at point p.
//
// Fails with INVALID_HANDLE for a handle that is not open and FROZEN once
// the unit has been computed. The same holds for every Record method.
func (b *Bridge) RecordUse(h Handle, v atom.Variable, p atom.Point) error {
	return b.add("record_use", h, facts.VarUsedAt, func(s *facts.Store) { s.AddVarUsedAt(v, p) })
}

// RecordDefinition records that variable v is assigned at point p.
func (b *Bridge) RecordDefinition(h Handle, v atom.Variable, p atom.Point) error {
	return b.add("record_definition", h, facts.VarDefinedAt, func(s *facts.Store) { s.AddVarDefinedAt(v, p) })
}

// RecordBorrow records that loan l is created at point p and flows into
// origin o (loan_issued_at).
func (b *Bridge) RecordBorrow(h Handle, o atom.Origin, l atom.Loan, p atom.Point) error {
	return b.add("record_borrow", h, facts.LoanIssuedAt, func(s *facts.Store) { s.AddLoanIssuedAt(o, l, p) })
}

// RecordLoanKilled records that loan l stops being tracked at p because
// the borrowed place is overwritten.
func (b *Bridge) RecordLoanKilled(h Handle, l atom.Loan, p atom.Point) error {
	return b.add("record_loan_killed", h, facts.LoanKilledAt, func(s *facts.Store) { s.AddLoanKilledAt(l, p) })
}

// RecordLoanInvalidated records an action at p that conflicts with loan l.
func (b *Bridge) RecordLoanInvalidated(h Handle, l atom.Loan, p atom.Point) error {
	return b.add("record_loan_invalidated", h, facts.LoanInvalidatedAt, func(s *facts.Store) { s.AddLoanInvalidatedAt(l, p) })
}

// RecordSubset records the outlives constraint sub: sup arising at p.
func (b *Bridge) RecordSubset(h Handle, sub, sup atom.Origin, p atom.Point) error {
	return b.add("record_subset", h, facts.SubsetBaseRel, func(s *facts.Store) { s.AddSubsetBase(sub, sup, p) })
}

// RecordCFGEdge records a control-flow edge.
func (b *Bridge) RecordCFGEdge(h Handle, from, to atom.Point) error {
	return b.add("record_cfg_edge", h, facts.CFGEdge, func(s *facts.Store) { s.AddCFGEdge(from, to) })
}

// RecordUniversalRegion marks o as a placeholder origin from the signature.
func (b *Bridge) RecordUniversalRegion(h Handle, o atom.Origin) error {
	return b.add("record_universal_region", h, facts.UniversalRegion, func(s *facts.Store) { s.AddUniversalRegion(o) })
}

// RecordVarDropped records that v is dropped at p.
func (b *Bridge) RecordVarDropped(h Handle, v atom.Variable, p atom.Point) error {
	return b.add("record_var_dropped", h, facts.VarDroppedAt, func(s *facts.Store) { s.AddVarDroppedAt(v, p) })
}

// RecordUseOfVarDerefsOrigin records that using v may dereference data in o.
func (b *Bridge) RecordUseOfVarDerefsOrigin(h Handle, v atom.Variable, o atom.Origin) error {
	return b.add("record_use_of_var_derefs_origin", h, facts.UseOfVarDerefsOrigin, func(s *facts.Store) { s.AddUseOfVarDerefsOrigin(v, o) })
}

// RecordDropOfVarDerefsOrigin records that dropping v may dereference data in o.
func (b *Bridge) RecordDropOfVarDerefsOrigin(h Handle, v atom.Variable, o atom.Origin) error {
	return b.add("record_drop_of_var_derefs_origin", h, facts.DropOfVarDerefsOrigin, func(s *facts.Store) { s.AddDropOfVarDerefsOrigin(v, o) })
}

// RecordChildPath records that child is a field or projection of parent.
func (b *Bridge) RecordChildPath(h Handle, child, parent atom.Path) error {
	return b.add("record_child_path", h, facts.ChildPathRel, func(s *facts.Store) { s.AddChildPath(child, parent) })
}

// RecordPathIsVar records that path is the root path of v.
func (b *Bridge) RecordPathIsVar(h Handle, path atom.Path, v atom.Variable) error {
	return b.add("record_path_is_var", h, facts.PathIsVar, func(s *facts.Store) { s.AddPathIsVar(path, v) })
}

// RecordPathAssigned records that path is initialized at p.
func (b *Bridge) RecordPathAssigned(h Handle, path atom.Path, p atom.Point) error {
	return b.add("record_path_assigned", h, facts.PathAssignedAtBase, func(s *facts.Store) { s.AddPathAssignedAtBase(path, p) })
}

// RecordPathMoved records that path is moved out of at p.
func (b *Bridge) RecordPathMoved(h Handle, path atom.Path, p atom.Point) error {
	return b.add("record_path_moved", h, facts.PathMovedAtBase, func(s *facts.Store) { s.AddPathMovedAtBase(path, p) })
}

// RecordPathAccessed records that path is read or written at p.
func (b *Bridge) RecordPathAccessed(h Handle, path atom.Path, p atom.Point) error {
	return b.add("record_path_accessed", h, facts.PathAccessedAtBase, func(s *facts.Store) { s.AddPathAccessedAtBase(path, p) })
}

// RecordKnownPlaceholderSubset records an outlives relation declared by the
// signature (sub: sup), which the analysis must not report.
func (b *Bridge) RecordKnownPlaceholderSubset(h Handle, sub, sup atom.Origin) error {
	return b.add("record_known_placeholder_subset", h, facts.KnownPlaceholderSubset, func(s *facts.Store) { s.AddKnownPlaceholderSubset(sub, sup) })
}

// RecordPlaceholder records the placeholder loan l standing for origin o.
func (b *Bridge) RecordPlaceholder(h Handle, o atom.Origin, l atom.Loan) error {
	return b.add("record_placeholder", h, facts.PlaceholderRel, func(s *facts.Store) { s.AddPlaceholder(o, l) })
}

// add records one tuple of relation r.
func (b *Bridge) add(op string, h Handle, r facts.Relation, fn func(*facts.Store)) error {
	err := b.record(op, h, func(s *facts.Store) error {
		fn(s)
		return nil
	})
	if err != nil {
		return err
	}
	b.metrics.recorded(r)
	return nil
}
