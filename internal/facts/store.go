package facts

import (
	"fmt"
	"slices"

	"github.com/roach88/nllfacts/internal/atom"
)

// Store accumulates the facts of one analysis unit.
//
// The zero value is an empty store ready for use. A Store is not safe for
// concurrent use; the bridge serializes access per handle.
type Store struct {
	LoanIssuedAt           []LoanIssued
	UniversalRegion        []atom.Origin
	CFGEdge                []Edge
	LoanKilledAt           []LoanPoint
	SubsetBase             []SubsetBase
	LoanInvalidatedAt      []LoanPoint
	VarUsedAt              []VarPoint
	VarDefinedAt           []VarPoint
	VarDroppedAt           []VarPoint
	UseOfVarDerefsOrigin   []VarOrigin
	DropOfVarDerefsOrigin  []VarOrigin
	ChildPath              []ChildPath
	PathIsVar              []PathVar
	PathAssignedAtBase     []PathPoint
	PathMovedAtBase        []PathPoint
	PathAccessedAtBase     []PathPoint
	KnownPlaceholderSubset []OriginPair
	Placeholder            []Placeholder
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// AddVarUsedAt appends a var_used_at tuple.
func (s *Store) AddVarUsedAt(v atom.Variable, p atom.Point) {
	s.VarUsedAt = append(s.VarUsedAt, VarPoint{Var: v, Point: p})
}

// AddVarDefinedAt appends a var_defined_at tuple.
func (s *Store) AddVarDefinedAt(v atom.Variable, p atom.Point) {
	s.VarDefinedAt = append(s.VarDefinedAt, VarPoint{Var: v, Point: p})
}

// AddVarDroppedAt appends a var_dropped_at tuple.
func (s *Store) AddVarDroppedAt(v atom.Variable, p atom.Point) {
	s.VarDroppedAt = append(s.VarDroppedAt, VarPoint{Var: v, Point: p})
}

// AddLoanIssuedAt appends a loan_issued_at tuple.
func (s *Store) AddLoanIssuedAt(o atom.Origin, l atom.Loan, p atom.Point) {
	s.LoanIssuedAt = append(s.LoanIssuedAt, LoanIssued{Origin: o, Loan: l, Point: p})
}

// AddUniversalRegion appends a universal_region tuple.
func (s *Store) AddUniversalRegion(o atom.Origin) {
	s.UniversalRegion = append(s.UniversalRegion, o)
}

// AddCFGEdge appends a cfg_edge tuple.
func (s *Store) AddCFGEdge(from, to atom.Point) {
	s.CFGEdge = append(s.CFGEdge, Edge{From: from, To: to})
}

// AddLoanKilledAt appends a loan_killed_at tuple.
func (s *Store) AddLoanKilledAt(l atom.Loan, p atom.Point) {
	s.LoanKilledAt = append(s.LoanKilledAt, LoanPoint{Loan: l, Point: p})
}

// AddSubsetBase appends a subset_base tuple.
func (s *Store) AddSubsetBase(sub, sup atom.Origin, p atom.Point) {
	s.SubsetBase = append(s.SubsetBase, SubsetBase{Sub: sub, Sup: sup, Point: p})
}

// AddLoanInvalidatedAt appends a loan_invalidated_at tuple.
func (s *Store) AddLoanInvalidatedAt(l atom.Loan, p atom.Point) {
	s.LoanInvalidatedAt = append(s.LoanInvalidatedAt, LoanPoint{Loan: l, Point: p})
}

// AddUseOfVarDerefsOrigin appends a use_of_var_derefs_origin tuple.
func (s *Store) AddUseOfVarDerefsOrigin(v atom.Variable, o atom.Origin) {
	s.UseOfVarDerefsOrigin = append(s.UseOfVarDerefsOrigin, VarOrigin{Var: v, Origin: o})
}

// AddDropOfVarDerefsOrigin appends a drop_of_var_derefs_origin tuple.
func (s *Store) AddDropOfVarDerefsOrigin(v atom.Variable, o atom.Origin) {
	s.DropOfVarDerefsOrigin = append(s.DropOfVarDerefsOrigin, VarOrigin{Var: v, Origin: o})
}

// AddChildPath appends a child_path tuple.
func (s *Store) AddChildPath(child, parent atom.Path) {
	s.ChildPath = append(s.ChildPath, ChildPath{Child: child, Parent: parent})
}

// AddPathIsVar appends a path_is_var tuple.
func (s *Store) AddPathIsVar(p atom.Path, v atom.Variable) {
	s.PathIsVar = append(s.PathIsVar, PathVar{Path: p, Var: v})
}

// AddPathAssignedAtBase appends a path_assigned_at_base tuple.
func (s *Store) AddPathAssignedAtBase(path atom.Path, p atom.Point) {
	s.PathAssignedAtBase = append(s.PathAssignedAtBase, PathPoint{Path: path, Point: p})
}

// AddPathMovedAtBase appends a path_moved_at_base tuple.
func (s *Store) AddPathMovedAtBase(path atom.Path, p atom.Point) {
	s.PathMovedAtBase = append(s.PathMovedAtBase, PathPoint{Path: path, Point: p})
}

// AddPathAccessedAtBase appends a path_accessed_at_base tuple.
func (s *Store) AddPathAccessedAtBase(path atom.Path, p atom.Point) {
	s.PathAccessedAtBase = append(s.PathAccessedAtBase, PathPoint{Path: path, Point: p})
}

// AddKnownPlaceholderSubset appends a known_placeholder_subset tuple.
func (s *Store) AddKnownPlaceholderSubset(sub, sup atom.Origin) {
	s.KnownPlaceholderSubset = append(s.KnownPlaceholderSubset, OriginPair{Sub: sub, Sup: sup})
}

// AddPlaceholder appends a placeholder tuple.
func (s *Store) AddPlaceholder(o atom.Origin, l atom.Loan) {
	s.Placeholder = append(s.Placeholder, Placeholder{Origin: o, Loan: l})
}

// Clone returns a deep copy of s.
func (s *Store) Clone() *Store {
	return &Store{
		LoanIssuedAt:           slices.Clone(s.LoanIssuedAt),
		UniversalRegion:        slices.Clone(s.UniversalRegion),
		CFGEdge:                slices.Clone(s.CFGEdge),
		LoanKilledAt:           slices.Clone(s.LoanKilledAt),
		SubsetBase:             slices.Clone(s.SubsetBase),
		LoanInvalidatedAt:      slices.Clone(s.LoanInvalidatedAt),
		VarUsedAt:              slices.Clone(s.VarUsedAt),
		VarDefinedAt:           slices.Clone(s.VarDefinedAt),
		VarDroppedAt:           slices.Clone(s.VarDroppedAt),
		UseOfVarDerefsOrigin:   slices.Clone(s.UseOfVarDerefsOrigin),
		DropOfVarDerefsOrigin:  slices.Clone(s.DropOfVarDerefsOrigin),
		ChildPath:              slices.Clone(s.ChildPath),
		PathIsVar:              slices.Clone(s.PathIsVar),
		PathAssignedAtBase:     slices.Clone(s.PathAssignedAtBase),
		PathMovedAtBase:        slices.Clone(s.PathMovedAtBase),
		PathAccessedAtBase:     slices.Clone(s.PathAccessedAtBase),
		KnownPlaceholderSubset: slices.Clone(s.KnownPlaceholderSubset),
		Placeholder:            slices.Clone(s.Placeholder),
	}
}

// Len returns the total number of tuples across all relations.
func (s *Store) Len() int {
	n := 0
	for _, r := range Relations() {
		n += s.count(r)
	}
	return n
}

// Counts returns the tuple count of every non-empty relation, keyed by name.
func (s *Store) Counts() map[string]int {
	counts := make(map[string]int)
	for _, r := range Relations() {
		if n := s.count(r); n > 0 {
			counts[r.Name()] = n
		}
	}
	return counts
}

func (s *Store) count(r Relation) int {
	switch r {
	case LoanIssuedAt:
		return len(s.LoanIssuedAt)
	case UniversalRegion:
		return len(s.UniversalRegion)
	case CFGEdge:
		return len(s.CFGEdge)
	case LoanKilledAt:
		return len(s.LoanKilledAt)
	case SubsetBaseRel:
		return len(s.SubsetBase)
	case LoanInvalidatedAt:
		return len(s.LoanInvalidatedAt)
	case VarUsedAt:
		return len(s.VarUsedAt)
	case VarDefinedAt:
		return len(s.VarDefinedAt)
	case VarDroppedAt:
		return len(s.VarDroppedAt)
	case UseOfVarDerefsOrigin:
		return len(s.UseOfVarDerefsOrigin)
	case DropOfVarDerefsOrigin:
		return len(s.DropOfVarDerefsOrigin)
	case ChildPathRel:
		return len(s.ChildPath)
	case PathIsVar:
		return len(s.PathIsVar)
	case PathAssignedAtBase:
		return len(s.PathAssignedAtBase)
	case PathMovedAtBase:
		return len(s.PathMovedAtBase)
	case PathAccessedAtBase:
		return len(s.PathAccessedAtBase)
	case KnownPlaceholderSubset:
		return len(s.KnownPlaceholderSubset)
	case PlaceholderRel:
		return len(s.Placeholder)
	}
	return 0
}

// Rows returns the tuples of r as raw atom indices, in insertion order.
// Each row has exactly r.Arity() elements.
func (s *Store) Rows(r Relation) [][]uint64 {
	rows := make([][]uint64, 0, s.count(r))
	switch r {
	case LoanIssuedAt:
		for _, t := range s.LoanIssuedAt {
			rows = append(rows, []uint64{t.Origin.Index(), t.Loan.Index(), t.Point.Index()})
		}
	case UniversalRegion:
		for _, o := range s.UniversalRegion {
			rows = append(rows, []uint64{o.Index()})
		}
	case CFGEdge:
		for _, t := range s.CFGEdge {
			rows = append(rows, []uint64{t.From.Index(), t.To.Index()})
		}
	case LoanKilledAt:
		rows = appendLoanPoints(rows, s.LoanKilledAt)
	case SubsetBaseRel:
		for _, t := range s.SubsetBase {
			rows = append(rows, []uint64{t.Sub.Index(), t.Sup.Index(), t.Point.Index()})
		}
	case LoanInvalidatedAt:
		rows = appendLoanPoints(rows, s.LoanInvalidatedAt)
	case VarUsedAt:
		rows = appendVarPoints(rows, s.VarUsedAt)
	case VarDefinedAt:
		rows = appendVarPoints(rows, s.VarDefinedAt)
	case VarDroppedAt:
		rows = appendVarPoints(rows, s.VarDroppedAt)
	case UseOfVarDerefsOrigin:
		rows = appendVarOrigins(rows, s.UseOfVarDerefsOrigin)
	case DropOfVarDerefsOrigin:
		rows = appendVarOrigins(rows, s.DropOfVarDerefsOrigin)
	case ChildPathRel:
		for _, t := range s.ChildPath {
			rows = append(rows, []uint64{t.Child.Index(), t.Parent.Index()})
		}
	case PathIsVar:
		for _, t := range s.PathIsVar {
			rows = append(rows, []uint64{t.Path.Index(), t.Var.Index()})
		}
	case PathAssignedAtBase:
		rows = appendPathPoints(rows, s.PathAssignedAtBase)
	case PathMovedAtBase:
		rows = appendPathPoints(rows, s.PathMovedAtBase)
	case PathAccessedAtBase:
		rows = appendPathPoints(rows, s.PathAccessedAtBase)
	case KnownPlaceholderSubset:
		for _, t := range s.KnownPlaceholderSubset {
			rows = append(rows, []uint64{t.Sub.Index(), t.Sup.Index()})
		}
	case PlaceholderRel:
		for _, t := range s.Placeholder {
			rows = append(rows, []uint64{t.Origin.Index(), t.Loan.Index()})
		}
	}
	return rows
}

// AppendRow appends one tuple of raw atom indices to r.
// Returns an error if the row length does not match the relation's arity.
func (s *Store) AppendRow(r Relation, row []uint64) error {
	if !r.valid() {
		return fmt.Errorf("append row: unknown relation %d", int(r))
	}
	if len(row) != r.Arity() {
		return fmt.Errorf("append row: %s expects %d fields, got %d", r.Name(), r.Arity(), len(row))
	}
	switch r {
	case LoanIssuedAt:
		s.AddLoanIssuedAt(atom.OriginOf(row[0]), atom.LoanOf(row[1]), atom.PointOf(row[2]))
	case UniversalRegion:
		s.AddUniversalRegion(atom.OriginOf(row[0]))
	case CFGEdge:
		s.AddCFGEdge(atom.PointOf(row[0]), atom.PointOf(row[1]))
	case LoanKilledAt:
		s.AddLoanKilledAt(atom.LoanOf(row[0]), atom.PointOf(row[1]))
	case SubsetBaseRel:
		s.AddSubsetBase(atom.OriginOf(row[0]), atom.OriginOf(row[1]), atom.PointOf(row[2]))
	case LoanInvalidatedAt:
		s.AddLoanInvalidatedAt(atom.LoanOf(row[0]), atom.PointOf(row[1]))
	case VarUsedAt:
		s.AddVarUsedAt(atom.VariableOf(row[0]), atom.PointOf(row[1]))
	case VarDefinedAt:
		s.AddVarDefinedAt(atom.VariableOf(row[0]), atom.PointOf(row[1]))
	case VarDroppedAt:
		s.AddVarDroppedAt(atom.VariableOf(row[0]), atom.PointOf(row[1]))
	case UseOfVarDerefsOrigin:
		s.AddUseOfVarDerefsOrigin(atom.VariableOf(row[0]), atom.OriginOf(row[1]))
	case DropOfVarDerefsOrigin:
		s.AddDropOfVarDerefsOrigin(atom.VariableOf(row[0]), atom.OriginOf(row[1]))
	case ChildPathRel:
		s.AddChildPath(atom.PathOf(row[0]), atom.PathOf(row[1]))
	case PathIsVar:
		s.AddPathIsVar(atom.PathOf(row[0]), atom.VariableOf(row[1]))
	case PathAssignedAtBase:
		s.AddPathAssignedAtBase(atom.PathOf(row[0]), atom.PointOf(row[1]))
	case PathMovedAtBase:
		s.AddPathMovedAtBase(atom.PathOf(row[0]), atom.PointOf(row[1]))
	case PathAccessedAtBase:
		s.AddPathAccessedAtBase(atom.PathOf(row[0]), atom.PointOf(row[1]))
	case KnownPlaceholderSubset:
		s.AddKnownPlaceholderSubset(atom.OriginOf(row[0]), atom.OriginOf(row[1]))
	case PlaceholderRel:
		s.AddPlaceholder(atom.OriginOf(row[0]), atom.LoanOf(row[1]))
	}
	return nil
}

func appendVarPoints(rows [][]uint64, ts []VarPoint) [][]uint64 {
	for _, t := range ts {
		rows = append(rows, []uint64{t.Var.Index(), t.Point.Index()})
	}
	return rows
}

func appendLoanPoints(rows [][]uint64, ts []LoanPoint) [][]uint64 {
	for _, t := range ts {
		rows = append(rows, []uint64{t.Loan.Index(), t.Point.Index()})
	}
	return rows
}

func appendPathPoints(rows [][]uint64, ts []PathPoint) [][]uint64 {
	for _, t := range ts {
		rows = append(rows, []uint64{t.Path.Index(), t.Point.Index()})
	}
	return rows
}

func appendVarOrigins(rows [][]uint64, ts []VarOrigin) [][]uint64 {
	for _, t := range ts {
		rows = append(rows, []uint64{t.Var.Index(), t.Origin.Index()})
	}
	return rows
}
