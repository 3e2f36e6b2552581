package facts

import "github.com/roach88/nllfacts/internal/atom"

// VarPoint is a (Variable, Point) tuple: var_used_at, var_defined_at, var_dropped_at.
type VarPoint struct {
	Var   atom.Variable `json:"var"`
	Point atom.Point    `json:"point"`
}

// LoanPoint is a (Loan, Point) tuple: loan_killed_at, loan_invalidated_at.
type LoanPoint struct {
	Loan  atom.Loan  `json:"loan"`
	Point atom.Point `json:"point"`
}

// PathPoint is a (Path, Point) tuple: path_{assigned,moved,accessed}_at_base.
type PathPoint struct {
	Path  atom.Path  `json:"path"`
	Point atom.Point `json:"point"`
}

// VarOrigin is a (Variable, Origin) tuple: {use,drop}_of_var_derefs_origin.
type VarOrigin struct {
	Var    atom.Variable `json:"var"`
	Origin atom.Origin   `json:"origin"`
}

// LoanIssued is a loan_issued_at tuple.
type LoanIssued struct {
	Origin atom.Origin `json:"origin"`
	Loan   atom.Loan   `json:"loan"`
	Point  atom.Point  `json:"point"`
}

// SubsetBase is a subset_base tuple: Sub is a subset of Sup at Point.
type SubsetBase struct {
	Sub   atom.Origin `json:"sub"`
	Sup   atom.Origin `json:"sup"`
	Point atom.Point  `json:"point"`
}

// OriginPair is a known_placeholder_subset tuple.
type OriginPair struct {
	Sub atom.Origin `json:"sub"`
	Sup atom.Origin `json:"sup"`
}

// Edge is a cfg_edge tuple.
type Edge struct {
	From atom.Point `json:"from"`
	To   atom.Point `json:"to"`
}

// ChildPath is a child_path tuple.
type ChildPath struct {
	Child  atom.Path `json:"child"`
	Parent atom.Path `json:"parent"`
}

// PathVar is a path_is_var tuple.
type PathVar struct {
	Path atom.Path     `json:"path"`
	Var  atom.Variable `json:"var"`
}

// Placeholder is a placeholder tuple: a universal origin and its placeholder loan.
type Placeholder struct {
	Origin atom.Origin `json:"origin"`
	Loan   atom.Loan   `json:"loan"`
}
