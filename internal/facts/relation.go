package facts

// Relation names one input relation of the fact schema.
type Relation int

const (
	LoanIssuedAt Relation = iota
	UniversalRegion
	CFGEdge
	LoanKilledAt
	SubsetBaseRel
	LoanInvalidatedAt
	VarUsedAt
	VarDefinedAt
	VarDroppedAt
	UseOfVarDerefsOrigin
	DropOfVarDerefsOrigin
	ChildPathRel
	PathIsVar
	PathAssignedAtBase
	PathMovedAtBase
	PathAccessedAtBase
	KnownPlaceholderSubset
	PlaceholderRel

	numRelations
)

var relationInfo = [numRelations]struct {
	name  string
	arity int
}{
	LoanIssuedAt:           {"loan_issued_at", 3},
	UniversalRegion:        {"universal_region", 1},
	CFGEdge:                {"cfg_edge", 2},
	LoanKilledAt:           {"loan_killed_at", 2},
	SubsetBaseRel:          {"subset_base", 3},
	LoanInvalidatedAt:      {"loan_invalidated_at", 2},
	VarUsedAt:              {"var_used_at", 2},
	VarDefinedAt:           {"var_defined_at", 2},
	VarDroppedAt:           {"var_dropped_at", 2},
	UseOfVarDerefsOrigin:   {"use_of_var_derefs_origin", 2},
	DropOfVarDerefsOrigin:  {"drop_of_var_derefs_origin", 2},
	ChildPathRel:           {"child_path", 2},
	PathIsVar:              {"path_is_var", 2},
	PathAssignedAtBase:     {"path_assigned_at_base", 2},
	PathMovedAtBase:        {"path_moved_at_base", 2},
	PathAccessedAtBase:     {"path_accessed_at_base", 2},
	KnownPlaceholderSubset: {"known_placeholder_subset", 2},
	PlaceholderRel:         {"placeholder", 2},
}

// Relations returns every relation in schema order.
// Schema order is also the order used for dumps and hashing.
func Relations() []Relation {
	rels := make([]Relation, numRelations)
	for i := range rels {
		rels[i] = Relation(i)
	}
	return rels
}

// Name returns the solver-facing relation name, e.g. "var_used_at".
func (r Relation) Name() string {
	if !r.valid() {
		return "unknown"
	}
	return relationInfo[r].name
}

// Arity returns the number of atoms per tuple.
func (r Relation) Arity() int {
	if !r.valid() {
		return 0
	}
	return relationInfo[r].arity
}

func (r Relation) String() string { return r.Name() }

func (r Relation) valid() bool { return r >= 0 && r < numRelations }

// ParseRelation looks up a relation by its solver-facing name.
func ParseRelation(name string) (Relation, bool) {
	for i, info := range relationInfo {
		if info.name == name {
			return Relation(i), true
		}
	}
	return 0, false
}
