package atom

import "strconv"

// Origin identifies a region/lifetime.
type Origin uint64

// Loan identifies a borrow.
type Loan uint64

// Point identifies a program point in the control-flow graph.
type Point uint64

// Variable identifies a local variable or temporary.
type Variable uint64

// Path identifies a place: a variable or a projection (field, index, deref) of one.
type Path uint64

// OriginOf converts a raw frontend id into an Origin.
func OriginOf(raw uint64) Origin { return Origin(raw) }

// LoanOf converts a raw frontend id into a Loan.
func LoanOf(raw uint64) Loan { return Loan(raw) }

// PointOf converts a raw frontend id into a Point.
func PointOf(raw uint64) Point { return Point(raw) }

// VariableOf converts a raw frontend id into a Variable.
func VariableOf(raw uint64) Variable { return Variable(raw) }

// PathOf converts a raw frontend id into a Path.
func PathOf(raw uint64) Path { return Path(raw) }

func (o Origin) Index() uint64   { return uint64(o) }
func (l Loan) Index() uint64     { return uint64(l) }
func (p Point) Index() uint64    { return uint64(p) }
func (v Variable) Index() uint64 { return uint64(v) }
func (p Path) Index() uint64     { return uint64(p) }

func (o Origin) String() string   { return "'?" + strconv.FormatUint(uint64(o), 10) }
func (l Loan) String() string     { return "bw" + strconv.FormatUint(uint64(l), 10) }
func (v Variable) String() string { return "_" + strconv.FormatUint(uint64(v), 10) }
func (p Path) String() string     { return "mp" + strconv.FormatUint(uint64(p), 10) }

// Atom is implemented by all five identifier types.
// Used by the fact encoders, which only need the raw index.
type Atom interface {
	Index() uint64
}
