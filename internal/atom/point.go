package atom

import "fmt"

// Position distinguishes the two points the frontend emits per statement.
type Position uint8

const (
	// Start is the point before a statement takes effect.
	Start Position = 0
	// Mid is the point at which a statement's reads and writes happen.
	Mid Position = 1
)

// PointAt encodes a (basic block, statement, position) triple the way the
// frontend's fact collector does: block<<32 | stmt<<1 | pos.
//
// Statement indices above 2^31-1 overflow into the block bits; the frontend
// never produces blocks that large.
func PointAt(block, stmt uint32, pos Position) Point {
	return Point(uint64(block)<<32 | uint64(stmt)<<1 | uint64(pos&1))
}

// Block returns the basic block encoded in p.
func (p Point) Block() uint32 { return uint32(uint64(p) >> 32) }

// Statement returns the statement index encoded in p.
func (p Point) Statement() uint32 { return uint32(uint64(p)&0xFFFFFFFF) >> 1 }

// Position returns whether p is the start or mid point of its statement.
func (p Point) Position() Position { return Position(uint64(p) & 1) }

// String renders p in the frontend's dump notation, e.g. "Mid(bb2[3])".
func (p Point) String() string {
	kind := "Start"
	if p.Position() == Mid {
		kind = "Mid"
	}
	return fmt.Sprintf("%s(bb%d[%d])", kind, p.Block(), p.Statement())
}
