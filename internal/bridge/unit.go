package bridge

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/nllfacts/internal/analysis"
	"github.com/roach88/nllfacts/internal/facts"
)

// Unit describes one computed analysis unit.
type Unit struct {
	// ID is unique per Open; generated by the Bridge's UnitIDGenerator.
	ID string

	// Name is the caller-supplied unit name (usually the function name).
	Name string

	// Seq is the logical clock value stamped at compute time.
	Seq int64

	// Algorithm is the variant the unit was computed with.
	Algorithm analysis.Algorithm
}

// Recorder receives every successful computation.
// Implemented by store.Store.
type Recorder interface {
	Record(ctx context.Context, unit Unit, snap *facts.Snapshot, out *analysis.Output) error
}

// UnitIDGenerator generates unit IDs.
// Implemented by UUIDv7Generator (production) and testutil.FixedIDGenerator (tests).
type UnitIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 unit IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
