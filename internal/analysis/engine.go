package analysis

import (
	"context"
	"errors"

	"github.com/roach88/nllfacts/internal/facts"
)

// ErrUnsupportedAlgorithm is returned by an Engine asked for a variant it
// does not implement.
var ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

// Options controls reporting.
type Options struct {
	// Exhaustive requests every error plus the intermediate relations.
	// When false, an engine may stop at the first loan error it reports.
	Exhaustive bool
}

// Engine computes a Result Set from a fact snapshot.
//
// Implementations must be pure with respect to the snapshot: the same
// snapshot, algorithm and options always produce an equal Output.
type Engine interface {
	Compute(ctx context.Context, snap *facts.Snapshot, algo Algorithm, opts Options) (*Output, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, snap *facts.Snapshot, algo Algorithm, opts Options) (*Output, error)

// Compute calls f.
func (f EngineFunc) Compute(ctx context.Context, snap *facts.Snapshot, algo Algorithm, opts Options) (*Output, error) {
	return f(ctx, snap, algo, opts)
}
