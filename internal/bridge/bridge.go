package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/nllfacts/internal/analysis"
	"github.com/roach88/nllfacts/internal/facts"
)

// slot is one arena entry.
//
// gen and state change only while holding both Bridge.mu and busy; they may
// be read holding either. store and result are owned by whoever holds busy.
type slot struct {
	gen   uint32
	state State
	busy  atomic.Bool

	unitID string
	name   string
	store  *facts.Store
	result *analysis.Output
}

// Bridge owns the arena of analysis units.
type Bridge struct {
	engine    analysis.Engine
	algorithm analysis.Algorithm
	clock     Sequencer
	ids       UnitIDGenerator
	recorder  Recorder
	metrics   *Metrics

	mu    sync.Mutex
	slots []*slot
	free  []uint32 // indices of Free slots, reused LIFO
	live  int
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithEngine sets the solver. Default: analysis.NewDatalog().
func WithEngine(e analysis.Engine) Option {
	return func(b *Bridge) {
		b.engine = e
	}
}

// WithAlgorithm sets the algorithm every unit is computed with.
// Default: analysis.Naive.
func WithAlgorithm(a analysis.Algorithm) Option {
	return func(b *Bridge) {
		b.algorithm = a
	}
}

// WithClock sets the logical clock used to stamp computations.
// Used to continue numbering after units already persisted.
func WithClock(c Sequencer) Option {
	return func(b *Bridge) {
		b.clock = c
	}
}

// WithUnitIDGenerator sets the generator for unit IDs. Default: UUIDv7Generator.
func WithUnitIDGenerator(g UnitIDGenerator) Option {
	return func(b *Bridge) {
		b.ids = g
	}
}

// WithRecorder sets a Recorder that receives every successful computation.
func WithRecorder(r Recorder) Option {
	return func(b *Bridge) {
		b.recorder = r
	}
}

// New creates a Bridge with no open units.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		algorithm: analysis.Naive,
		clock:     NewClock(),
		ids:       UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.engine == nil {
		b.engine = analysis.NewDatalog()
	}
	b.metrics = newMetrics(b)
	return b
}

// Algorithm returns the algorithm units are computed with.
func (b *Bridge) Algorithm() analysis.Algorithm {
	return b.algorithm
}

// Metrics returns the bridge's Prometheus collectors.
func (b *Bridge) Metrics() *Metrics {
	return b.metrics
}

// Open starts a new, empty analysis unit. It never fails.
func (b *Bridge) Open() Handle {
	return b.OpenNamed("")
}

// OpenNamed is Open with a unit name attached, passed on to the Recorder.
func (b *Bridge) OpenNamed(name string) Handle {
	id := b.ids.Generate()

	b.mu.Lock()
	defer b.mu.Unlock()

	var idx uint32
	var s *slot
	if n := len(b.free); n > 0 {
		idx = b.free[n-1]
		b.free = b.free[:n-1]
		s = b.slots[idx]
	} else {
		idx = uint32(len(b.slots))
		s = &slot{gen: 1}
		b.slots = append(b.slots, s)
	}

	s.state = Accumulating
	s.unitID = id
	s.name = name
	s.store = facts.NewStore()
	s.result = nil
	b.live++

	h := Handle{Index: idx, Generation: s.gen}
	slog.Debug("unit opened", "handle", h.String(), "unit", id, "name", name)
	return h
}

// Close releases the unit and everything it holds. The handle, and every
// copy of it, becomes invalid. An Output previously returned by Compute
// stays usable.
func (b *Bridge) Close(h Handle) error {
	const op = "close"
	s, err := b.acquire(op, h)
	if err != nil {
		return err
	}

	b.mu.Lock()
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.state = Free
	s.unitID = ""
	s.name = ""
	s.store = nil
	s.result = nil
	b.free = append(b.free, h.Index)
	b.live--
	// Released under mu so a reopened slot is never observed busy.
	s.busy.Store(false)
	b.mu.Unlock()

	slog.Debug("unit closed", "handle", h.String())
	return nil
}

// Live returns the number of open units.
func (b *Bridge) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

// State returns the lifecycle state of the unit behind h.
func (b *Bridge) State(h Handle) (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.lookup(h)
	if !ok {
		err := newInvalidHandleError("state", h)
		b.metrics.rejected(err)
		return Free, err
	}
	return s.state, nil
}

// Compute runs the engine over a snapshot of the unit's facts and returns
// the Result Set. The first successful Compute freezes the unit; later
// calls return the same Output without re-running the engine.
//
// On engine failure the unit stays Accumulating and the error is returned
// wrapped. If a Recorder is configured and fails, the unit is still Computed
// (Result returns the Output) and the recorder's error is returned.
func (b *Bridge) Compute(ctx context.Context, h Handle) (*analysis.Output, error) {
	const op = "compute"
	s, err := b.acquire(op, h)
	if err != nil {
		return nil, err
	}
	defer b.release(s)

	if s.state == Computed {
		return s.result, nil
	}

	snap := facts.Freeze(s.store)
	start := time.Now()
	out, err := b.engine.Compute(ctx, snap, b.algorithm, analysis.Options{Exhaustive: true})
	b.metrics.computeLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		b.metrics.computations.WithLabelValues(b.algorithm.String(), "error").Inc()
		slog.Error("compute failed",
			"handle", h.String(),
			"algorithm", b.algorithm.String(),
			"facts", snap.Len(),
			"error", err,
		)
		return nil, fmt.Errorf("compute %s: %w", h, err)
	}
	b.metrics.computations.WithLabelValues(b.algorithm.String(), "ok").Inc()

	summary := out.Summary()
	b.metrics.errorsFound.WithLabelValues("loan").Add(float64(summary.LoanErrors))
	b.metrics.errorsFound.WithLabelValues("subset").Add(float64(summary.SubsetErrors))
	b.metrics.errorsFound.WithLabelValues("move").Add(float64(summary.MoveErrors))

	seq := b.clock.Next()
	b.mu.Lock()
	s.state = Computed
	s.result = out
	b.mu.Unlock()

	slog.Info("unit computed",
		"handle", h.String(),
		"unit", s.unitID,
		"seq", seq,
		"algorithm", b.algorithm.String(),
		"facts", snap.Len(),
		"loan_errors", summary.LoanErrors,
		"subset_errors", summary.SubsetErrors,
		"move_errors", summary.MoveErrors,
	)

	if b.recorder != nil {
		unit := Unit{ID: s.unitID, Name: s.name, Seq: seq, Algorithm: b.algorithm}
		if err := b.recorder.Record(ctx, unit, snap, out); err != nil {
			b.metrics.recorderFailures.Inc()
			return nil, fmt.Errorf("record unit %s: %w", unit.ID, err)
		}
	}
	return out, nil
}

// Result returns the Output of the last successful Compute. The boolean is
// false while the unit is still accumulating.
func (b *Bridge) Result(h Handle) (*analysis.Output, bool, error) {
	s, err := b.acquire("result", h)
	if err != nil {
		return nil, false, err
	}
	defer b.release(s)
	return s.result, s.result != nil, nil
}

// Facts returns a snapshot of the facts recorded so far.
func (b *Bridge) Facts(h Handle) (*facts.Snapshot, error) {
	s, err := b.acquire("facts", h)
	if err != nil {
		return nil, err
	}
	defer b.release(s)
	return facts.Freeze(s.store), nil
}

// Unit returns the identity of the unit behind h.
func (b *Bridge) Unit(h Handle) (id, name string, err error) {
	s, err := b.acquire("unit", h)
	if err != nil {
		return "", "", err
	}
	defer b.release(s)
	return s.unitID, s.name, nil
}

// Load appends every tuple of src to the unit, relation by relation.
// Used to feed a unit from a .facts dump. On error the unit is unchanged.
func (b *Bridge) Load(h Handle, src *facts.Store) error {
	return b.record("load", h, func(dst *facts.Store) error {
		staged := dst.Clone()
		for _, r := range facts.Relations() {
			for _, row := range src.Rows(r) {
				if err := staged.AppendRow(r, row); err != nil {
					return fmt.Errorf("load: %w", err)
				}
			}
		}
		*dst = *staged
		for _, r := range facts.Relations() {
			if n := len(src.Rows(r)); n > 0 {
				b.metrics.factsRecorded.WithLabelValues(r.Name()).Add(float64(n))
			}
		}
		return nil
	})
}

// lookup resolves h to its slot. Caller holds mu.
func (b *Bridge) lookup(h Handle) (*slot, bool) {
	if h.IsZero() || int(h.Index) >= len(b.slots) {
		return nil, false
	}
	s := b.slots[h.Index]
	if s.gen != h.Generation || s.state == Free {
		return nil, false
	}
	return s, true
}

// acquire validates h and marks its slot busy. The caller must release it.
func (b *Bridge) acquire(op string, h Handle) (*slot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.lookup(h)
	if !ok {
		err := newInvalidHandleError(op, h)
		b.metrics.rejected(err)
		return nil, err
	}
	if !s.busy.CompareAndSwap(false, true) {
		err := newConcurrentUseError(op, h)
		b.metrics.rejected(err)
		return nil, err
	}
	return s, nil
}

func (b *Bridge) release(s *slot) {
	s.busy.Store(false)
}

// record runs add against the unit's store if the unit accepts facts.
func (b *Bridge) record(op string, h Handle, add func(*facts.Store) error) error {
	s, err := b.acquire(op, h)
	if err != nil {
		return err
	}
	defer b.release(s)

	if s.state == Computed {
		err := newFrozenError(op, h)
		b.metrics.rejected(err)
		slog.Warn("fact rejected", "handle", h.String(), "op", op, "error", err)
		return err
	}
	return add(s.store)
}
