package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/nllfacts/internal/analysis"
)

// ReplayResult is the outcome of recomputing one stored unit.
type ReplayResult struct {
	Unit UnitRecord `json:"unit"`

	// SnapshotIntact is false when the stored facts no longer hash to the
	// recorded snapshot hash.
	SnapshotIntact bool `json:"snapshot_intact"`

	// OutputIntact is false when the stored Result Set no longer hashes to
	// the recorded output hash.
	OutputIntact bool `json:"output_intact"`

	// OutputHash is the hash of the recomputed Output.
	OutputHash string `json:"output_hash"`

	// Deterministic is true when the recomputed Output hashes identically.
	Deterministic bool `json:"deterministic"`

	// Err is set when the unit could not be recomputed.
	Err string `json:"error,omitempty"`
}

// OK reports whether the unit replayed cleanly.
func (r ReplayResult) OK() bool {
	return r.Err == "" && r.SnapshotIntact && r.OutputIntact && r.Deterministic
}

// ReplayReport summarizes a replay over the store.
type ReplayReport struct {
	Results []ReplayResult `json:"results"`
	Failed  int            `json:"failed"`
}

// Replay recomputes every stored unit with eng, using the algorithm it was
// recorded with, and compares output hashes.
//
// Per-unit failures are reported in the results, not returned. The error is
// only for store access failures and context cancellation.
func (s *Store) Replay(ctx context.Context, eng analysis.Engine) (ReplayReport, error) {
	units, err := s.ReadUnits(ctx)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}
	return s.ReplayUnits(ctx, eng, units)
}

// ReplayNamed is Replay restricted to the units recorded under name.
func (s *Store) ReplayNamed(ctx context.Context, eng analysis.Engine, name string) (ReplayReport, error) {
	units, err := s.ReadUnitsByName(ctx, name)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay %s: %w", name, err)
	}
	return s.ReplayUnits(ctx, eng, units)
}

// ReplayUnits recomputes the given units in order.
func (s *Store) ReplayUnits(ctx context.Context, eng analysis.Engine, units []UnitRecord) (ReplayReport, error) {
	report := ReplayReport{Results: make([]ReplayResult, 0, len(units))}
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := s.replayUnit(ctx, eng, u)
		if err != nil {
			return report, fmt.Errorf("replay: %w", err)
		}
		if !res.OK() {
			report.Failed++
			slog.Warn("replay mismatch",
				"unit", u.ID,
				"name", u.Name,
				"snapshot_intact", res.SnapshotIntact,
				"output_intact", res.OutputIntact,
				"deterministic", res.Deterministic,
				"error", res.Err,
			)
		}
		report.Results = append(report.Results, res)
	}

	slog.Info("replay complete", "units", len(units), "failed", report.Failed)
	return report, nil
}

func (s *Store) replayUnit(ctx context.Context, eng analysis.Engine, u UnitRecord) (ReplayResult, error) {
	res := ReplayResult{Unit: u}

	snap, err := s.ReadSnapshot(ctx, u.ID)
	if err != nil {
		return res, err
	}
	res.SnapshotIntact = snap.Hash() == u.SnapshotHash

	recorded, err := s.ReadOutput(ctx, u.ID)
	if err != nil {
		return res, err
	}
	recordedHash, err := recorded.Hash()
	if err != nil {
		return res, err
	}
	res.OutputIntact = recordedHash == u.OutputHash

	out, err := eng.Compute(ctx, snap, u.Algorithm, analysis.Options{Exhaustive: true})
	if err != nil {
		res.Err = err.Error()
		return res, nil
	}
	if res.OutputHash, err = out.Hash(); err != nil {
		res.Err = err.Error()
		return res, nil
	}
	res.Deterministic = res.OutputHash == u.OutputHash
	return res, nil
}
