package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/nllfacts/internal/analysis"
	"github.com/roach88/nllfacts/internal/bridge"
	"github.com/roach88/nllfacts/internal/facts"
)

// Record stores a computed unit with its facts and Result Set.
// Implements bridge.Recorder.
//
// Uses ON CONFLICT(id) DO NOTHING: recording the same unit ID twice keeps
// the first row and its facts.
func (s *Store) Record(ctx context.Context, unit bridge.Unit, snap *facts.Snapshot, out *analysis.Output) error {
	outputJSON, err := marshalOutput(out)
	if err != nil {
		return fmt.Errorf("record unit: %w", err)
	}
	outputHash, err := out.Hash()
	if err != nil {
		return fmt.Errorf("record unit: %w", err)
	}
	summary := out.Summary()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record unit: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO units
		(id, name, seq, algorithm, fact_count, snapshot_hash, output_hash, output,
		 loan_errors, subset_errors, move_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		unit.ID,
		normalizeName(unit.Name),
		unit.Seq,
		unit.Algorithm.String(),
		snap.Len(),
		snap.Hash(),
		outputHash,
		outputJSON,
		summary.LoanErrors,
		summary.SubsetErrors,
		summary.MoveErrors,
	)
	if err != nil {
		return fmt.Errorf("record unit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already recorded.
		return tx.Commit()
	}

	if err := writeFacts(ctx, tx, unit.ID, snap); err != nil {
		return fmt.Errorf("record unit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record unit: commit: %w", err)
	}
	return nil
}

func writeFacts(ctx context.Context, tx *sql.Tx, unitID string, snap *facts.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (unit_id, relation, ord, a0, a1, a2)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare facts: %w", err)
	}
	defer stmt.Close()

	for _, r := range facts.Relations() {
		for ord, row := range snap.Rows(r) {
			cols := [3]any{}
			for i := range cols {
				if i < len(row) {
					cols[i] = toColumn(row[i])
				}
			}
			if _, err := stmt.ExecContext(ctx, unitID, r.Name(), ord, cols[0], cols[1], cols[2]); err != nil {
				return fmt.Errorf("insert %s fact: %w", r.Name(), err)
			}
		}
	}
	return nil
}
