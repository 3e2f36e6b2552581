package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/nllfacts/internal/analysis"
	"github.com/roach88/nllfacts/internal/facts"
)

// UnitRecord is the stored summary of one computed unit.
type UnitRecord struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Seq          int64              `json:"seq"`
	Algorithm    analysis.Algorithm `json:"algorithm"`
	FactCount    int                `json:"fact_count"`
	SnapshotHash string             `json:"snapshot_hash"`
	OutputHash   string             `json:"output_hash"`
	Summary      analysis.Summary   `json:"summary"`
}

const unitColumns = `id, name, seq, algorithm, fact_count, snapshot_hash, output_hash,
	loan_errors, subset_errors, move_errors`

// ReadUnits returns every stored unit ordered by seq, then id.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ReadUnits(ctx context.Context) ([]UnitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+unitColumns+`
		FROM units
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	units := []UnitRecord{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return units, nil
}

// ReadUnitsByName returns the units recorded under name (NFC-normalized).
func (s *Store) ReadUnitsByName(ctx context.Context, name string) ([]UnitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+unitColumns+`
		FROM units
		WHERE name = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, normalizeName(name))
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	units := []UnitRecord{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return units, nil
}

// ReadUnit returns one unit. Wraps ErrNotFound if id is unknown.
func (s *Store) ReadUnit(ctx context.Context, id string) (UnitRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE id = ?`, id)
	u, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UnitRecord{}, fmt.Errorf("read unit %s: %w", id, ErrNotFound)
	}
	return u, err
}

// ReadOutput returns the stored Result Set of a unit.
func (s *Store) ReadOutput(ctx context.Context, id string) (*analysis.Output, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT output FROM units WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read output %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read output %s: %w", id, err)
	}
	return unmarshalOutput(data)
}

// ReadSnapshot rebuilds the facts a unit was computed from, in their
// original order.
func (s *Store) ReadSnapshot(ctx context.Context, id string) (*facts.Snapshot, error) {
	if _, err := s.ReadUnit(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT relation, a0, a1, a2
		FROM facts
		WHERE unit_id = ?
		ORDER BY relation COLLATE BINARY ASC, ord ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	st := facts.NewStore()
	for rows.Next() {
		var name string
		var a0 int64
		var a1, a2 sql.NullInt64
		if err := rows.Scan(&name, &a0, &a1, &a2); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		r, ok := facts.ParseRelation(name)
		if !ok {
			return nil, fmt.Errorf("unit %s: unknown relation %q", id, name)
		}
		row := []uint64{fromColumn(a0)}
		for _, col := range []sql.NullInt64{a1, a2} {
			if col.Valid {
				row = append(row, fromColumn(col.Int64))
			}
		}
		if err := st.AppendRow(r, row); err != nil {
			return nil, fmt.Errorf("unit %s: %w", id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts.Freeze(st), nil
}

// LastSeq returns the highest recorded seq, or 0 for an empty store.
// Used to resume the bridge clock.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM units`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUnit(row scanner) (UnitRecord, error) {
	var u UnitRecord
	var algo string
	err := row.Scan(
		&u.ID, &u.Name, &u.Seq, &algo, &u.FactCount, &u.SnapshotHash, &u.OutputHash,
		&u.Summary.LoanErrors, &u.Summary.SubsetErrors, &u.Summary.MoveErrors,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return u, err
	}
	if err != nil {
		return u, fmt.Errorf("scan unit: %w", err)
	}
	if u.Algorithm, err = analysis.ParseAlgorithm(algo); err != nil {
		return u, fmt.Errorf("unit %s: %w", u.ID, err)
	}
	return u, nil
}
