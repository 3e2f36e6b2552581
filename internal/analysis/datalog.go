package analysis

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	mangleanalysis "github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	mangleengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/roach88/nllfacts/internal/atom"
	"github.com/roach88/nllfacts/internal/facts"
)

//go:embed rules/*.mg
var rulesFS embed.FS

// DefaultDerivedFactLimit caps the number of facts one evaluation may derive.
const DefaultDerivedFactLimit = 5_000_000

// ruleFiles lists the programs evaluated for each supported algorithm.
var ruleFiles = map[Algorithm][]string{
	Naive:               {"rules/prelude.mg", "rules/naive.mg"},
	LocationInsensitive: {"rules/prelude.mg", "rules/location_insensitive.mg"},
}

// Datalog is the bundled Engine, evaluating rule programs with Mangle.
// A Datalog value is safe for concurrent use.
type Datalog struct {
	factLimit int

	mu       sync.Mutex
	programs map[Algorithm]*mangleanalysis.ProgramInfo
}

// DatalogOption configures a Datalog engine.
type DatalogOption func(*Datalog)

// WithDerivedFactLimit sets the maximum number of derived facts per evaluation.
// Default: DefaultDerivedFactLimit.
func WithDerivedFactLimit(limit int) DatalogOption {
	return func(d *Datalog) {
		d.factLimit = limit
	}
}

// NewDatalog creates a Datalog engine.
func NewDatalog(opts ...DatalogOption) *Datalog {
	d := &Datalog{
		factLimit: DefaultDerivedFactLimit,
		programs:  make(map[Algorithm]*mangleanalysis.ProgramInfo),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Supports reports whether algo has a rule program.
func (d *Datalog) Supports(algo Algorithm) bool {
	_, ok := ruleFiles[algo]
	return ok
}

// Compute evaluates the rule program for algo over snap.
func (d *Datalog) Compute(ctx context.Context, snap *facts.Snapshot, algo Algorithm, opts Options) (*Output, error) {
	if !d.Supports(algo) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algo)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	program, err := d.program(algo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", algo, err)
	}

	var store factstore.FactStore = factstore.NewSimpleInMemoryStore()
	for _, r := range facts.Relations() {
		for _, row := range snap.Rows(r) {
			store.Add(ast.NewAtom(r.Name(), numbers(row)...))
		}
	}

	stats, err := mangleengine.EvalProgramWithStats(program, store,
		mangleengine.WithCreatedFactLimit(d.factLimit))
	if err != nil {
		return nil, fmt.Errorf("%s: evaluate: %w", algo, err)
	}
	slog.Debug("fixpoint reached",
		"algorithm", algo.String(),
		"facts", snap.Len(),
		"strata", len(stats.Strata),
	)

	out, err := readOutput(store, algo, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", algo, err)
	}
	return out, nil
}

// program returns the analyzed rule program for algo, parsing it on first use.
func (d *Datalog) program(algo Algorithm) (*mangleanalysis.ProgramInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.programs[algo]; ok {
		return p, nil
	}

	var src strings.Builder
	for _, name := range ruleFiles[algo] {
		data, err := rulesFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		src.Write(data)
		src.WriteByte('\n')
	}

	unit, err := parse.Unit(strings.NewReader(src.String()))
	if err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	info, err := mangleanalysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze rules: %w", err)
	}
	d.programs[algo] = info
	return info, nil
}

// readOutput collects the derived relations from store into an Output.
func readOutput(store factstore.FactStore, algo Algorithm, opts Options) (*Output, error) {
	out := &Output{
		Algorithm:    algo,
		Errors:       []LoanError{},
		SubsetErrors: []SubsetError{},
		MoveErrors:   []MoveError{},
	}

	rows, err := query(store, "loan_error", 2)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.Errors = append(out.Errors, LoanError{Loan: atom.LoanOf(r[0]), Point: atom.PointOf(r[1])})
	}

	if !opts.Exhaustive {
		// Fail-fast reporting: only the earliest loan error, nothing else.
		if len(out.Errors) > 0 {
			first := slices.MinFunc(out.Errors, func(a, b LoanError) int {
				return compareRows([]uint64{a.Point.Index(), a.Loan.Index()}, []uint64{b.Point.Index(), b.Loan.Index()})
			})
			out.Errors = []LoanError{first}
		}
		return out, nil
	}

	if rows, err = query(store, "subset_error", 3); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.SubsetErrors = append(out.SubsetErrors, SubsetError{
			Sub: atom.OriginOf(r[0]), Sup: atom.OriginOf(r[1]), Point: atom.PointOf(r[2]),
		})
	}

	if rows, err = query(store, "move_error", 2); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.MoveErrors = append(out.MoveErrors, MoveError{Path: atom.PathOf(r[0]), Point: atom.PointOf(r[1])})
	}

	if rows, err = query(store, "loan_live_at", 2); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.LoanLiveAt = append(out.LoanLiveAt, facts.LoanPoint{Loan: atom.LoanOf(r[0]), Point: atom.PointOf(r[1])})
	}

	if rows, err = query(store, "origin_contains_loan_on_entry", 3); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.OriginContainsLoanAt = append(out.OriginContainsLoanAt, OriginLoanPoint{
			Origin: atom.OriginOf(r[0]), Loan: atom.LoanOf(r[1]), Point: atom.PointOf(r[2]),
		})
	}

	if rows, err = query(store, "subset", 3); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.Subset = append(out.Subset, facts.SubsetBase{
			Sub: atom.OriginOf(r[0]), Sup: atom.OriginOf(r[1]), Point: atom.PointOf(r[2]),
		})
	}

	if rows, err = query(store, "origin_live_on_entry", 2); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.OriginLiveOnEntry = append(out.OriginLiveOnEntry, OriginPoint{Origin: atom.OriginOf(r[0]), Point: atom.PointOf(r[1])})
	}

	if rows, err = query(store, "var_live_on_entry", 2); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.VarLiveOnEntry = append(out.VarLiveOnEntry, facts.VarPoint{Var: atom.VariableOf(r[0]), Point: atom.PointOf(r[1])})
	}

	return out, nil
}

// query returns every fact of predicate/arity as sorted rows of raw atoms.
// Predicates absent from the program simply yield no rows.
func query(store factstore.FactStore, predicate string, arity int) ([][]uint64, error) {
	var rows [][]uint64
	pred := ast.PredicateSym{Symbol: predicate, Arity: arity}
	err := store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
		row := make([]uint64, len(a.Args))
		for i, term := range a.Args {
			c, ok := term.(ast.Constant)
			if !ok || c.Type != ast.NumberType {
				return fmt.Errorf("%s: argument %d is not a number: %v", predicate, i, term)
			}
			row[i] = uint64(c.NumValue)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", predicate, err)
	}
	slices.SortFunc(rows, compareRows)
	return rows, nil
}

// numbers converts raw atoms into Mangle number constants.
// Indices above MaxInt64 are stored by bit pattern and recovered by query.
func numbers(row []uint64) []ast.BaseTerm {
	terms := make([]ast.BaseTerm, len(row))
	for i, v := range row {
		terms[i] = ast.Number(int64(v))
	}
	return terms
}

func compareRows(a, b []uint64) int {
	return slices.Compare(a, b)
}
