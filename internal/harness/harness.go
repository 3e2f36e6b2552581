package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/nllfacts/internal/analysis"
	"github.com/roach88/nllfacts/internal/atom"
	"github.com/roach88/nllfacts/internal/bridge"
	"github.com/roach88/nllfacts/internal/facts"
	"github.com/roach88/nllfacts/internal/store"
	"github.com/roach88/nllfacts/internal/testutil"
)

// Run executes a scenario against a fresh Bridge.
//
// Step and assertion failures are collected in the Result. The returned
// error is reserved for infrastructure failures such as the replay store.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	algo := analysis.Naive
	if scenario.Algorithm != "" {
		var err error
		if algo, err = analysis.ParseAlgorithm(scenario.Algorithm); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	eng := analysis.NewDatalog()
	r := &runner{
		ctx: ctx,
		b: bridge.New(
			bridge.WithEngine(eng),
			bridge.WithAlgorithm(algo),
			bridge.WithClock(testutil.NewDeterministicClock()),
			bridge.WithUnitIDGenerator(testutil.NewFixedIDGenerator(scenario.Name)),
			bridge.WithRecorder(st),
		),
		handles:  make(map[string]bridge.Handle),
		captured: make(map[string]*facts.Snapshot),
		result:   NewResult(),
	}

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.step(i, step)
	}

	for i, a := range scenario.Assertions {
		if err := r.check(a); err != nil {
			r.result.AddError(fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}

	report, err := st.Replay(ctx, eng)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	for _, res := range report.Results {
		if !res.OK() {
			r.result.AddError(fmt.Sprintf("unit %s did not replay cleanly", res.Unit.ID))
		}
	}

	slog.Debug("scenario complete",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"pass", r.result.Pass,
	)
	return r.result, nil
}

type runner struct {
	ctx     context.Context
	b       *bridge.Bridge
	handles map[string]bridge.Handle

	// captured holds the facts of each handle as of its last step, so
	// assertions can inspect units that were closed.
	captured map[string]*facts.Snapshot
	result   *Result
}

// handle resolves a scenario name. Unknown names map to the zero Handle.
func (r *runner) handle(name string) bridge.Handle {
	return r.handles[name]
}

func (r *runner) step(i int, step Step) {
	ev := TraceEvent{
		Seq:      int64(i + 1),
		Op:       step.Op,
		Handle:   step.Handle,
		Relation: step.Relation,
		Tuple:    step.Tuple,
	}

	var err error
	switch step.Op {
	case OpOpen:
		r.handles[step.Handle] = r.b.OpenNamed(step.Handle)
	case OpRecord:
		rel, _ := facts.ParseRelation(step.Relation)
		err = recordTuple(r.b, r.handle(step.Handle), rel, step.Tuple)
	case OpCompute:
		var out *analysis.Output
		out, err = r.b.Compute(r.ctx, r.handle(step.Handle))
		if err == nil {
			summary := out.Summary()
			ev.Summary = &summary
			r.result.Outputs[step.Handle] = out
			if step.Expect != nil {
				r.expect(i, step.Expect, out)
			}
		}
	case OpClose:
		r.capture(step.Handle)
		err = r.b.Close(r.handle(step.Handle))
	}
	if step.Op != OpClose {
		r.capture(step.Handle)
	}

	if err != nil {
		ev.Error = errorCode(err)
	}
	if ev.Error != step.ExpectError {
		switch {
		case step.ExpectError == "":
			r.result.AddError(fmt.Sprintf("step %d (%s %s): unexpected error: %v", i, step.Op, step.Handle, err))
		case err == nil:
			r.result.AddError(fmt.Sprintf("step %d (%s %s): expected %s, got success", i, step.Op, step.Handle, step.ExpectError))
		default:
			r.result.AddError(fmt.Sprintf("step %d (%s %s): expected %s, got %v", i, step.Op, step.Handle, step.ExpectError, err))
		}
	}
	r.result.Trace = append(r.result.Trace, ev)
}

func (r *runner) capture(name string) {
	h, ok := r.handles[name]
	if !ok {
		return
	}
	if snap, err := r.b.Facts(h); err == nil {
		r.captured[name] = snap
	}
}

func (r *runner) expect(i int, want *Expect, out *analysis.Output) {
	if want.Errors != nil {
		got := make([][]uint64, 0, len(out.Errors))
		for _, e := range out.Errors {
			got = append(got, []uint64{e.Loan.Index(), e.Point.Index()})
		}
		if err := rowsEqual(want.Errors, got); err != nil {
			r.result.AddError(fmt.Sprintf("step %d: errors: %v", i, err))
		}
	}
	if want.SubsetErrors != nil {
		got := make([][]uint64, 0, len(out.SubsetErrors))
		for _, e := range out.SubsetErrors {
			got = append(got, []uint64{e.Sub.Index(), e.Sup.Index(), e.Point.Index()})
		}
		if err := rowsEqual(want.SubsetErrors, got); err != nil {
			r.result.AddError(fmt.Sprintf("step %d: subset_errors: %v", i, err))
		}
	}
	if want.MoveErrors != nil {
		got := make([][]uint64, 0, len(out.MoveErrors))
		for _, e := range out.MoveErrors {
			got = append(got, []uint64{e.Path.Index(), e.Point.Index()})
		}
		if err := rowsEqual(want.MoveErrors, got); err != nil {
			r.result.AddError(fmt.Sprintf("step %d: move_errors: %v", i, err))
		}
	}
}

// errorCode reduces a bridge error to its contract code. Errors outside the
// contract are reported by message.
func errorCode(err error) string {
	var ce *bridge.ContractError
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	return err.Error()
}

// recordTuple dispatches to the Record method for rel. Tuple width has
// already been validated against the relation's arity.
func recordTuple(b *bridge.Bridge, h bridge.Handle, rel facts.Relation, t []uint64) error {
	switch rel {
	case facts.LoanIssuedAt:
		return b.RecordBorrow(h, atom.OriginOf(t[0]), atom.LoanOf(t[1]), atom.PointOf(t[2]))
	case facts.UniversalRegion:
		return b.RecordUniversalRegion(h, atom.OriginOf(t[0]))
	case facts.CFGEdge:
		return b.RecordCFGEdge(h, atom.PointOf(t[0]), atom.PointOf(t[1]))
	case facts.LoanKilledAt:
		return b.RecordLoanKilled(h, atom.LoanOf(t[0]), atom.PointOf(t[1]))
	case facts.SubsetBaseRel:
		return b.RecordSubset(h, atom.OriginOf(t[0]), atom.OriginOf(t[1]), atom.PointOf(t[2]))
	case facts.LoanInvalidatedAt:
		return b.RecordLoanInvalidated(h, atom.LoanOf(t[0]), atom.PointOf(t[1]))
	case facts.VarUsedAt:
		return b.RecordUse(h, atom.VariableOf(t[0]), atom.PointOf(t[1]))
	case facts.VarDefinedAt:
		return b.RecordDefinition(h, atom.VariableOf(t[0]), atom.PointOf(t[1]))
	case facts.VarDroppedAt:
		return b.RecordVarDropped(h, atom.VariableOf(t[0]), atom.PointOf(t[1]))
	case facts.UseOfVarDerefsOrigin:
		return b.RecordUseOfVarDerefsOrigin(h, atom.VariableOf(t[0]), atom.OriginOf(t[1]))
	case facts.DropOfVarDerefsOrigin:
		return b.RecordDropOfVarDerefsOrigin(h, atom.VariableOf(t[0]), atom.OriginOf(t[1]))
	case facts.ChildPathRel:
		return b.RecordChildPath(h, atom.PathOf(t[0]), atom.PathOf(t[1]))
	case facts.PathIsVar:
		return b.RecordPathIsVar(h, atom.PathOf(t[0]), atom.VariableOf(t[1]))
	case facts.PathAssignedAtBase:
		return b.RecordPathAssigned(h, atom.PathOf(t[0]), atom.PointOf(t[1]))
	case facts.PathMovedAtBase:
		return b.RecordPathMoved(h, atom.PathOf(t[0]), atom.PointOf(t[1]))
	case facts.PathAccessedAtBase:
		return b.RecordPathAccessed(h, atom.PathOf(t[0]), atom.PointOf(t[1]))
	case facts.KnownPlaceholderSubset:
		return b.RecordKnownPlaceholderSubset(h, atom.OriginOf(t[0]), atom.OriginOf(t[1]))
	case facts.PlaceholderRel:
		return b.RecordPlaceholder(h, atom.OriginOf(t[0]), atom.LoanOf(t[1]))
	}
	return fmt.Errorf("unknown relation %d", rel)
}
