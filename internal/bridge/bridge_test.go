package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nllfacts/internal/analysis"
	"github.com/roach88/nllfacts/internal/atom"
	"github.com/roach88/nllfacts/internal/facts"
	"github.com/roach88/nllfacts/internal/testutil"
)

func newTestBridge(t *testing.T, opts ...Option) *Bridge {
	t.Helper()
	opts = append([]Option{WithUnitIDGenerator(testutil.NewFixedIDGenerator("unit"))}, opts...)
	return New(opts...)
}

// countingEngine returns an empty Output and counts invocations.
func countingEngine(calls *int) analysis.Engine {
	var mu sync.Mutex
	return analysis.EngineFunc(func(ctx context.Context, snap *facts.Snapshot, algo analysis.Algorithm, opts analysis.Options) (*analysis.Output, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return &analysis.Output{Algorithm: algo, Errors: []analysis.LoanError{}}, nil
	})
}

func snapshotOf(t *testing.T, b *Bridge, h Handle) *facts.Store {
	t.Helper()
	snap, err := b.Facts(h)
	require.NoError(t, err)
	return snap.Store()
}

func TestScenario_UseAndDefinition(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()

	require.NoError(t, b.RecordUse(h, atom.VariableOf(1), atom.PointOf(10)))
	require.NoError(t, b.RecordDefinition(h, atom.VariableOf(1), atom.PointOf(5)))

	out, err := b.Compute(context.Background(), h)
	require.NoError(t, err)
	require.NotNil(t, out)

	s := snapshotOf(t, b, h)
	assert.Equal(t, []facts.VarPoint{{Var: 1, Point: 10}}, s.VarUsedAt)
	assert.Equal(t, []facts.VarPoint{{Var: 1, Point: 5}}, s.VarDefinedAt)
	require.NoError(t, b.Close(h))
}

func TestScenario_EmptyCompute(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()

	out, err := b.Compute(context.Background(), h)
	require.NoError(t, err)
	assert.False(t, out.HasErrors())
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.SubsetErrors)
	assert.Empty(t, out.MoveErrors)
	require.NoError(t, b.Close(h))
}

func TestScenario_HandlesAreIsolated(t *testing.T) {
	b := newTestBridge(t)
	h1 := b.Open()
	h2 := b.Open()
	require.NotEqual(t, h1, h2)

	// h1 gets a loan invalidated while live; h2 a harmless use.
	require.NoError(t, b.RecordCFGEdge(h1, 0, 1))
	require.NoError(t, b.RecordBorrow(h1, 1, 0, 0))
	require.NoError(t, b.RecordUseOfVarDerefsOrigin(h1, 5, 1))
	require.NoError(t, b.RecordUse(h1, 5, 1))
	require.NoError(t, b.RecordLoanInvalidated(h1, 0, 1))

	require.NoError(t, b.RecordUse(h2, 7, 3))

	out1, err := b.Compute(context.Background(), h1)
	require.NoError(t, err)
	out2, err := b.Compute(context.Background(), h2)
	require.NoError(t, err)

	assert.Equal(t, []analysis.LoanError{{Loan: 0, Point: 1}}, out1.Errors)
	assert.Empty(t, out2.Errors)
	assert.Equal(t, []facts.VarPoint{{Var: 7, Point: 3}}, out2.VarLiveOnEntry)

	s1 := snapshotOf(t, b, h1)
	s2 := snapshotOf(t, b, h2)
	assert.Equal(t, []facts.VarPoint{{Var: 5, Point: 1}}, s1.VarUsedAt)
	assert.Equal(t, []facts.VarPoint{{Var: 7, Point: 3}}, s2.VarUsedAt)
	assert.Empty(t, s2.LoanIssuedAt)
}

func TestScenario_UseOutsideLifetimeIsRejected(t *testing.T) {
	b := newTestBridge(t)

	// Before any open.
	err := b.RecordUse(Handle{}, 1, 10)
	require.Error(t, err)
	assert.True(t, IsInvalidHandle(err))

	err = b.RecordUse(Handle{Index: 3, Generation: 1}, 1, 10)
	assert.True(t, IsInvalidHandle(err))

	// After close.
	h := b.Open()
	require.NoError(t, b.Close(h))
	err = b.RecordUse(h, 1, 10)
	assert.True(t, IsInvalidHandle(err))

	var ce *ContractError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "record_use", ce.Op)
	assert.Equal(t, h, ce.Handle)
}

func TestRecord_PreservesOrderAndDuplicates(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()

	uses := []facts.VarPoint{{Var: 3, Point: 9}, {Var: 1, Point: 2}, {Var: 3, Point: 9}, {Var: 0, Point: 0}}
	defs := []facts.VarPoint{{Var: 8, Point: 1}, {Var: 8, Point: 1}, {Var: 2, Point: 7}}
	for i := 0; i < len(uses) || i < len(defs); i++ {
		if i < len(uses) {
			require.NoError(t, b.RecordUse(h, uses[i].Var, uses[i].Point))
		}
		if i < len(defs) {
			require.NoError(t, b.RecordDefinition(h, defs[i].Var, defs[i].Point))
		}
	}

	s := snapshotOf(t, b, h)
	assert.Equal(t, uses, s.VarUsedAt)
	assert.Equal(t, defs, s.VarDefinedAt)
}

func TestRecord_EveryRelation(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()

	require.NoError(t, b.RecordBorrow(h, 1, 2, 3))
	require.NoError(t, b.RecordLoanKilled(h, 2, 4))
	require.NoError(t, b.RecordLoanInvalidated(h, 2, 5))
	require.NoError(t, b.RecordSubset(h, 1, 6, 3))
	require.NoError(t, b.RecordCFGEdge(h, 3, 4))
	require.NoError(t, b.RecordUniversalRegion(h, 6))
	require.NoError(t, b.RecordVarDropped(h, 7, 5))
	require.NoError(t, b.RecordUseOfVarDerefsOrigin(h, 7, 1))
	require.NoError(t, b.RecordDropOfVarDerefsOrigin(h, 7, 6))
	require.NoError(t, b.RecordChildPath(h, 9, 8))
	require.NoError(t, b.RecordPathIsVar(h, 8, 7))
	require.NoError(t, b.RecordPathAssigned(h, 8, 3))
	require.NoError(t, b.RecordPathMoved(h, 8, 4))
	require.NoError(t, b.RecordPathAccessed(h, 9, 5))
	require.NoError(t, b.RecordKnownPlaceholderSubset(h, 6, 10))
	require.NoError(t, b.RecordPlaceholder(h, 6, 11))

	s := snapshotOf(t, b, h)
	assert.Equal(t, []facts.LoanIssued{{Origin: 1, Loan: 2, Point: 3}}, s.LoanIssuedAt)
	assert.Equal(t, []facts.LoanPoint{{Loan: 2, Point: 4}}, s.LoanKilledAt)
	assert.Equal(t, []facts.LoanPoint{{Loan: 2, Point: 5}}, s.LoanInvalidatedAt)
	assert.Equal(t, []facts.SubsetBase{{Sub: 1, Sup: 6, Point: 3}}, s.SubsetBase)
	assert.Equal(t, []facts.Edge{{From: 3, To: 4}}, s.CFGEdge)
	assert.Equal(t, []atom.Origin{6}, s.UniversalRegion)
	assert.Equal(t, []facts.VarPoint{{Var: 7, Point: 5}}, s.VarDroppedAt)
	assert.Equal(t, []facts.VarOrigin{{Var: 7, Origin: 1}}, s.UseOfVarDerefsOrigin)
	assert.Equal(t, []facts.VarOrigin{{Var: 7, Origin: 6}}, s.DropOfVarDerefsOrigin)
	assert.Equal(t, []facts.ChildPath{{Child: 9, Parent: 8}}, s.ChildPath)
	assert.Equal(t, []facts.PathVar{{Path: 8, Var: 7}}, s.PathIsVar)
	assert.Equal(t, []facts.PathPoint{{Path: 8, Point: 3}}, s.PathAssignedAtBase)
	assert.Equal(t, []facts.PathPoint{{Path: 8, Point: 4}}, s.PathMovedAtBase)
	assert.Equal(t, []facts.PathPoint{{Path: 9, Point: 5}}, s.PathAccessedAtBase)
	assert.Equal(t, []facts.OriginPair{{Sub: 6, Sup: 10}}, s.KnownPlaceholderSubset)
	assert.Equal(t, []facts.Placeholder{{Origin: 6, Loan: 11}}, s.Placeholder)
	assert.Equal(t, 16, s.Len())
}

func TestCompute_Idempotent(t *testing.T) {
	var calls int
	b := newTestBridge(t, WithEngine(countingEngine(&calls)))
	h := b.Open()
	require.NoError(t, b.RecordUse(h, 1, 1))

	first, err := b.Compute(context.Background(), h)
	require.NoError(t, err)
	second, err := b.Compute(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCompute_IdempotentWithDatalog(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()
	require.NoError(t, b.RecordCFGEdge(h, 0, 1))
	require.NoError(t, b.RecordUse(h, 1, 1))

	first, err := b.Compute(context.Background(), h)
	require.NoError(t, err)
	second, err := b.Compute(context.Background(), h)
	require.NoError(t, err)

	h1, err := first.Hash()
	require.NoError(t, err)
	h2, err := second.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestRecord_AfterComputeIsFrozen(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()
	require.NoError(t, b.RecordUse(h, 1, 1))
	_, err := b.Compute(context.Background(), h)
	require.NoError(t, err)

	err = b.RecordUse(h, 2, 2)
	require.Error(t, err)
	assert.True(t, IsFrozen(err))
	assert.False(t, IsInvalidHandle(err))

	err = b.RecordBorrow(h, 1, 1, 1)
	assert.True(t, IsFrozen(err))

	s := snapshotOf(t, b, h)
	assert.Equal(t, []facts.VarPoint{{Var: 1, Point: 1}}, s.VarUsedAt)
	assert.Empty(t, s.LoanIssuedAt)

	state, err := b.State(h)
	require.NoError(t, err)
	assert.Equal(t, Computed, state)
}

func TestCompute_EngineFailureLeavesUnitAccumulating(t *testing.T) {
	boom := errors.New("boom")
	fail := true
	eng := analysis.EngineFunc(func(ctx context.Context, snap *facts.Snapshot, algo analysis.Algorithm, opts analysis.Options) (*analysis.Output, error) {
		if fail {
			return nil, boom
		}
		return &analysis.Output{Algorithm: algo}, nil
	})
	b := newTestBridge(t, WithEngine(eng))
	h := b.Open()

	_, err := b.Compute(context.Background(), h)
	require.ErrorIs(t, err, boom)

	state, err := b.State(h)
	require.NoError(t, err)
	assert.Equal(t, Accumulating, state)
	require.NoError(t, b.RecordUse(h, 1, 1))

	fail = false
	out, err := b.Compute(context.Background(), h)
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestCompute_UnsupportedAlgorithm(t *testing.T) {
	b := newTestBridge(t, WithAlgorithm(analysis.DatafrogOpt))
	h := b.Open()

	_, err := b.Compute(context.Background(), h)
	require.ErrorIs(t, err, analysis.ErrUnsupportedAlgorithm)
	assert.Equal(t, analysis.DatafrogOpt, b.Algorithm())
}

func TestCompute_RequestsExhaustiveMode(t *testing.T) {
	var got analysis.Options
	eng := analysis.EngineFunc(func(ctx context.Context, snap *facts.Snapshot, algo analysis.Algorithm, opts analysis.Options) (*analysis.Output, error) {
		got = opts
		return &analysis.Output{Algorithm: algo}, nil
	})
	b := newTestBridge(t, WithEngine(eng), WithAlgorithm(analysis.LocationInsensitive))
	h := b.Open()

	out, err := b.Compute(context.Background(), h)
	require.NoError(t, err)
	assert.True(t, got.Exhaustive)
	assert.Equal(t, analysis.LocationInsensitive, out.Algorithm)
}

func TestResult(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()

	out, ok, err := b.Result(h)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, out)

	computed, err := b.Compute(context.Background(), h)
	require.NoError(t, err)

	out, ok, err = b.Result(h)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, computed, out)
}

func TestOutputOutlivesHandle(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()
	require.NoError(t, b.RecordCFGEdge(h, 0, 1))
	require.NoError(t, b.RecordUse(h, 4, 1))

	out, err := b.Compute(context.Background(), h)
	require.NoError(t, err)
	require.NoError(t, b.Close(h))

	assert.Equal(t, []facts.VarPoint{{Var: 4, Point: 0}, {Var: 4, Point: 1}}, out.VarLiveOnEntry)
}

func TestClose_Twice(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()
	require.NoError(t, b.Close(h))

	err := b.Close(h)
	require.Error(t, err)
	assert.True(t, IsInvalidHandle(err))
}

func TestClose_StaleHandleAfterReuse(t *testing.T) {
	b := newTestBridge(t)
	old := b.Open()
	require.NoError(t, b.Close(old))

	fresh := b.Open()
	assert.Equal(t, old.Index, fresh.Index, "slot is reused")
	assert.NotEqual(t, old.Generation, fresh.Generation)

	require.NoError(t, b.RecordUse(fresh, 1, 1))
	assert.True(t, IsInvalidHandle(b.RecordUse(old, 2, 2)))
	assert.True(t, IsInvalidHandle(b.Close(old)))

	_, err := b.Compute(context.Background(), old)
	assert.True(t, IsInvalidHandle(err))
	_, _, err = b.Result(old)
	assert.True(t, IsInvalidHandle(err))
	_, err = b.Facts(old)
	assert.True(t, IsInvalidHandle(err))
	_, err = b.State(old)
	assert.True(t, IsInvalidHandle(err))

	s := snapshotOf(t, b, fresh)
	assert.Equal(t, []facts.VarPoint{{Var: 1, Point: 1}}, s.VarUsedAt)
}

func TestClose_ReleasesResources(t *testing.T) {
	b := newTestBridge(t)
	assert.Equal(t, 0, b.Live())

	handles := make([]Handle, 5)
	for i := range handles {
		handles[i] = b.Open()
		require.NoError(t, b.RecordUse(handles[i], atom.VariableOf(uint64(i)), 1))
	}
	_, err := b.Compute(context.Background(), handles[0])
	require.NoError(t, err)
	assert.Equal(t, 5, b.Live())

	for _, h := range handles {
		require.NoError(t, b.Close(h))
	}
	assert.Equal(t, 0, b.Live())

	for _, s := range b.slots {
		assert.Equal(t, Free, s.state)
		assert.Nil(t, s.store)
		assert.Nil(t, s.result)
		assert.Empty(t, s.unitID)
		assert.False(t, s.busy.Load())
	}
	assert.Len(t, b.free, len(b.slots))
}

func TestOpen_RepeatedIsSafe(t *testing.T) {
	b := newTestBridge(t)
	seen := make(map[Handle]bool)
	for i := 0; i < 100; i++ {
		h := b.Open()
		assert.False(t, h.IsZero())
		assert.False(t, seen[h])
		seen[h] = true
	}
	assert.Equal(t, 100, b.Live())
}

func TestOpen_Concurrent(t *testing.T) {
	b := newTestBridge(t)
	const workers = 16

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := b.Open()
			if err := b.RecordUse(h, atom.VariableOf(uint64(i)), 0); err != nil {
				errs[i] = err
				return
			}
			if _, err := b.Compute(context.Background(), h); err != nil {
				errs[i] = err
				return
			}
			errs[i] = b.Close(h)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, b.Live())
}

func TestConcurrentUseOfOneHandle(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	eng := analysis.EngineFunc(func(ctx context.Context, snap *facts.Snapshot, algo analysis.Algorithm, opts analysis.Options) (*analysis.Output, error) {
		close(started)
		<-unblock
		return &analysis.Output{Algorithm: algo}, nil
	})
	b := newTestBridge(t, WithEngine(eng))
	h := b.Open()
	other := b.Open()

	done := make(chan error, 1)
	go func() {
		_, err := b.Compute(context.Background(), h)
		done <- err
	}()
	<-started

	err := b.RecordUse(h, 1, 1)
	require.Error(t, err)
	assert.True(t, IsConcurrentUse(err))
	assert.True(t, IsConcurrentUse(b.Close(h)))

	// Other handles are unaffected.
	require.NoError(t, b.RecordUse(other, 1, 1))

	close(unblock)
	require.NoError(t, <-done)
	require.NoError(t, b.Close(h))
}

func TestState(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()

	state, err := b.State(h)
	require.NoError(t, err)
	assert.Equal(t, Accumulating, state)
	assert.Equal(t, "accumulating", state.String())

	_, err = b.Compute(context.Background(), h)
	require.NoError(t, err)
	state, err = b.State(h)
	require.NoError(t, err)
	assert.Equal(t, "computed", state.String())

	require.NoError(t, b.Close(h))
	state, err = b.State(h)
	assert.True(t, IsInvalidHandle(err))
	assert.Equal(t, Free, state)
}

func TestLoad(t *testing.T) {
	src := facts.NewStore()
	src.AddCFGEdge(0, 1)
	src.AddVarUsedAt(2, 1)
	src.AddVarUsedAt(2, 0)

	b := newTestBridge(t)
	h := b.Open()
	require.NoError(t, b.RecordUse(h, 9, 9))
	require.NoError(t, b.Load(h, src))

	s := snapshotOf(t, b, h)
	assert.Equal(t, []facts.VarPoint{{Var: 9, Point: 9}, {Var: 2, Point: 1}, {Var: 2, Point: 0}}, s.VarUsedAt)
	assert.Equal(t, []facts.Edge{{From: 0, To: 1}}, s.CFGEdge)

	_, err := b.Compute(context.Background(), h)
	require.NoError(t, err)
	assert.True(t, IsFrozen(b.Load(h, src)))
}

func TestRecordReturnsStoreError(t *testing.T) {
	b := newTestBridge(t)
	h := b.Open()
	require.NoError(t, b.RecordUse(h, 1, 1))

	appendErr := facts.NewStore().AppendRow(facts.CFGEdge, []uint64{1})
	require.Error(t, appendErr)
	err := b.record("load", h, func(*facts.Store) error { return appendErr })
	require.ErrorIs(t, err, appendErr)

	// The handle is released and keeps accepting facts.
	require.NoError(t, b.RecordUse(h, 2, 2))
	assert.Equal(t, []facts.VarPoint{{Var: 1, Point: 1}, {Var: 2, Point: 2}}, snapshotOf(t, b, h).VarUsedAt)
}

type fakeRecorder struct {
	units []Unit
	snaps []*facts.Snapshot
	err   error
}

func (r *fakeRecorder) Record(ctx context.Context, unit Unit, snap *facts.Snapshot, out *analysis.Output) error {
	r.units = append(r.units, unit)
	r.snaps = append(r.snaps, snap)
	return r.err
}

func TestRecorder_ReceivesComputedUnits(t *testing.T) {
	rec := &fakeRecorder{}
	clock := testutil.NewDeterministicClock()
	b := newTestBridge(t, WithRecorder(rec), WithClock(clock))

	h1 := b.OpenNamed("main")
	h2 := b.Open()
	require.NoError(t, b.RecordUse(h1, 1, 1))

	_, err := b.Compute(context.Background(), h2)
	require.NoError(t, err)
	_, err = b.Compute(context.Background(), h1)
	require.NoError(t, err)
	// A repeated compute is not recorded again.
	_, err = b.Compute(context.Background(), h1)
	require.NoError(t, err)

	require.Len(t, rec.units, 2)
	assert.Equal(t, Unit{ID: "unit-0002", Name: "", Seq: 1, Algorithm: analysis.Naive}, rec.units[0])
	assert.Equal(t, Unit{ID: "unit-0001", Name: "main", Seq: 2, Algorithm: analysis.Naive}, rec.units[1])
	assert.Equal(t, 1, rec.snaps[1].Len())

	id, name, err := b.Unit(h1)
	require.NoError(t, err)
	assert.Equal(t, "unit-0001", id)
	assert.Equal(t, "main", name)
}

func TestRecorder_FailureKeepsResult(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	b := newTestBridge(t, WithRecorder(rec))
	h := b.Open()

	_, err := b.Compute(context.Background(), h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	out, ok, err := b.Result(h)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, out)
	assert.Equal(t, float64(1), promtestutil.ToFloat64(b.Metrics().recorderFailures))
}

func TestMetrics(t *testing.T) {
	b := newTestBridge(t)
	m := b.Metrics()

	h := b.Open()
	require.NoError(t, b.RecordUse(h, 1, 1))
	require.NoError(t, b.RecordUse(h, 2, 1))
	require.NoError(t, b.RecordBorrow(h, 1, 1, 1))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.openHandles))

	_, err := b.Compute(context.Background(), h)
	require.NoError(t, err)
	assert.True(t, IsFrozen(b.RecordUse(h, 3, 3)))
	require.NoError(t, b.Close(h))
	assert.True(t, IsInvalidHandle(b.Close(h)))

	assert.Equal(t, float64(2), promtestutil.ToFloat64(m.factsRecorded.WithLabelValues("var_used_at")))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.factsRecorded.WithLabelValues("loan_issued_at")))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.computations.WithLabelValues("naive", "ok")))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.contractErrors.WithLabelValues("FROZEN")))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.contractErrors.WithLabelValues("INVALID_HANDLE")))
	assert.Equal(t, float64(0), promtestutil.ToFloat64(m.openHandles))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestContractError_Message(t *testing.T) {
	err := newFrozenError("record_use", Handle{Index: 2, Generation: 3})
	assert.Equal(t, "FROZEN: record_use: facts cannot be recorded after compute (handle=2.3)", err.Error())

	zero := newInvalidHandleError("close", Handle{})
	assert.Contains(t, zero.Error(), "zero handle")

	wrapped := errors.Join(errors.New("outer"), newConcurrentUseError("compute", Handle{Index: 1, Generation: 1}))
	assert.True(t, IsConcurrentUse(wrapped))
	assert.False(t, IsFrozen(wrapped))
	assert.False(t, IsInvalidHandle(errors.New("plain")))
}
