package harness

import (
	"fmt"

	"github.com/roach88/nllfacts/internal/facts"
)

// check evaluates one post-run assertion.
func (r *runner) check(a Assertion) error {
	switch a.Type {
	case AssertFacts:
		return r.checkFacts(a)
	case AssertLiveHandles:
		if got := r.b.Live(); got != a.Count {
			return fmt.Errorf("expected %d live handles, got %d", a.Count, got)
		}
		return nil
	case AssertNoErrors:
		out, ok := r.result.Outputs[a.Handle]
		if !ok {
			return fmt.Errorf("handle %q was never computed", a.Handle)
		}
		if out.HasErrors() {
			return fmt.Errorf("handle %q reported %s", a.Handle, out.Summary())
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// checkFacts compares a relation of the handle's captured facts against the
// expected rows, in recording order.
func (r *runner) checkFacts(a Assertion) error {
	snap, ok := r.captured[a.Handle]
	if !ok {
		return fmt.Errorf("handle %q has no recorded facts", a.Handle)
	}
	rel, _ := facts.ParseRelation(a.Relation)
	if err := rowsEqual(a.Rows, snap.Rows(rel)); err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	return nil
}

func rowsEqual(want, got [][]uint64) error {
	if len(want) != len(got) {
		return fmt.Errorf("expected %d rows %v, got %d rows %v", len(want), want, len(got), got)
	}
	for i := range want {
		if len(want[i]) != len(got[i]) {
			return fmt.Errorf("row %d: expected %v, got %v", i, want[i], got[i])
		}
		for j := range want[i] {
			if want[i][j] != got[i][j] {
				return fmt.Errorf("row %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	}
	return nil
}
