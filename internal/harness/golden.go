package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/nllfacts/internal/analysis"
)

// GoldenDir is where golden files live, relative to the test package.
const GoldenDir = "testdata/golden"

// goldenView is the part of a Result compared against golden files.
// Intermediate relations are left out so golden files only change when
// reported errors or the call trace change.
type goldenView struct {
	Scenario string                  `json:"scenario"`
	Pass     bool                    `json:"pass"`
	Trace    []TraceEvent            `json:"trace"`
	Errors   map[string]goldenErrors `json:"errors"`
}

type goldenErrors struct {
	Loan   []analysis.LoanError   `json:"loan"`
	Subset []analysis.SubsetError `json:"subset"`
	Move   []analysis.MoveError   `json:"move"`
}

// GoldenBytes renders the golden form of a result. Map keys are sorted by
// encoding/json, so the output is byte-stable.
func GoldenBytes(name string, result *Result) ([]byte, error) {
	view := goldenView{
		Scenario: name,
		Pass:     result.Pass,
		Trace:    result.Trace,
		Errors:   make(map[string]goldenErrors, len(result.Outputs)),
	}
	for h, out := range result.Outputs {
		view.Errors[h] = goldenErrors{Loan: out.Errors, Subset: out.SubsetErrors, Move: out.MoveErrors}
	}
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal golden view: %w", err)
	}
	return append(data, '\n'), nil
}

// RunWithGolden runs a scenario, requires it to pass, and compares its
// golden form against testdata/golden/<name>.golden.
//
// Regenerate with: go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	if !result.Pass {
		errs := append([]string(nil), result.Errors...)
		sort.Strings(errs)
		t.Fatalf("scenario %s failed: %v", scenario.Name, errs)
	}
	AssertGolden(t, scenario.Name, result)
	return result
}

// AssertGolden compares a result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := GoldenBytes(name, result)
	if err != nil {
		t.Fatalf("%v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
