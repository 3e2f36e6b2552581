package harness

import "github.com/roach88/nllfacts/internal/analysis"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq      int64             `json:"seq"`
	Op       string            `json:"op"`
	Handle   string            `json:"handle"`
	Relation string            `json:"relation,omitempty"`
	Tuple    []uint64          `json:"tuple,omitempty"`
	Error    string            `json:"error,omitempty"`
	Summary  *analysis.Summary `json:"summary,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Outputs holds the last Result Set computed for each handle name.
	Outputs map[string]*analysis.Output `json:"outputs"`

	// Errors holds failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Outputs: make(map[string]*analysis.Output),
		Errors:  []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
