package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nllfacts/internal/analysis"
	"github.com/roach88/nllfacts/internal/bridge"
	"github.com/roach88/nllfacts/internal/facts"
)

// Scenario is one call-sequence test.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Algorithm selects the analysis variant. Default: naive.
	Algorithm string `yaml:"algorithm,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one bridge call.
type Step struct {
	// Op is open, record, compute or close.
	Op string `yaml:"op"`

	// Handle is the scenario-local handle name.
	Handle string `yaml:"handle"`

	// Relation and Tuple describe the fact of a record step.
	Relation string   `yaml:"relation,omitempty"`
	Tuple    []uint64 `yaml:"tuple,omitempty"`

	// Expect checks the Result Set of a compute step.
	Expect *Expect `yaml:"expect,omitempty"`

	// ExpectError is the contract error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Expect lists the errors a compute step must report.
// A nil list is not checked; an empty list requires no errors of that kind.
type Expect struct {
	Errors       [][]uint64 `yaml:"errors,omitempty"`        // [loan, point]
	SubsetErrors [][]uint64 `yaml:"subset_errors,omitempty"` // [sub, sup, point]
	MoveErrors   [][]uint64 `yaml:"move_errors,omitempty"`   // [path, point]
}

// Assertion is checked after all steps ran.
type Assertion struct {
	// Type is facts, live_handles or no_errors.
	Type string `yaml:"type"`

	// Handle names the handle for facts and no_errors.
	Handle string `yaml:"handle,omitempty"`

	// Relation and Rows are the exact expected contents for facts.
	Relation string     `yaml:"relation,omitempty"`
	Rows     [][]uint64 `yaml:"rows,omitempty"`

	// Count is the expected number of open handles for live_handles.
	Count int `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpOpen    = "open"
	OpRecord  = "record"
	OpCompute = "compute"
	OpClose   = "close"
)

// Assertion types.
const (
	AssertFacts       = "facts"
	AssertLiveHandles = "live_handles"
	AssertNoErrors    = "no_errors"
)

var contractCodes = map[string]bool{
	string(bridge.ErrCodeInvalidHandle): true,
	string(bridge.ErrCodeFrozen):        true,
	string(bridge.ErrCodeConcurrentUse): true,
}

// LoadScenario reads and validates a scenario file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios expands paths into scenario files. Directories contribute
// their *.yaml and *.yml files, sorted by name.
func FindScenarios(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("scenario dir: %w", err)
		}
		var found []string
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Algorithm != "" {
		if _, err := analysis.ParseAlgorithm(s.Algorithm); err != nil {
			return err
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step *Step) error {
	if step.Handle == "" {
		return fmt.Errorf("steps[%d]: handle is required", i)
	}
	if step.ExpectError != "" && !contractCodes[step.ExpectError] {
		return fmt.Errorf("steps[%d]: unknown expect_error %q", i, step.ExpectError)
	}

	switch step.Op {
	case OpOpen, OpClose:
	case OpRecord:
		r, ok := facts.ParseRelation(step.Relation)
		if !ok {
			return fmt.Errorf("steps[%d]: unknown relation %q", i, step.Relation)
		}
		if len(step.Tuple) != r.Arity() {
			return fmt.Errorf("steps[%d]: %s expects %d atoms, got %d", i, r, r.Arity(), len(step.Tuple))
		}
	case OpCompute:
		if step.Expect != nil {
			if err := checkWidths(step.Expect.Errors, 2); err != nil {
				return fmt.Errorf("steps[%d].expect.errors: %w", i, err)
			}
			if err := checkWidths(step.Expect.SubsetErrors, 3); err != nil {
				return fmt.Errorf("steps[%d].expect.subset_errors: %w", i, err)
			}
			if err := checkWidths(step.Expect.MoveErrors, 2); err != nil {
				return fmt.Errorf("steps[%d].expect.move_errors: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}
	if step.Op != OpCompute && step.Expect != nil {
		return fmt.Errorf("steps[%d]: expect is only valid on compute", i)
	}
	return nil
}

func validateAssertion(i int, a *Assertion) error {
	switch a.Type {
	case AssertFacts:
		if a.Handle == "" {
			return fmt.Errorf("assertions[%d]: handle is required for facts", i)
		}
		r, ok := facts.ParseRelation(a.Relation)
		if !ok {
			return fmt.Errorf("assertions[%d]: unknown relation %q", i, a.Relation)
		}
		if err := checkWidths(a.Rows, r.Arity()); err != nil {
			return fmt.Errorf("assertions[%d].rows: %w", i, err)
		}
	case AssertLiveHandles:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", i)
		}
	case AssertNoErrors:
		if a.Handle == "" {
			return fmt.Errorf("assertions[%d]: handle is required for no_errors", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}

func checkWidths(rows [][]uint64, width int) error {
	for j, row := range rows {
		if len(row) != width {
			return fmt.Errorf("[%d] has %d atoms, want %d", j, len(row), width)
		}
	}
	return nil
}
