package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/roach88/nllfacts/internal/atom"
	"github.com/roach88/nllfacts/internal/facts"
)

// DomainOutput is the domain prefix for Output content hashes.
const DomainOutput = "nllfacts/output/v1"

// LoanError reports a loan invalidated while still live.
type LoanError struct {
	Loan  atom.Loan  `json:"loan"`
	Point atom.Point `json:"point"`
}

// SubsetError reports a subset relation between two placeholder origins that
// the function signature does not declare.
type SubsetError struct {
	Sub   atom.Origin `json:"sub"`
	Sup   atom.Origin `json:"sup"`
	Point atom.Point  `json:"point"`
}

// MoveError reports an access to a path that may be uninitialized.
type MoveError struct {
	Path  atom.Path  `json:"path"`
	Point atom.Point `json:"point"`
}

// OriginLoanPoint is an origin_contains_loan_on_entry tuple.
type OriginLoanPoint struct {
	Origin atom.Origin `json:"origin"`
	Loan   atom.Loan   `json:"loan"`
	Point  atom.Point  `json:"point"`
}

// OriginPoint is an origin_live_on_entry tuple.
type OriginPoint struct {
	Origin atom.Origin `json:"origin"`
	Point  atom.Point  `json:"point"`
}

// Output is the Result Set of one computation.
//
// All slices are sorted, so two Outputs computed from the same snapshot are
// equal under reflect.DeepEqual and hash identically. Intermediate relations
// are only populated in exhaustive mode.
type Output struct {
	Algorithm    Algorithm     `json:"algorithm"`
	Errors       []LoanError   `json:"errors"`
	SubsetErrors []SubsetError `json:"subset_errors"`
	MoveErrors   []MoveError   `json:"move_errors"`

	LoanLiveAt           []facts.LoanPoint  `json:"loan_live_at,omitempty"`
	OriginContainsLoanAt []OriginLoanPoint  `json:"origin_contains_loan_at,omitempty"`
	Subset               []facts.SubsetBase `json:"subset,omitempty"`
	OriginLiveOnEntry    []OriginPoint      `json:"origin_live_on_entry,omitempty"`
	VarLiveOnEntry       []facts.VarPoint   `json:"var_live_on_entry,omitempty"`
}

// HasErrors reports whether any loan, subset or move error was found.
func (o *Output) HasErrors() bool {
	return len(o.Errors) > 0 || len(o.SubsetErrors) > 0 || len(o.MoveErrors) > 0
}

// ErrorsAt returns the loans whose invalidation at p is an error.
func (o *Output) ErrorsAt(p atom.Point) []atom.Loan {
	var loans []atom.Loan
	for _, e := range o.Errors {
		if e.Point == p {
			loans = append(loans, e.Loan)
		}
	}
	return loans
}

// Summary is a compact count of an Output, used for logging and CLI output.
type Summary struct {
	LoanErrors   int `json:"loan_errors"`
	SubsetErrors int `json:"subset_errors"`
	MoveErrors   int `json:"move_errors"`
}

// Summary returns error counts by kind.
func (o *Output) Summary() Summary {
	return Summary{
		LoanErrors:   len(o.Errors),
		SubsetErrors: len(o.SubsetErrors),
		MoveErrors:   len(o.MoveErrors),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("%d loan error(s), %d subset error(s), %d move error(s)",
		s.LoanErrors, s.SubsetErrors, s.MoveErrors)
}

// Hash computes a content hash of the Output.
// Format: SHA256(domain + 0x00 + json(output)). encoding/json is stable here
// because Output contains only structs and sorted slices.
func (o *Output) Hash() (string, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("hash output: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainOutput))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
