package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/nllfacts/internal/analysis"
)

// marshalOutput converts an Output to JSON TEXT for storage.
// HTML escaping is disabled so the stored text matches Output.Hash input.
func marshalOutput(out *analysis.Output) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalOutput(data string) (*analysis.Output, error) {
	var out analysis.Output
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}
	if out.Errors == nil {
		out.Errors = []analysis.LoanError{}
	}
	if out.SubsetErrors == nil {
		out.SubsetErrors = []analysis.SubsetError{}
	}
	if out.MoveErrors == nil {
		out.MoveErrors = []analysis.MoveError{}
	}
	return &out, nil
}

// normalizeName returns the NFC form of a unit name, so names produced by
// frontends with different Unicode normalization compare equal.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// SQLite integers are signed; atoms keep their bit pattern.
func toColumn(v uint64) int64   { return int64(v) }
func fromColumn(v int64) uint64 { return uint64(v) }
