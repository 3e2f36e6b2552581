package facts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDirReadDir_RoundTrip(t *testing.T) {
	s := NewStore()
	s.AddLoanIssuedAt(1, 0, 3)
	s.AddCFGEdge(0, 1)
	s.AddCFGEdge(1, 2)
	s.AddVarUsedAt(4, 18446744073709551615)
	s.AddUniversalRegion(0)
	s.AddPathIsVar(2, 2)

	dir := filepath.Join(t.TempDir(), "fn")
	require.NoError(t, WriteDir(dir, Freeze(s)))

	for _, r := range Relations() {
		_, err := os.Stat(filepath.Join(dir, r.Name()+FileSuffix))
		assert.NoError(t, err, "missing %s", r.Name())
	}

	loaded, err := ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, Freeze(s).Hash(), Freeze(loaded).Hash())
	assert.Equal(t, s.CFGEdge, loaded.CFGEdge)
}

func TestEncodeRows_Format(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, EncodeRows(&sb, [][]uint64{{1, 2, 3}, {4, 5, 6}}))
	assert.Equal(t, "1\t2\t3\n4\t5\t6\n", sb.String())
}

func TestReadDir_MissingFilesAreEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "var_used_at.facts"), []byte("1\t10\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("ignored"), 0o644))

	s, err := ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []VarPoint{{Var: 1, Point: 10}}, s.VarUsedAt)
	assert.Equal(t, 1, s.Len())
}

func TestReadDir_AcceptsQuotedFieldsAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	content := "\"1\"\t\"10\"\n\n2\t20\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "var_defined_at.facts"), []byte(content), 0o644))

	s, err := ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []VarPoint{{Var: 1, Point: 10}, {Var: 2, Point: 20}}, s.VarDefinedAt)
}

func TestReadDir_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
		message string
	}{
		{"wrong arity", "1\t2\t3\n", 1, "var_used_at expects 2 fields, got 3"},
		{"not a number", "1\t10\nx\t2\n", 2, `field 1: invalid atom "x"`},
		{"negative", "-1\t2\n", 1, "invalid atom"},
		{"open quote only", "\"12\t2\n", 1, "field 1: invalid atom"},
		{"trailing quotes", "1\t12\"\"\n", 1, "field 2: invalid atom"},
		{"lone quote", "\"\t2\n", 1, "field 1: invalid atom"},
		{"doubled pair", "\"\"1\"\"\t2\n", 1, "field 1: invalid atom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "var_used_at.facts"), []byte(tt.content), 0o644))

			_, err := ReadDir(dir)
			require.Error(t, err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
			assert.Contains(t, pe.Message, tt.message)
		})
	}
}

func TestReadDir_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := ReadDir(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	_, err = ReadDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
