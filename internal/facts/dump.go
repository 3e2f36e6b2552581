package facts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileSuffix is the extension of every relation file in a dump directory.
const FileSuffix = ".facts"

// ParseError reports a malformed line in a .facts file.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// WriteDir dumps every relation of snap into dir, creating it if needed.
// Empty relations are written as empty files so the directory always lists
// the complete schema.
func WriteDir(dir string, snap *Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write facts: %w", err)
	}
	for _, r := range Relations() {
		path := filepath.Join(dir, r.Name()+FileSuffix)
		if err := writeRelation(path, snap.Rows(r)); err != nil {
			return fmt.Errorf("write facts %s: %w", r.Name(), err)
		}
	}
	return nil
}

func writeRelation(path string, rows [][]uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := EncodeRows(w, rows); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeRows writes rows in .facts format: tab-separated decimal fields,
// one row per line.
func EncodeRows(w io.Writer, rows [][]uint64) error {
	var sb strings.Builder
	for _, row := range rows {
		sb.Reset()
		for i, v := range row {
			if i > 0 {
				sb.WriteByte('\t')
			}
			sb.WriteString(strconv.FormatUint(v, 10))
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// ReadDir loads a dump directory into a new Store.
//
// Missing relation files are treated as empty relations and files that do
// not name a known relation are ignored. Returns an error if dir does not
// exist or a relation file is malformed.
func ReadDir(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("read facts: not a directory: %s", dir)
	}

	s := NewStore()
	for _, r := range Relations() {
		path := filepath.Join(dir, r.Name()+FileSuffix)
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read facts %s: %w", r.Name(), err)
		}
		err = DecodeRows(f, path, r, s)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DecodeRows parses .facts lines for relation r and appends them to s.
// Blank lines are skipped. name is used in error messages only.
func DecodeRows(rd io.Reader, name string, r Relation, s *Store) error {
	sc := bufio.NewScanner(rd)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != r.Arity() {
			return &ParseError{
				File:    name,
				Line:    line,
				Message: fmt.Sprintf("%s expects %d fields, got %d", r.Name(), r.Arity(), len(fields)),
			}
		}
		row := make([]uint64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseUint(unquote(strings.TrimSpace(field)), 10, 64)
			if err != nil {
				return &ParseError{
					File:    name,
					Line:    line,
					Message: fmt.Sprintf("field %d: invalid atom %q", i+1, field),
				}
			}
			row[i] = v
		}
		if err := s.AppendRow(r, row); err != nil {
			return &ParseError{File: name, Line: line, Message: err.Error()}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read facts %s: %w", name, err)
	}
	return nil
}

// unquote strips one pair of surrounding double quotes.
func unquote(field string) string {
	if len(field) >= 2 && field[0] == '"' && field[len(field)-1] == '"' {
		return field[1 : len(field)-1]
	}
	return field
}
