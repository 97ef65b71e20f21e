package rowsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\uFEFF"

// SourceReadError reports a missing or unreadable input table.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// Row is one data record keyed by the header's field names.
type Row struct {
	fields []string
	values []string
}

// NewRow builds a Row from parallel field and value slices.
func NewRow(fields, values []string) Row {
	return Row{fields: fields, values: values}
}

// Get returns the value for field. ok is false when the header has no such
// field or the record is shorter than the header.
func (r Row) Get(field string) (string, bool) {
	for i, f := range r.fields {
		if f == field {
			if i >= len(r.values) {
				return "", false
			}
			return r.values[i], true
		}
	}
	return "", false
}

// Fields returns the header field names in file order.
func (r Row) Fields() []string {
	return r.fields
}

// Scanner yields rows of a delimited table one at a time, in file order.
// It mirrors bufio.Scanner: call Scan until it returns false, then check Err.
type Scanner struct {
	path   string
	file   *os.File
	reader *csv.Reader
	header []string
	row    Row
	err    error
	done   bool
}

// Open opens path and reads its header row.
func Open(path string, delim rune) (*Scanner, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &SourceReadError{Path: path, Err: err}
	}

	reader := csv.NewReader(file)
	reader.Comma = delim
	reader.LazyQuotes = true // quotes inside unquoted fields are literal
	reader.FieldsPerRecord = -1 // short rows are the caller's concern

	header, err := reader.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		file.Close()
		return nil, &SourceReadError{Path: path, Err: fmt.Errorf("read header: %w", err)}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	return &Scanner{
		path:   path,
		file:   file,
		reader: reader,
		header: header,
		done:   len(header) == 0,
	}, nil
}

// Scan advances to the next row.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	record, err := s.reader.Read()
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = &SourceReadError{Path: s.path, Err: err}
		}
		return false
	}
	s.row = Row{fields: s.header, values: record}
	return true
}

// Row returns the row read by the last successful Scan.
func (s *Scanner) Row() Row {
	return s.row
}

// Err returns the first non-EOF error encountered.
func (s *Scanner) Err() error {
	return s.err
}

// Close releases the underlying file. Safe to call more than once.
func (s *Scanner) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Each calls fn for every row of the table at path. The file is closed on
// every return path; the first error from fn stops the scan.
func Each(path string, delim rune, fn func(Row) error) error {
	s, err := Open(path, delim)
	if err != nil {
		return err
	}
	defer s.Close()

	for s.Scan() {
		if err := fn(s.Row()); err != nil {
			return err
		}
	}
	return s.Err()
}
