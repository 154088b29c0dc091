// Package sheet holds the CSV plumbing shared by the export readers.
package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumns marks an export lacking a required column.
var ErrMissingColumns = errors.New("missing columns")

var bom = []byte("\ufeff")

// RowError is a single skipped row. Readers join them into one error and
// still return the rows they could read.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }

// Partial reports whether err only carries skipped rows, as opposed to a
// failure that aborted the whole load.
func Partial(err error) bool {
	if err == nil {
		return false
	}
	var re *RowError
	if !errors.As(err, &re) {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !errors.As(e, &re) {
				return false
			}
		}
	}
	return true
}

// NewReader returns a lenient CSV reader: ragged rows, stray quotes and a
// leading byte-order mark are all accepted.
func NewReader(r io.Reader, comma rune) *csv.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(bom)); err == nil && bytes.Equal(b, bom) {
		br.Discard(len(bom))
	}
	c := csv.NewReader(br)
	c.Comma = comma
	c.FieldsPerRecord = -1
	c.LazyQuotes = true
	c.TrimLeadingSpace = true
	return c
}

// Header trims the header cells in place and indexes them by name. The
// first occurrence of a duplicated name wins.
func Header(rec []string) map[string]int {
	idx := make(map[string]int, len(rec))
	for i, h := range rec {
		h = strings.TrimSpace(h)
		rec[i] = h
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

// Require fails with ErrMissingColumns naming every absent column.
func Require(idx map[string]int, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// Cell returns the trimmed value of col, or "" for short rows.
func Cell(rec []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
