package sdrf

import (
	"fmt"
	"strings"
)

// Sentinel tokens meaning "attribute does not apply" and "attribute applies
// but the value is unknown".
const (
	NotApplicable = "not applicable"
	NotAvailable  = "not available"
)

// Table is a parsed SDRF file: a header row and data rows. Repeated headers
// are kept in place, so a multiple-cardinality column appears once per
// occurrence. A Table is never mutated by validation.
type Table struct {
	headers []string
	rows    [][]string
	index   map[string][]int

	// Source names where the table came from (file path or "-").
	Source string
}

// NewTable builds a table. Rows shorter than the header are padded with
// empty values; longer rows are rejected.
func NewTable(headers []string, rows [][]string) (*Table, error) {
	return newTable(headers, rows, nil)
}

// newTable builds a table; lines holds the file line of each row when known.
func newTable(headers []string, rows [][]string, lines []int) (*Table, error) {
	t := &Table{
		headers: append([]string(nil), headers...),
		rows:    make([][]string, 0, len(rows)),
		index:   make(map[string][]int, len(headers)),
	}
	for i, h := range t.headers {
		t.index[h] = append(t.index[h], i)
	}

	for i, row := range rows {
		if len(row) > len(headers) {
			line := i + 2
			if i < len(lines) {
				line = lines[i]
			}
			return nil, &FormatError{
				Line:    line,
				Message: fmt.Sprintf("row has %d values but the header has %d columns", len(row), len(headers)),
			}
		}
		padded := make([]string, len(headers))
		copy(padded, row)
		t.rows = append(t.rows, padded)
	}
	return t, nil
}

// Headers returns the header row in file order, repeats included.
func (t *Table) Headers() []string {
	return append([]string(nil), t.headers...)
}

// DistinctHeaders returns each header once, in order of first appearance.
func (t *Table) DistinctHeaders() []string {
	seen := make(map[string]bool, len(t.headers))
	out := make([]string, 0, len(t.headers))
	for _, h := range t.headers {
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

// Positions returns the header indexes carrying name, left to right.
func (t *Table) Positions(name string) []int {
	return append([]int(nil), t.index[name]...)
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// NumColumns returns the number of header cells, repeats included.
func (t *Table) NumColumns() int {
	return len(t.headers)
}

// Cell returns the raw value at a data row and header position.
func (t *Table) Cell(row, col int) string {
	return t.rows[row][col]
}

// Values returns the values of every occurrence of name in row.
func (t *Table) Values(row int, name string) []string {
	positions := t.index[name]
	out := make([]string, len(positions))
	for i, p := range positions {
		out[i] = t.rows[row][p]
	}
	return out
}

// Record is one row keyed by header name. Each header maps to its values in
// left-to-right order: exactly one for a header that appears once, one per
// occurrence otherwise.
type Record map[string][]string

// Record returns row i as a Record.
func (t *Table) Record(i int) Record {
	rec := make(Record, len(t.index))
	for name := range t.index {
		rec[name] = t.Values(i, name)
	}
	return rec
}

// IsNotApplicable reports whether v is the "not applicable" token.
func IsNotApplicable(v string) bool {
	return strings.EqualFold(v, NotApplicable)
}

// IsNotAvailable reports whether v is the "not available" token.
func IsNotAvailable(v string) bool {
	return strings.EqualFold(v, NotAvailable)
}
