package report

import (
	"slices"
	"sort"
)

// Process exit codes for a validation run.
const (
	ExitCodeValid   = 0
	ExitCodeInvalid = 1
	ExitCodeFatal   = 2
)

// Counts holds finding totals by severity.
type Counts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

func (c *Counts) add(sev Severity) {
	switch sev {
	case SeverityError:
		c.Errors++
	case SeverityWarning:
		c.Warnings++
	}
}

// Total returns errors plus warnings.
func (c Counts) Total() int {
	return c.Errors + c.Warnings
}

// Report is the ordered, aggregated result of one validation run.
type Report struct {
	Template string    `json:"template"`
	Source   string    `json:"source,omitempty"`
	Valid    bool      `json:"valid"`
	Counts   Counts    `json:"counts"`
	Findings []Finding `json:"findings"`

	// ByColumn groups finding counts by column; table-level findings
	// without a column are not included.
	ByColumn map[string]Counts `json:"by_column,omitempty"`

	TotalRows     int `json:"total_rows"`
	RowsEvaluated int `json:"rows_evaluated"`

	// Incomplete is set when evaluation stopped early (cancellation or the
	// error limit). Findings for the rows that were evaluated are complete.
	Incomplete       bool   `json:"incomplete"`
	IncompleteReason string `json:"incomplete_reason,omitempty"`

	columnOrder []string
}

// Option configures New.
type Option func(*Report)

// WithColumnOrder sets the declared column order used to order findings
// within a row. Columns not listed sort after listed ones.
func WithColumnOrder(columns []string) Option {
	return func(r *Report) {
		r.columnOrder = slices.Clone(columns)
	}
}

// WithSource records where the validated table came from.
func WithSource(source string) Option {
	return func(r *Report) {
		r.Source = source
	}
}

// WithRows records how many rows the table has and how many were evaluated.
func WithRows(total, evaluated int) Option {
	return func(r *Report) {
		r.TotalRows = total
		r.RowsEvaluated = evaluated
	}
}

// WithIncomplete marks the report as incomplete.
func WithIncomplete(reason string) Option {
	return func(r *Report) {
		r.Incomplete = true
		r.IncompleteReason = reason
	}
}

// New aggregates findings into a report. Ordering is deterministic:
// findings without a row first, in emission order; then by row; within a
// row by declared column order; ties keep emission order.
func New(template string, findings []Finding, opts ...Option) *Report {
	r := &Report{
		Template: template,
		Findings: slices.Clone(findings),
		ByColumn: make(map[string]Counts),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Findings == nil {
		r.Findings = []Finding{}
	}

	rank := make(map[string]int, len(r.columnOrder))
	for i, c := range r.columnOrder {
		if _, ok := rank[c]; !ok {
			rank[c] = i
		}
	}
	columnRank := func(c string) int {
		if i, ok := rank[c]; ok {
			return i
		}
		return len(rank)
	}

	sort.SliceStable(r.Findings, func(i, j int) bool {
		a, b := r.Findings[i], r.Findings[j]
		if ra, rb := a.RowIndex(), b.RowIndex(); ra != rb {
			return ra < rb
		}
		if a.Row == nil {
			return false
		}
		return columnRank(a.Column) < columnRank(b.Column)
	})

	for _, f := range r.Findings {
		r.Counts.add(f.Severity)
		if f.Column != "" {
			c := r.ByColumn[f.Column]
			c.add(f.Severity)
			r.ByColumn[f.Column] = c
		}
	}
	r.Valid = r.Counts.Errors == 0

	return r
}

// IsValid reports whether the report holds no error-severity findings.
// Warnings never fail validation.
func (r *Report) IsValid() bool {
	return r.Counts.Errors == 0
}

// ExitCode maps the report to a process exit code.
func (r *Report) ExitCode() int {
	if r.IsValid() {
		return ExitCodeValid
	}
	return ExitCodeInvalid
}

// Errors returns the error-severity findings.
func (r *Report) Errors() []Finding {
	return r.Filter(SeverityError)
}

// Warnings returns the warning-severity findings.
func (r *Report) Warnings() []Finding {
	return r.Filter(SeverityWarning)
}

// Filter returns the findings of the given severity, in report order.
func (r *Report) Filter(sev Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// ForColumn returns the findings attached to a column, in report order.
func (r *Report) ForColumn(column string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Column == column {
			out = append(out, f)
		}
	}
	return out
}

// ByValidator returns finding counts grouped by validator name.
func (r *Report) ByValidator() map[string]Counts {
	out := make(map[string]Counts)
	for _, f := range r.Findings {
		c := out[f.Validator]
		c.add(f.Severity)
		out[f.Validator] = c
	}
	return out
}
