package validation

import (
	"context"
	"strings"

	"sdrf-pipelines/sdrfcheck/pkg/report"
	"sdrf-pipelines/sdrfcheck/pkg/sdrf"
	"sdrf-pipelines/sdrfcheck/pkg/template"
)

// Scope is the granularity a validator can run at.
type Scope uint8

const (
	// ScopeTable validators see the whole table once.
	ScopeTable Scope = 1 << iota

	// ScopeCell validators see one value of one column at a time.
	ScopeCell
)

// Has reports whether s includes other.
func (s Scope) Has(other Scope) bool {
	return s&other != 0
}

// String implements fmt.Stringer.
func (s Scope) String() string {
	var parts []string
	if s.Has(ScopeTable) {
		parts = append(parts, "table")
	}
	if s.Has(ScopeCell) {
		parts = append(parts, "cell")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// TableInput is what a table validator inspects.
type TableInput struct {
	Table    *sdrf.Table
	Template *template.Resolved
}

// Cell is one value presented to a cell validator.
type Cell struct {
	// Row is the 0-based data row.
	Row    int
	Column string
	Value  string
	Spec   *template.ColumnSpec
}

// Validator is a compiled validator instance.
type Validator interface {
	Name() string
}

// TableValidator runs once per table.
type TableValidator interface {
	Validator
	ValidateTable(ctx context.Context, in TableInput) []report.Finding
}

// CellValidator runs once per non-empty, non-sentinel value.
type CellValidator interface {
	Validator
	ValidateCell(ctx context.Context, cell Cell) []report.Finding
}

// Plan is a resolved template compiled against a Registry. It is
// immutable and safe for concurrent use.
type Plan struct {
	Template *template.Resolved
	Table    []TableValidator
	Columns  []ColumnPlan
}

// ColumnPlan holds the compiled cell validators of one declared column.
type ColumnPlan struct {
	Spec       *template.ColumnSpec
	Validators []CellValidator
}

// Column returns the plan for a declared column.
func (p *Plan) Column(name string) (*ColumnPlan, bool) {
	i := p.Template.ColumnIndex(name)
	if i < 0 {
		return nil, false
	}
	return &p.Columns[i], true
}

// CellValidatorCount returns the number of compiled cell validators.
func (p *Plan) CellValidatorCount() int {
	n := 0
	for _, c := range p.Columns {
		n += len(c.Validators)
	}
	return n
}
