package engine

import (
	"fmt"

	"sdrf-pipelines/sdrfcheck/pkg/report"
	"sdrf-pipelines/sdrfcheck/pkg/template"
)

// StructureValidator is the validator name carried by header findings.
const StructureValidator = "structure"

// BoundColumn is a declared column present in the table.
type BoundColumn struct {
	// Index is the column's declaration position in the resolved template.
	Index int
	Spec  *template.ColumnSpec
	// Positions are the header positions holding this column, left to right.
	Positions []int
}

// Binding maps a table's headers onto a resolved template.
type Binding struct {
	// Columns lists the declared columns found in the headers, in
	// declaration order.
	Columns []BoundColumn

	// Unrecognized lists distinct headers that match no declared column,
	// in order of first appearance.
	Unrecognized []string

	// Findings are the structural findings: missing, duplicated and
	// unrecognized columns.
	Findings []report.Finding
}

// Match binds headers to the columns of resolved and reports structural
// problems. Columns are visited in declaration order; unrecognized headers
// are reported after them.
func Match(resolved *template.Resolved, headers []string) *Binding {
	positions := make(map[string][]int, len(headers))
	for i, h := range headers {
		positions[h] = append(positions[h], i)
	}

	b := &Binding{}
	for i := range resolved.Columns {
		spec := &resolved.Columns[i]
		pos := positions[spec.Name]

		switch {
		case len(pos) == 0:
			switch spec.Requirement {
			case template.RequirementRequired:
				b.Findings = append(b.Findings, report.ColumnFinding(report.SeverityError, StructureValidator, spec.Name,
					fmt.Sprintf("missing required column %q", spec.Name)))
			case template.RequirementRecommended:
				b.Findings = append(b.Findings, report.ColumnFinding(report.SeverityWarning, StructureValidator, spec.Name,
					fmt.Sprintf("missing recommended column %q", spec.Name)))
			}
			continue
		case len(pos) > 1 && spec.Cardinality == template.CardinalityUnique:
			b.Findings = append(b.Findings, report.ColumnFinding(report.SeverityError, StructureValidator, spec.Name,
				fmt.Sprintf("duplicate unique column %q (%d occurrences)", spec.Name, len(pos))))
		}

		b.Columns = append(b.Columns, BoundColumn{Index: i, Spec: spec, Positions: pos})
	}

	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if seen[h] || resolved.ColumnIndex(h) >= 0 {
			continue
		}
		seen[h] = true
		b.Unrecognized = append(b.Unrecognized, h)
		b.Findings = append(b.Findings, report.ColumnFinding(report.SeverityWarning, StructureValidator, h,
			fmt.Sprintf("unrecognized column %q", h)))
	}

	return b
}

// Column returns the binding of a declared column.
func (b *Binding) Column(name string) (BoundColumn, bool) {
	for _, c := range b.Columns {
		if c.Spec.Name == name {
			return c, true
		}
	}
	return BoundColumn{}, false
}
