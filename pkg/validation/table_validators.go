package validation

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"sdrf-pipelines/sdrfcheck/pkg/report"
)

type minColumnsValidator struct {
	min int
}

func newMinColumns(params Params, _ *Env) (Validator, error) {
	n, err := params.RequiredInt("min_columns")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, &paramError{param: "min_columns", message: fmt.Sprintf("must not be negative, got %d", n)}
	}
	return &minColumnsValidator{min: n}, nil
}

func (v *minColumnsValidator) Name() string { return MinColumns }

func (v *minColumnsValidator) ValidateTable(_ context.Context, in TableInput) []report.Finding {
	n := len(in.Table.DistinctHeaders())
	if n >= v.min {
		return nil
	}
	return []report.Finding{
		report.TableFinding(report.SeverityError, MinColumns,
			fmt.Sprintf("table has %d columns, fewer than %d columns required", n, v.min)),
	}
}

type trailingWhitespaceValidator struct{}

func newTrailingWhitespace(Params, *Env) (Validator, error) {
	return trailingWhitespaceValidator{}, nil
}

func (trailingWhitespaceValidator) Name() string { return TrailingWhitespace }

func hasOuterSpace(s string) bool {
	if s == "" {
		return false
	}
	return strings.TrimFunc(s, unicode.IsSpace) != s
}

const whitespaceMessage = "value has leading or trailing whitespace"

func (trailingWhitespaceValidator) ValidateTable(_ context.Context, in TableInput) []report.Finding {
	var findings []report.Finding
	headers := in.Table.Headers()
	for row := 0; row < in.Table.NumRows(); row++ {
		for col, name := range headers {
			value := in.Table.Cell(row, col)
			if hasOuterSpace(value) {
				findings = append(findings, report.CellFinding(report.SeverityError,
					TrailingWhitespace, row, name, value, whitespaceMessage))
			}
		}
	}
	return findings
}

func (trailingWhitespaceValidator) ValidateCell(_ context.Context, c Cell) []report.Finding {
	if !hasOuterSpace(c.Value) {
		return nil
	}
	return []report.Finding{
		report.CellFinding(report.SeverityError, TrailingWhitespace, c.Row, c.Column, c.Value, whitespaceMessage),
	}
}

type columnOrderValidator struct{}

func newColumnOrder(Params, *Env) (Validator, error) {
	return columnOrderValidator{}, nil
}

func (columnOrderValidator) Name() string { return ColumnOrder }

// ValidateTable compares first occurrences of the required and
// recommended columns present in the table. A column is out of order when
// it is found before a column declared ahead of it.
func (columnOrderValidator) ValidateTable(_ context.Context, in TableInput) []report.Finding {
	var findings []report.Finding
	maxPos := -1
	maxName := ""
	for _, spec := range in.Template.Columns {
		if !spec.IsStructural() {
			continue
		}
		positions := in.Table.Positions(spec.Name)
		if len(positions) == 0 {
			continue
		}
		pos := positions[0]
		if pos < maxPos {
			findings = append(findings, report.ColumnFinding(report.SeverityError, ColumnOrder, spec.Name,
				fmt.Sprintf("column %q should appear after column %q", spec.Name, maxName)))
			continue
		}
		maxPos = pos
		maxName = spec.Name
	}
	return findings
}

type emptyCellsValidator struct{}

func newEmptyCells(Params, *Env) (Validator, error) {
	return emptyCellsValidator{}, nil
}

func (emptyCellsValidator) Name() string { return EmptyCells }

func (emptyCellsValidator) ValidateTable(_ context.Context, in TableInput) []report.Finding {
	var findings []report.Finding
	headers := in.Table.Headers()
	for row := 0; row < in.Table.NumRows(); row++ {
		for col, name := range headers {
			if in.Table.Cell(row, col) == "" {
				findings = append(findings, report.CellFinding(report.SeverityError,
					EmptyCells, row, name, "", "empty value"))
			}
		}
	}
	return findings
}
