package validation

import (
	"fmt"
	"strconv"

	"sdrf-pipelines/sdrfcheck/pkg/report"
	"sdrf-pipelines/sdrfcheck/pkg/sdrf"
	"sdrf-pipelines/sdrfcheck/pkg/template"
)

// CheckSentinel handles the reserved "not applicable" and "not available"
// values, matched case-insensitively. handled is true when value is a sentinel, in which case no other
// cell check applies to it; the returned finding is non-nil only when the
// column does not allow that sentinel.
func CheckSentinel(spec *template.ColumnSpec, row int, value string) (f *report.Finding, handled bool) {
	var allowed bool
	switch {
	case sdrf.IsNotApplicable(value):
		allowed = spec.AllowNotApplicable
	case sdrf.IsNotAvailable(value):
		allowed = spec.AllowNotAvailable
	default:
		return nil, false
	}
	if allowed {
		return nil, true
	}
	finding := report.CellFinding(report.SeverityError, SentinelCheck, row, spec.Name, value,
		fmt.Sprintf("%q is not allowed in column %q", value, spec.Name))
	return &finding, true
}

// CheckType applies the column's declared value type.
func CheckType(spec *template.ColumnSpec, row int, value string) *report.Finding {
	switch spec.Type {
	case template.TypeInteger:
		if _, err := strconv.Atoi(value); err != nil {
			f := report.CellFinding(report.SeverityError, TypeCheck, row, spec.Name, value,
				fmt.Sprintf("value %q is not an integer", value))
			return &f
		}
	}
	return nil
}
