package report

import (
	"fmt"
	"strings"
)

// Severity classifies a finding. Only errors make a table invalid.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ParseSeverity converts "error" or "warning" (any case) to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(s)) {
	case SeverityError:
		return SeverityError, nil
	case SeverityWarning:
		return SeverityWarning, nil
	}
	return "", fmt.Errorf("invalid severity %q (valid: error, warning)", s)
}

// Finding is one diagnostic produced by validation. Table-level findings
// carry no row; findings about the table as a whole carry no column either.
type Finding struct {
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Row       *int     `json:"row,omitempty"`
	Column    string   `json:"column,omitempty"`
	Validator string   `json:"validator"`

	// Value is the offending cell value, when there is one.
	Value string `json:"value,omitempty"`

	// Suggestion is an optional hint for fixing the problem.
	Suggestion string `json:"suggestion,omitempty"`
}

// TableFinding creates a finding about the table as a whole.
func TableFinding(sev Severity, validator, message string) Finding {
	return Finding{Severity: sev, Validator: validator, Message: message}
}

// ColumnFinding creates a finding about a column that is not tied to a row.
func ColumnFinding(sev Severity, validator, column, message string) Finding {
	return Finding{Severity: sev, Validator: validator, Column: column, Message: message}
}

// CellFinding creates a finding about one value of one row.
func CellFinding(sev Severity, validator string, row int, column, value, message string) Finding {
	return Finding{
		Severity:  sev,
		Validator: validator,
		Row:       &row,
		Column:    column,
		Value:     value,
		Message:   message,
	}
}

// WithSuggestion returns a copy of f carrying a suggestion.
func (f Finding) WithSuggestion(s string) Finding {
	f.Suggestion = s
	return f
}

// IsTableLevel reports whether the finding is not tied to a row.
func (f Finding) IsTableLevel() bool {
	return f.Row == nil
}

// RowIndex returns the 0-based data row, or -1 for table-level findings.
func (f Finding) RowIndex() int {
	if f.Row == nil {
		return -1
	}
	return *f.Row
}

// String formats the finding for display. Rows are shown 1-based, counting
// data rows only.
func (f Finding) String() string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(string(f.Severity)))
	sb.WriteString(": ")
	if f.Row != nil {
		fmt.Fprintf(&sb, "row %d, ", *f.Row+1)
	}
	if f.Column != "" {
		fmt.Fprintf(&sb, "column %q: ", f.Column)
	}
	sb.WriteString(f.Message)
	if f.Validator != "" {
		fmt.Fprintf(&sb, " [%s]", f.Validator)
	}
	if f.Suggestion != "" {
		fmt.Fprintf(&sb, " (%s)", f.Suggestion)
	}
	return sb.String()
}
