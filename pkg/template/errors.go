package template

import (
	"fmt"
	"strings"
)

// SchemaCycleError reports an extends chain that revisits a template.
type SchemaCycleError struct {
	// Cycle is the chain from the requested template up to and including
	// the revisited one (e.g., ["a", "b", "a"]).
	Cycle []string
}

// Error implements the error interface.
func (e *SchemaCycleError) Error() string {
	return fmt.Sprintf("template extends cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// UnknownTemplateError reports a template name that cannot be loaded.
type UnknownTemplateError struct {
	// Name is the missing template.
	Name string

	// ReferencedBy is the template whose extends named it, empty when the
	// missing template was requested directly.
	ReferencedBy string

	// Suggestion is an optional "did you mean" hint.
	Suggestion string
}

// Error implements the error interface.
func (e *UnknownTemplateError) Error() string {
	msg := fmt.Sprintf("unknown template %q", e.Name)
	if e.ReferencedBy != "" {
		msg = fmt.Sprintf("unknown template %q (extended by %q)", e.Name, e.ReferencedBy)
	}
	if e.Suggestion != "" {
		msg += ": " + e.Suggestion
	}
	return msg
}

// UnknownValidatorError reports a validator name with no registry entry.
type UnknownValidatorError struct {
	Validator  string
	Template   string
	Column     string
	Suggestion string
}

// Error implements the error interface.
func (e *UnknownValidatorError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unknown validator %q", e.Validator)
	if e.Template != "" {
		fmt.Fprintf(&sb, " in template %q", e.Template)
	}
	if e.Column != "" {
		fmt.Fprintf(&sb, " on column %q", e.Column)
	}
	if e.Suggestion != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

// ParseError represents a YAML syntax error in a template file.
type ParseError struct {
	Source  string
	Line    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %q at line %d: %s", e.Source, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %q: %s", e.Source, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// RegistryError represents an error during registry operations.
type RegistryError struct {
	Template  string
	Operation string
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("registry error for template %q during %s: %s", e.Template, e.Operation, e.Message)
	}
	return fmt.Sprintf("registry error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *RegistryError) Unwrap() error {
	return e.Cause
}

// Location is a position inside a template source.
type Location struct {
	Source string
	Line   int
	Column int
}

// IsValid returns true if the location carries a line number.
func (l Location) IsValid() bool {
	return l.Line > 0
}

// String formats the location as source:line:column.
func (l Location) String() string {
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.Source, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.Source, l.Line)
}

// Error is a structural problem found in a template definition.
type Error struct {
	Message    string
	Location   Location
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("\n  --> %s", e.Location.String()))
	}
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n  = suggestion: %s", e.Suggestion))
	}
	return sb.String()
}

// ErrorList accumulates structural errors instead of failing on the first.
type ErrorList struct {
	Errors []*Error
}

// Add appends an error to the list.
func (el *ErrorList) Add(message string, loc Location, suggestion string) {
	el.Errors = append(el.Errors, &Error{
		Message:    message,
		Location:   loc,
		Suggestion: suggestion,
	})
}

// HasErrors returns true if the list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if len(el.Errors) == 1 {
		return el.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("found %d template error(s):\n", len(el.Errors)))
	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ToError returns nil if the list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// SuggestName returns a "Did you mean" hint for the closest candidate, or
// an empty string when nothing is close enough.
func SuggestName(unknown string, candidates []string) string {
	best := ""
	minDistance := 1000
	for _, c := range candidates {
		if d := levenshteinDistance(unknown, c); d < minDistance {
			minDistance = d
			best = c
		}
	}

	// Only suggest if the distance is reasonable
	if best == "" || minDistance > 4 || minDistance >= len(unknown) {
		return ""
	}
	return fmt.Sprintf("Did you mean '%s'?", best)
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
