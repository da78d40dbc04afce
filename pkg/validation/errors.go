package validation

import (
	"fmt"
	"strings"
)

// InvalidParamsError reports validator parameters that cannot be compiled,
// or a validator used at a scope it does not support.
type InvalidParamsError struct {
	Validator string
	Template  string
	Column    string
	Param     string
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *InvalidParamsError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "validator %q", e.Validator)
	if e.Template != "" {
		fmt.Fprintf(&sb, " in template %q", e.Template)
	}
	if e.Column != "" {
		fmt.Fprintf(&sb, " on column %q", e.Column)
	}
	if e.Param != "" {
		fmt.Fprintf(&sb, ": param %q", e.Param)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *InvalidParamsError) Unwrap() error {
	return e.Cause
}

// paramError is returned by Params accessors; Compile wraps it with
// template and column context.
type paramError struct {
	param   string
	message string
	cause   error
}

func (e *paramError) Error() string {
	return fmt.Sprintf("param %q: %s", e.param, e.message)
}

func (e *paramError) Unwrap() error {
	return e.cause
}
