package cli

import (
	"errors"
	"fmt"

	"sdrf-pipelines/sdrfcheck/pkg/report"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Invalid signals that validation ran and found errors. It carries no
// message because the findings were already printed.
func Invalid() *ExitError {
	return &ExitError{Code: report.ExitCodeInvalid}
}

// Fatal wraps err so the process exits with the fatal code.
func Fatal(err error) *ExitError {
	return &ExitError{Code: report.ExitCodeFatal, Err: err}
}

// ExitCode maps an error returned by a command to a process exit code.
// Errors that are not an *ExitError are fatal.
func ExitCode(err error) int {
	if err == nil {
		return report.ExitCodeValid
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return report.ExitCodeFatal
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}
