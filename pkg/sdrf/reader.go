package sdrf

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// FormatError reports a malformed SDRF file.
type FormatError struct {
	Source  string
	Line    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	switch {
	case e.Source != "" && e.Line > 0:
		return fmt.Sprintf("invalid SDRF %q at line %d: %s", e.Source, e.Line, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("invalid SDRF at line %d: %s", e.Line, e.Message)
	case e.Source != "":
		return fmt.Sprintf("invalid SDRF %q: %s", e.Source, e.Message)
	}
	return "invalid SDRF: " + e.Message
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *FormatError) Unwrap() error {
	return e.Cause
}

// ReadOptions controls parsing.
type ReadOptions struct {
	// NormalizeHeaders lower-cases header names. SDRF headers are case
	// insensitive; templates declare them in lower case.
	NormalizeHeaders bool
}

// DefaultReadOptions returns the options used by ReadFile.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{NormalizeHeaders: true}
}

// ReadFile parses a tab-separated SDRF file with default options.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Source: path, Message: "failed to open file", Cause: err}
	}
	defer f.Close()

	t, err := Read(f, DefaultReadOptions())
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) && fe.Source == "" {
			fe.Source = path
		}
		return nil, err
	}
	t.Source = path
	return t, nil
}

// Read parses tab-separated SDRF content. Values are kept verbatim: no
// trimming, no unquoting beyond the TSV layer.
func Read(r io.Reader, opts ReadOptions) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	headers, err := cr.Read()
	if err == io.EOF {
		return nil, &FormatError{Message: "file is empty"}
	}
	if err != nil {
		return nil, &FormatError{Line: 1, Message: "failed to read header", Cause: err}
	}

	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	if opts.NormalizeHeaders {
		for i, h := range headers {
			headers[i] = strings.ToLower(h)
		}
	}

	var rows [][]string
	var lines []int // blank lines are skipped, so row index does not give the line
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fe := &FormatError{Message: "failed to read row", Cause: err}
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				fe.Line = pe.StartLine
			}
			return nil, fe
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, record)
		lines = append(lines, line)
	}

	return newTable(headers, rows, lines)
}
