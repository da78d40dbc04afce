package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"sdrf-pipelines/sdrfcheck/pkg/history"
	"sdrf-pipelines/sdrfcheck/pkg/report"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatTSV is tab-separated output, one finding or run per line.
	FormatTSV OutputFormat = "tsv"
)

// Formats lists the accepted --format values.
var Formats = []OutputFormat{FormatText, FormatJSON, FormatTSV}

// Formatter writes command results. Supported values are *report.Report,
// *history.Run and []*history.Run; text output falls back to %v.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// NewFormatter creates a formatter for format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch OutputFormat(strings.ToLower(string(format))) {
	case FormatText, "":
		return &TextFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{Indent: true}, nil
	case FormatTSV:
		return &TSVFormatter{}, nil
	}
	return nil, fmt.Errorf("invalid output format %q (valid: text, json, tsv)", format)
}

// TextFormatter formats output as plain text.
type TextFormatter struct{}

// FormatTo writes data to w in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *report.Report:
		return writeReportText(w, v)
	case *history.Run:
		return writeRunText(w, v)
	case []*history.Run:
		return writeRunsText(w, v)
	}
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

func writeReportText(w io.Writer, rep *report.Report) error {
	for _, f := range rep.Findings {
		if _, err := fmt.Fprintln(w, f.String()); err != nil {
			return err
		}
	}
	if len(rep.Findings) > 0 {
		fmt.Fprintln(w)
	}

	status := "valid"
	if !rep.Valid {
		status = "invalid"
	}
	subject := rep.Source
	if subject == "" {
		subject = "table"
	}
	fmt.Fprintf(w, "%s: %s against template %q (%d errors, %d warnings, %d/%d rows evaluated)\n",
		subject, status, rep.Template, rep.Counts.Errors, rep.Counts.Warnings, rep.RowsEvaluated, rep.TotalRows)
	if rep.Incomplete {
		fmt.Fprintf(w, "incomplete: %s\n", rep.IncompleteReason)
	}
	return nil
}

func writeRunText(w io.Writer, run *history.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", run.ID)
	fmt.Fprintf(tw, "Template:\t%s\n", run.Template)
	if run.Source != "" {
		fmt.Fprintf(tw, "Source:\t%s\n", run.Source)
	}
	fmt.Fprintf(tw, "Started:\t%s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Duration:\t%s\n", run.Duration)
	fmt.Fprintf(tw, "Valid:\t%t\n", run.Valid)
	fmt.Fprintf(tw, "Errors:\t%d\n", run.Errors)
	fmt.Fprintf(tw, "Warnings:\t%d\n", run.Warnings)
	fmt.Fprintf(tw, "Rows:\t%d/%d\n", run.RowsEvaluated, run.TotalRows)
	if run.Incomplete {
		fmt.Fprintf(tw, "Incomplete:\t%s\n", run.IncompleteReason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(run.Findings) > 0 {
		fmt.Fprintln(w)
		for _, f := range run.Findings {
			fmt.Fprintln(w, f.String())
		}
	}
	return nil
}

func writeRunsText(w io.Writer, runs []*history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTEMPLATE\tSOURCE\tVALID\tERRORS\tWARNINGS\tROWS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\t%d\t%d/%d\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Template, r.Source,
			r.Valid, r.Errors, r.Warnings, r.RowsEvaluated, r.TotalRows)
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// TSVFormatter formats reports and runs as tab-separated rows with a
// header line. Rows are printed 1-based.
type TSVFormatter struct{}

// Column headers for TSV output.
var (
	FindingHeaders = []string{"severity", "row", "column", "validator", "value", "message", "suggestion"}
	RunHeaders     = []string{"id", "started_at", "template", "source", "valid", "errors", "warnings", "rows_evaluated", "total_rows", "incomplete"}
)

// FormatTo writes data to w in TSV format.
func (f *TSVFormatter) FormatTo(w io.Writer, data any) error {
	tsv := csv.NewWriter(w)
	tsv.Comma = '\t'

	var err error
	switch v := data.(type) {
	case *report.Report:
		err = writeFindingsTSV(tsv, v.Findings)
	case *history.Run:
		err = writeFindingsTSV(tsv, v.Findings)
	case []*history.Run:
		err = writeRunsTSV(tsv, v)
	default:
		return fmt.Errorf("TSV output not supported for %T", data)
	}
	if err != nil {
		return err
	}
	tsv.Flush()
	return tsv.Error()
}

func writeFindingsTSV(tsv *csv.Writer, findings []report.Finding) error {
	if err := tsv.Write(FindingHeaders); err != nil {
		return err
	}
	for _, f := range findings {
		row := ""
		if f.Row != nil {
			row = strconv.Itoa(*f.Row + 1)
		}
		record := []string{string(f.Severity), row, f.Column, f.Validator, f.Value, f.Message, f.Suggestion}
		if err := tsv.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeRunsTSV(tsv *csv.Writer, runs []*history.Run) error {
	if err := tsv.Write(RunHeaders); err != nil {
		return err
	}
	for _, r := range runs {
		record := []string{
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			r.Template,
			r.Source,
			strconv.FormatBool(r.Valid),
			strconv.Itoa(r.Errors),
			strconv.Itoa(r.Warnings),
			strconv.Itoa(r.RowsEvaluated),
			strconv.Itoa(r.TotalRows),
			strconv.FormatBool(r.Incomplete),
		}
		if err := tsv.Write(record); err != nil {
			return err
		}
	}
	return nil
}
