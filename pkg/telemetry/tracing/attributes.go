package tracing

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on sdrfcheck spans.
const (
	AttrRunID       = "sdrfcheck.run_id"
	AttrTemplate    = "sdrfcheck.template"
	AttrFile        = "sdrfcheck.file"
	AttrRows        = "sdrfcheck.rows"
	AttrColumns     = "sdrfcheck.columns"
	AttrErrors      = "sdrfcheck.findings.errors"
	AttrWarnings    = "sdrfcheck.findings.warnings"
	AttrIncomplete  = "sdrfcheck.incomplete"
	AttrParallelism = "sdrfcheck.parallelism"
)

// RunAttributes describes a validation run.
func RunAttributes(runID, template, file string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrTemplate, template),
	}
	if runID != "" {
		attrs = append(attrs, attribute.String(AttrRunID, runID))
	}
	if file != "" {
		attrs = append(attrs, attribute.String(AttrFile, file))
	}
	return attrs
}

// TableAttributes describes the shape of the table being validated.
func TableAttributes(rows, columns int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrRows, rows),
		attribute.Int(AttrColumns, columns),
	}
}

// ResultAttributes describes the outcome of a validation run.
func ResultAttributes(errors, warnings int, incomplete bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrErrors, errors),
		attribute.Int(AttrWarnings, warnings),
		attribute.Bool(AttrIncomplete, incomplete),
	}
}
