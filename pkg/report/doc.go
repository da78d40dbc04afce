// Package report aggregates validation findings into an ordered report.
//
// Findings not tied to a row come first in the order they were produced,
// followed by row findings ordered by row and then by the template's
// declared column order. A report is valid when it contains no
// error-severity findings; warnings never fail validation.
package report
