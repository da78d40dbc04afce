package history

import (
	"time"

	"github.com/google/uuid"

	"sdrf-pipelines/sdrfcheck/pkg/report"
)

// Run is one recorded validation run.
type Run struct {
	// ID is a random UUID assigned when the run is created.
	ID string `json:"id"`

	Template string `json:"template"`
	Source   string `json:"source,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Valid    bool `json:"valid"`
	Errors   int  `json:"errors"`
	Warnings int  `json:"warnings"`

	TotalRows        int    `json:"total_rows"`
	RowsEvaluated    int    `json:"rows_evaluated"`
	Incomplete       bool   `json:"incomplete"`
	IncompleteReason string `json:"incomplete_reason,omitempty"`

	// Findings are loaded by Get; List leaves them empty.
	Findings []report.Finding `json:"findings,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// NewRun captures a report as a run. An empty id gets a fresh one.
func NewRun(id string, rep *report.Report, startedAt time.Time, duration time.Duration) *Run {
	if id == "" {
		id = NewRunID()
	}
	return &Run{
		ID:               id,
		Template:         rep.Template,
		Source:           rep.Source,
		StartedAt:        startedAt.UTC(),
		Duration:         duration,
		Valid:            rep.Valid,
		Errors:           rep.Counts.Errors,
		Warnings:         rep.Counts.Warnings,
		TotalRows:        rep.TotalRows,
		RowsEvaluated:    rep.RowsEvaluated,
		Incomplete:       rep.Incomplete,
		IncompleteReason: rep.IncompleteReason,
		Findings:         rep.Findings,
	}
}

// Query filters List results. Zero fields do not filter.
type Query struct {
	Template string
	Source   string
	Since    time.Time
	Until    time.Time

	// OnlyInvalid restricts results to runs with errors.
	OnlyInvalid bool

	// Limit caps the number of results (default 100). Newest runs first.
	Limit  int
	Offset int
}
