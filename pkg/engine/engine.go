package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"sdrf-pipelines/sdrfcheck/pkg/report"
	"sdrf-pipelines/sdrfcheck/pkg/sdrf"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/metrics"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/tracing"
	"sdrf-pipelines/sdrfcheck/pkg/validation"
)

// Engine evaluates compiled validation plans against SDRF tables.
// An Engine holds no per-run state and is safe for concurrent use.
type Engine struct {
	config  *EngineConfig
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records run and finding metrics on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = collector
	}
}

// WithTracer overrides the tracer (the otel global by default).
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// New creates an Engine. A nil config uses DefaultEngineConfig.
func New(config *EngineConfig, opts ...Option) (*Engine, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config: config,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "engine")
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracing.InstrumentationName)
	}
	return e, nil
}

// rowResult holds the findings of one evaluated row.
type rowResult struct {
	findings []report.Finding
	errors   int
}

// Evaluate runs plan against table and aggregates the findings.
//
// Findings are produced in a fixed order: table validators, header
// findings, then rows in order (declared columns, occurrences left to
// right, sentinel check, type check, declared cell validators). Rows are
// evaluated by up to Parallelism workers and reassembled in row order, so
// the report does not depend on scheduling.
//
// Cancellation of ctx and the MaxErrors limit are not errors: both return a
// report marked Incomplete holding every finding of the contiguous prefix of
// evaluated rows.
func (e *Engine) Evaluate(ctx context.Context, plan *validation.Plan, table *sdrf.Table) (*report.Report, error) {
	if plan == nil {
		return nil, ErrNilPlan
	}
	if table == nil {
		return nil, ErrNilTable
	}

	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "engine.evaluate")
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrTemplate, plan.Template.Name))
	span.SetAttributes(tracing.TableAttributes(table.NumRows(), table.NumColumns())...)
	span.SetAttributes(attribute.Int(tracing.AttrParallelism, e.config.Parallelism))

	var findings []report.Finding

	in := validation.TableInput{Table: table, Template: plan.Template}
	for _, v := range plan.Table {
		findings = append(findings, v.ValidateTable(ctx, in)...)
	}

	binding := Match(plan.Template, table.Headers())
	findings = append(findings, binding.Findings...)

	preErrors := countErrors(findings)
	rows, evaluated, reason := e.evaluateRows(ctx, plan, binding, table, preErrors)
	for _, r := range rows[:evaluated] {
		findings = append(findings, r.findings...)
	}

	opts := []report.Option{
		report.WithColumnOrder(plan.Template.ColumnNames()),
		report.WithRows(table.NumRows(), evaluated),
		report.WithSource(table.Source),
	}
	if reason != "" {
		opts = append(opts, report.WithIncomplete(reason))
	}
	rep := report.New(plan.Template.Name, findings, opts...)

	span.SetAttributes(tracing.ResultAttributes(rep.Counts.Errors, rep.Counts.Warnings, rep.Incomplete)...)
	e.record(rep, time.Since(start))

	e.logger.Debug("evaluation finished",
		"template", plan.Template.Name,
		"rows", table.NumRows(),
		"rows_evaluated", evaluated,
		"errors", rep.Counts.Errors,
		"warnings", rep.Counts.Warnings,
		"incomplete", rep.Incomplete,
		"duration", time.Since(start),
	)

	return rep, nil
}

// evaluateRows evaluates data rows with up to Parallelism workers. Workers
// claim rows in ascending order; a frontier advances over the contiguous
// prefix of finished rows and enforces MaxErrors on it. It returns the per
// row results, the length of the finished prefix and, when that prefix is
// shorter than the table, the reason.
func (e *Engine) evaluateRows(ctx context.Context, plan *validation.Plan, binding *Binding, table *sdrf.Table, preErrors int) ([]rowResult, int, string) {
	n := table.NumRows()
	results := make([]rowResult, n)
	maxErrors := e.config.MaxErrors

	if maxErrors > 0 && preErrors > maxErrors {
		return results, 0, limitReason(preErrors, maxErrors)
	}
	if n == 0 {
		return results, 0, ""
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		next     atomic.Int64
		stopped  atomic.Bool
		mu       sync.Mutex
		done     = make([]bool, n)
		frontier int
		errCount = preErrors
	)

	workers := e.config.Parallelism
	if workers > n {
		workers = n
	}

	g, gctx := errgroup.WithContext(workCtx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if stopped.Load() || gctx.Err() != nil {
					return nil
				}
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}

				res := e.evaluateRow(gctx, plan, binding, table, i)
				// a row cut short by cancellation may carry spurious findings
				if gctx.Err() != nil {
					return nil
				}

				mu.Lock()
				results[i] = res
				done[i] = true
				for !stopped.Load() && frontier < n && done[frontier] {
					errCount += results[frontier].errors
					frontier++
					if maxErrors > 0 && errCount > maxErrors {
						stopped.Store(true)
						cancel()
					}
				}
				mu.Unlock()
			}
		})
	}
	_ = g.Wait()

	switch {
	case frontier == n:
		return results, n, ""
	case stopped.Load():
		return results, frontier, limitReason(errCount, maxErrors)
	default:
		return results, frontier, fmt.Sprintf("evaluation cancelled: %v", context.Cause(ctx))
	}
}

func limitReason(errors, maxErrors int) string {
	return fmt.Sprintf("stopped after %d errors (max errors %d)", errors, maxErrors)
}

// evaluateRow runs every cell check of one row.
func (e *Engine) evaluateRow(ctx context.Context, plan *validation.Plan, binding *Binding, table *sdrf.Table, row int) rowResult {
	var res rowResult
	add := func(fs ...report.Finding) {
		for _, f := range fs {
			if f.Severity == report.SeverityError {
				res.errors++
			}
			res.findings = append(res.findings, f)
		}
	}

	for _, bc := range binding.Columns {
		cp := &plan.Columns[bc.Index]
		for _, pos := range bc.Positions {
			value := table.Cell(row, pos)

			if f, handled := validation.CheckSentinel(bc.Spec, row, value); handled {
				if f != nil {
					add(*f)
				}
				continue
			}
			if f := validation.CheckType(bc.Spec, row, value); f != nil {
				add(*f)
			}

			cell := validation.Cell{Row: row, Column: bc.Spec.Name, Value: value, Spec: bc.Spec}
			for _, v := range cp.Validators {
				add(v.ValidateCell(ctx, cell)...)
			}
		}
	}
	return res
}

func (e *Engine) record(rep *report.Report, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	result := metrics.ResultValid
	switch {
	case rep.Incomplete:
		result = metrics.ResultIncomplete
	case !rep.Valid:
		result = metrics.ResultInvalid
	}
	e.metrics.RecordRun(rep.Template, result, elapsed, rep.RowsEvaluated)
	for _, f := range rep.Findings {
		e.metrics.RecordFinding(f.Validator, string(f.Severity))
	}
}

func countErrors(findings []report.Finding) int {
	n := 0
	for _, f := range findings {
		if f.Severity == report.SeverityError {
			n++
		}
	}
	return n
}
