package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sdrf-pipelines/sdrfcheck/pkg/config"
)

// Run results.
const (
	ResultValid      = "valid"
	ResultInvalid    = "invalid"
	ResultIncomplete = "incomplete"
	ResultError      = "error"
)

// ValidationMetrics tracks validation runs and their findings.
//
// Metrics:
//   - sdrfcheck_validator_runs_total: Validation runs by template and result
//   - sdrfcheck_validator_run_duration_seconds: Evaluation wall time
//   - sdrfcheck_validator_rows_evaluated_total: Data rows evaluated
//   - sdrfcheck_validator_findings_total: Findings by validator and severity
type ValidationMetrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	rowsEvaluated prometheus.Counter
	findingsTotal *prometheus.CounterVec
}

// NewValidationMetrics creates and registers validation metrics with the provided registry.
func NewValidationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ValidationMetrics {
	vm := &ValidationMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "runs_total",
				Help:      "Total number of validation runs",
			},
			[]string{"template", "result"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of validation runs in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"template"},
		),

		rowsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rows_evaluated_total",
				Help:      "Total number of SDRF data rows evaluated",
			},
		),

		findingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "findings_total",
				Help:      "Total number of findings by validator and severity",
			},
			[]string{"validator", "severity"},
		),
	}

	registry.MustRegister(
		vm.runsTotal,
		vm.runDuration,
		vm.rowsEvaluated,
		vm.findingsTotal,
	)

	return vm
}

// RecordRun records one validation run.
func (vm *ValidationMetrics) RecordRun(template, result string, duration time.Duration, rows int) {
	vm.runsTotal.WithLabelValues(template, result).Inc()
	vm.runDuration.WithLabelValues(template).Observe(duration.Seconds())
	if rows > 0 {
		vm.rowsEvaluated.Add(float64(rows))
	}
}

// RecordFinding counts one finding.
func (vm *ValidationMetrics) RecordFinding(validator, severity string) {
	vm.findingsTotal.WithLabelValues(validator, severity).Inc()
}
