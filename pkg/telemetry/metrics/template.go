package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"sdrf-pipelines/sdrfcheck/pkg/config"
)

// Generic outcomes for resolutions and reloads.
const (
	ResultOK = "ok"
)

// TemplateMetrics tracks template resolution and reloads.
//
// Metrics:
//   - sdrfcheck_validator_template_resolutions_total: Resolutions by template and result
//   - sdrfcheck_validator_template_reloads_total: Template directory reloads by result
//   - sdrfcheck_validator_templates_loaded: Templates currently registered
type TemplateMetrics struct {
	resolutionsTotal *prometheus.CounterVec
	reloadsTotal     *prometheus.CounterVec
	loaded           prometheus.Gauge
}

// NewTemplateMetrics creates and registers template metrics with the provided registry.
func NewTemplateMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TemplateMetrics {
	tm := &TemplateMetrics{
		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "template_resolutions_total",
				Help:      "Total number of template resolutions",
			},
			[]string{"template", "result"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "template_reloads_total",
				Help:      "Total number of template directory reloads",
			},
			[]string{"result"},
		),

		loaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "templates_loaded",
				Help:      "Number of templates currently registered",
			},
		),
	}

	registry.MustRegister(
		tm.resolutionsTotal,
		tm.reloadsTotal,
		tm.loaded,
	)

	return tm
}

// RecordResolution records one resolution.
func (tm *TemplateMetrics) RecordResolution(template, result string) {
	tm.resolutionsTotal.WithLabelValues(template, result).Inc()
}

// RecordReload records one reload.
func (tm *TemplateMetrics) RecordReload(result string) {
	tm.reloadsTotal.WithLabelValues(result).Inc()
}

// SetLoaded sets the number of registered templates.
func (tm *TemplateMetrics) SetLoaded(n int) {
	tm.loaded.Set(float64(n))
}
