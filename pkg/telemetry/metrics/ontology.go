package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/ontology"
)

// Lookup results.
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupError    = "error"
)

// OntologyMetrics tracks ontology lookups and service availability.
//
// Metrics:
//   - sdrfcheck_validator_ontology_lookups_total: Lookups by ontology and result
//   - sdrfcheck_validator_ontology_lookup_duration_seconds: Lookup latency
//   - sdrfcheck_validator_ontology_service_available: 1 when the service answers, 0 otherwise
type OntologyMetrics struct {
	lookupsTotal   *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
	available      *prometheus.GaugeVec
}

// NewOntologyMetrics creates and registers ontology metrics with the provided registry.
func NewOntologyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *OntologyMetrics {
	om := &OntologyMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ontology_lookups_total",
				Help:      "Total number of ontology term lookups",
			},
			[]string{"ontology", "result"},
		),

		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ontology_lookup_duration_seconds",
				Help:      "Ontology lookup latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to 26s
			},
			[]string{"ontology"},
		),

		available: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ontology_service_available",
				Help:      "Ontology service availability (1=available, 0=unavailable)",
			},
			[]string{"service"},
		),
	}

	registry.MustRegister(
		om.lookupsTotal,
		om.lookupDuration,
		om.available,
	)

	return om
}

// RecordLookup records one lookup.
func (om *OntologyMetrics) RecordLookup(ontologyName, result string, latency time.Duration) {
	om.lookupsTotal.WithLabelValues(ontologyName, result).Inc()
	om.lookupDuration.WithLabelValues(ontologyName).Observe(latency.Seconds())
}

// UpdateAvailability sets the availability gauge.
func (om *OntologyMetrics) UpdateAvailability(service string, available bool) {
	value := 0.0
	if available {
		value = 1.0
	}
	om.available.WithLabelValues(service).Set(value)
}

// InstrumentResolver wraps an ontology resolver so that every lookup is
// counted and timed. A nil or disabled collector returns next unchanged.
func InstrumentResolver(next ontology.Resolver, c *Collector) ontology.Resolver {
	if next == nil || !c.enabled() {
		return next
	}
	return &instrumentedResolver{next: next, collector: c}
}

type instrumentedResolver struct {
	next      ontology.Resolver
	collector *Collector
}

func (r *instrumentedResolver) Lookup(ctx context.Context, ontologyName, term string) (ontology.Match, error) {
	start := time.Now()
	m, err := r.next.Lookup(ctx, ontologyName, term)

	result := LookupNotFound
	switch {
	case err != nil:
		result = LookupError
	case m.Found:
		result = LookupFound
	}
	r.collector.RecordOntologyLookup(ontology.NormalizeOntology(ontologyName), result, time.Since(start))
	return m, err
}
