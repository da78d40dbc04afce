package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/ontology"
)

// otherLabel replaces label values once the cardinality limit is reached.
const otherLabel = "other"

// Collector owns every Prometheus metric exported by sdrfcheck.
//
// All Record/Update methods are safe on a nil *Collector and on a collector
// whose configuration has metrics disabled, so callers never need to guard
// instrumentation calls.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	validationMetrics *ValidationMetrics
	ontologyMetrics   *OntologyMetrics
	cacheMetrics      *CacheMetrics
	templateMetrics   *TemplateMetrics

	// User-supplied template names are unbounded.
	cardinalityLimiter *CardinalityLimiter

	mu        sync.Mutex
	lastStats map[string]ontology.CacheStats
}

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "sdrfcheck",
//		Subsystem: "validator",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000),
		lastStats:          make(map[string]ontology.CacheStats),
	}

	c.validationMetrics = NewValidationMetrics(cfg, registry)
	c.ontologyMetrics = NewOntologyMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)
	c.templateMetrics = NewTemplateMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

func (c *Collector) templateLabel(name string) string {
	if !c.cardinalityLimiter.Allow(name) {
		return otherLabel
	}
	return name
}

// RecordRun records a completed validation run.
//
// Parameters:
//   - template: name of the template the file was validated against
//   - result: "valid", "invalid", "incomplete" or "error"
//   - duration: wall time of the evaluation
//   - rows: number of data rows evaluated
func (c *Collector) RecordRun(template, result string, duration time.Duration, rows int) {
	if !c.enabled() {
		return
	}
	c.validationMetrics.RecordRun(c.templateLabel(template), result, duration, rows)
}

// RecordFinding counts one finding produced by a validator.
func (c *Collector) RecordFinding(validator, severity string) {
	if !c.enabled() {
		return
	}
	c.validationMetrics.RecordFinding(validator, severity)
}

// RecordOntologyLookup records one ontology lookup and its outcome
// ("found", "not_found" or "error").
func (c *Collector) RecordOntologyLookup(ontologyName, result string, latency time.Duration) {
	if !c.enabled() {
		return
	}
	c.ontologyMetrics.RecordLookup(ontologyName, result, latency)
}

// UpdateOntologyAvailability sets the availability gauge of a lookup service.
func (c *Collector) UpdateOntologyAvailability(service string, available bool) {
	if !c.enabled() {
		return
	}
	c.ontologyMetrics.UpdateAvailability(service, available)
}

// RecordCacheStats folds an ontology cache snapshot into the cache metrics.
// Counters advance by the difference to the previous snapshot recorded for
// the same cache name; a snapshot smaller than the previous one (after a
// cache rebuild) is taken as a fresh start.
func (c *Collector) RecordCacheStats(cacheName string, stats ontology.CacheStats) {
	if !c.enabled() {
		return
	}

	c.mu.Lock()
	prev := c.lastStats[cacheName]
	if stats.Hits < prev.Hits || stats.Misses < prev.Misses {
		prev = ontology.CacheStats{}
	}
	c.lastStats[cacheName] = stats
	c.mu.Unlock()

	c.cacheMetrics.apply(cacheName, snapshotDelta{
		hits:     stats.Hits - prev.Hits,
		misses:   stats.Misses - prev.Misses,
		index:    stats.StoreHits - prev.StoreHits,
		upstream: stats.Upstream - prev.Upstream,
		failed:   stats.Failures - prev.Failures,
		entries:  stats.Entries,
	})
}

// RecordTemplateResolution records a template resolution ("ok" or "error").
func (c *Collector) RecordTemplateResolution(template, result string) {
	if !c.enabled() {
		return
	}
	c.templateMetrics.RecordResolution(c.templateLabel(template), result)
}

// RecordTemplateReload records a template directory reload.
func (c *Collector) RecordTemplateReload(result string, loaded int) {
	if !c.enabled() {
		return
	}
	c.templateMetrics.RecordReload(result)
	if result == ResultOK {
		c.templateMetrics.SetLoaded(loaded)
	}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values it lets through.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label value may be used. Known values are always
// allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
