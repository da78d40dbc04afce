package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"sdrf-pipelines/sdrfcheck/pkg/config"
)

// Where a cache miss was answered.
const (
	FillIndex    = "index"
	FillUpstream = "upstream"
	FillFailed   = "failed"
)

// CacheMetrics tracks the ontology term cache.
//
// Metrics:
//   - sdrfcheck_validator_cache_hits_total{cache}
//   - sdrfcheck_validator_cache_misses_total{cache}
//   - sdrfcheck_validator_cache_fills_total{cache,source}: misses by the
//     layer that answered them (index, upstream or failed)
//   - sdrfcheck_validator_cache_entries{cache}
type CacheMetrics struct {
	hitsTotal   *prometheus.CounterVec
	missesTotal *prometheus.CounterVec
	fillsTotal  *prometheus.CounterVec
	entries     *prometheus.GaugeVec
}

// NewCacheMetrics creates and registers the cache metrics.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	cm := &CacheMetrics{
		hitsTotal:   counter("cache_hits_total", "Ontology lookups answered from memory", "cache"),
		missesTotal: counter("cache_misses_total", "Ontology lookups not held in memory", "cache"),
		fillsTotal:  counter("cache_fills_total", "Cache misses by the layer that answered them", "cache", "source"),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_entries",
			Help:      "Terms currently held in memory",
		}, []string{"cache"}),
	}

	registry.MustRegister(cm.hitsTotal, cm.missesTotal, cm.fillsTotal, cm.entries)
	return cm
}

func (cm *CacheMetrics) add(vec *prometheus.CounterVec, n int64, labels ...string) {
	if n > 0 {
		vec.WithLabelValues(labels...).Add(float64(n))
	}
}

// snapshotDelta is the growth of the cache counters between two snapshots.
type snapshotDelta struct {
	hits, misses, index, upstream, failed int64
	entries                               int
}

func (cm *CacheMetrics) apply(cacheName string, d snapshotDelta) {
	cm.add(cm.hitsTotal, d.hits, cacheName)
	cm.add(cm.missesTotal, d.misses, cacheName)
	cm.add(cm.fillsTotal, d.index, cacheName, FillIndex)
	cm.add(cm.fillsTotal, d.upstream, cacheName, FillUpstream)
	cm.add(cm.fillsTotal, d.failed, cacheName, FillFailed)
	cm.entries.WithLabelValues(cacheName).Set(float64(d.entries))
}
