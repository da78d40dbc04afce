// Package metrics provides Prometheus metrics collection for sdrfcheck.
//
// # Metrics Categories
//
//   - Validation: runs by template and result, run duration, rows evaluated,
//     findings by validator and severity
//   - Ontology: lookups by ontology and result, lookup latency, service
//     availability
//   - Cache: ontology cache hits, misses by answering layer, and entries
//   - Templates: resolutions, reloads and the number of loaded templates
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	resolver = metrics.InstrumentResolver(resolver, collector)
//	collector.RecordRun("human", metrics.ResultValid, elapsed, rows)
//
// Long-running commands expose the registry over HTTP:
//
//	srv := collector.NewServer()
//	go srv.ListenAndServe()
//
// Every Record/Update method is a no-op on a nil collector or when metrics
// are disabled.
package metrics
