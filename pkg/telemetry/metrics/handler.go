package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
//
// Mount it at MetricsConfig.Path:
//
//	mux.Handle(cfg.Path, collector.Handler())
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}

// HandlerWithOptions returns an HTTP handler with custom options.
func (c *Collector) HandlerWithOptions(opts promhttp.HandlerOpts) http.Handler {
	return promhttp.HandlerFor(c.registry, opts)
}

// NewServer returns an HTTP server exposing the collector on cfg.Path at
// cfg.ListenAddress. Each register func may add more routes (health
// endpoints, for example). The caller starts and shuts it down.
func (c *Collector) NewServer(register ...func(*http.ServeMux)) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(c.config.Path, c.Handler())
	for _, r := range register {
		r(mux)
	}
	return &http.Server{
		Addr:              c.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
