package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/engine"
	"sdrf-pipelines/sdrfcheck/pkg/ontology"
	"sdrf-pipelines/sdrfcheck/pkg/report"
	"sdrf-pipelines/sdrfcheck/pkg/sdrf"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/metrics"
	"sdrf-pipelines/sdrfcheck/pkg/template"
	"sdrf-pipelines/sdrfcheck/pkg/validation"
)

// pipeline holds everything needed to validate tables: the template set,
// the validator registry, the ontology resolver chain and the engine.
type pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	collector *metrics.Collector

	templates  *template.Registry
	resolver   *template.Resolver
	validators *validation.Registry
	engine     *engine.Engine

	store *ontology.SQLiteStore
	cache *ontology.Cache
	ols   *ontology.OLSClient
}

// newPipeline builds a pipeline from cfg. collector may be nil.
func newPipeline(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (*pipeline, error) {
	p := &pipeline{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
	}

	p.templates = template.NewRegistry()
	if err := p.templates.Reload(cfg.Templates.Dir); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	var opts []validation.Option
	opts = append(opts, validation.WithLogger(logger))
	resolver, err := p.ontologyResolver()
	if err != nil {
		return nil, err
	}
	if resolver != nil {
		opts = append(opts, validation.WithOntologyResolver(resolver))
	}
	p.validators = validation.NewDefaultRegistry(opts...)
	p.resolver = template.NewResolver(p.templates, template.WithValidatorCatalog(p.validators))

	p.engine, err = engine.New(engine.FromConfig(cfg.Validation),
		engine.WithLogger(logger),
		engine.WithMetrics(collector),
	)
	if err != nil {
		p.Close()
		return nil, err
	}

	logger.Debug("pipeline ready",
		"templates", p.templates.Count(),
		"template_version", p.templates.Version(),
		"ontology_mode", cfg.Ontology.Mode,
	)
	return p, nil
}

// ontologyResolver builds the lookup chain for the configured mode:
// offline disables ontology checks, cache consults only the local index,
// ols consults the local index and then the remote service.
func (p *pipeline) ontologyResolver() (ontology.Resolver, error) {
	mode := p.cfg.Ontology.Mode
	if mode == config.OntologyModeOffline {
		p.logger.Info("ontology checks disabled (offline mode)")
		return nil, nil
	}

	store, err := ontology.OpenSQLiteStore(p.cfg.Ontology.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ontology index: %w", err)
	}
	p.store = store

	var upstream ontology.Resolver
	if mode == config.OntologyModeOLS {
		olsCfg := p.cfg.Ontology.OLS
		p.ols = ontology.NewOLSClient(ontology.OLSConfig{
			BaseURL:           olsCfg.BaseURL,
			Timeout:           olsCfg.Timeout,
			MaxRetries:        olsCfg.MaxRetries,
			FailureThreshold:  olsCfg.FailureThreshold,
			RequestsPerSecond: olsCfg.RequestsPerSecond,
			Burst:             olsCfg.Burst,
			Logger:            p.logger,
		})
		upstream = metrics.InstrumentResolver(p.ols, p.collector)
	}

	p.cache = ontology.NewCache(upstream, ontology.WithStore(store))
	return p.cache, nil
}

// plan resolves and compiles a template. Failures are recorded as
// resolution errors.
func (p *pipeline) plan(name string) (*validation.Plan, error) {
	resolved, err := p.resolver.Resolve(name)
	if err != nil {
		p.collector.RecordTemplateResolution(name, metrics.ResultError)
		return nil, err
	}
	plan, err := p.validators.Compile(resolved)
	if err != nil {
		p.collector.RecordTemplateResolution(name, metrics.ResultError)
		return nil, err
	}
	p.collector.RecordTemplateResolution(name, metrics.ResultOK)
	return plan, nil
}

// validateFile reads path and evaluates it against the named template.
func (p *pipeline) validateFile(ctx context.Context, templateName, path string) (*report.Report, error) {
	plan, err := p.plan(templateName)
	if err != nil {
		return nil, err
	}

	f, err := openTable(path)
	if err != nil {
		return nil, err
	}
	table, err := sdrf.Read(f, sdrf.ReadOptions{NormalizeHeaders: p.cfg.Validation.NormalizeHeaders})
	f.Close()
	if err != nil {
		var fe *sdrf.FormatError
		if errors.As(err, &fe) && fe.Source == "" {
			fe.Source = path
		}
		return nil, err
	}
	table.Source = path

	rep, err := p.engine.Evaluate(ctx, plan, table)
	if err != nil {
		return nil, err
	}
	p.recordCacheStats()
	return rep, nil
}

func (p *pipeline) recordCacheStats() {
	if p.cache == nil {
		return
	}
	stats := p.cache.Stats()
	p.collector.RecordCacheStats("ontology", stats)
	p.logger.Debug("ontology cache",
		"hits", stats.Hits,
		"misses", stats.Misses,
		"store_hits", stats.StoreHits,
		"upstream", stats.Upstream,
		"failures", stats.Failures,
	)
}

// reloadTemplates re-reads the template set and drops resolved templates.
// On error the previous set stays active.
func (p *pipeline) reloadTemplates() error {
	start := time.Now()
	if err := p.templates.Reload(p.cfg.Templates.Dir); err != nil {
		p.collector.RecordTemplateReload(metrics.ResultError, p.templates.Count())
		return err
	}
	p.resolver.Invalidate()
	p.collector.RecordTemplateReload(metrics.ResultOK, p.templates.Count())
	p.logger.Info("templates reloaded",
		"count", p.templates.Count(),
		"version", p.templates.Version(),
		"loaded_at", p.templates.LoadTime(),
		"duration", time.Since(start),
	)
	return nil
}

// Close releases the ontology index.
func (p *pipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

// openTable opens path for reading; "-" is standard input.
func openTable(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &sdrf.FormatError{Source: path, Message: "failed to open file", Cause: err}
	}
	return f, nil
}
