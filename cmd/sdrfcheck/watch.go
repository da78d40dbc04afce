package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"sdrf-pipelines/sdrfcheck/pkg/cli"
	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/history"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/health"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/logging"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/metrics"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/tracing"
	"sdrf-pipelines/sdrfcheck/pkg/template"
)

var watchFlags struct {
	sdrfFiles     []string
	templateName  string
	cacheOnly     bool
	format        string
	listenAddress string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-validate SDRF files whenever they or the templates change",
	Long: `Validate SDRF files once, then again whenever one of them or a user
template changes.

While running, watch serves Prometheus metrics and health endpoints
(/healthz, /readyz) on telemetry.metrics.listen_address and, when history is
enabled, records every run and prunes old runs on the retention schedule.

Examples:
  sdrfcheck watch --sdrf PXD000001.sdrf.tsv --template human
  sdrfcheck watch --sdrf a.sdrf.tsv --sdrf b.sdrf.tsv --listen 0.0.0.0:9464`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceVarP(&watchFlags.sdrfFiles, "sdrf", "s", nil, "SDRF files to watch (repeatable)")
	watchCmd.Flags().StringVarP(&watchFlags.templateName, "template", "t", "", "template name (uses config default if not specified)")
	watchCmd.Flags().BoolVar(&watchFlags.cacheOnly, "use-ols-cache-only", false, "resolve ontology terms from the local index only")
	watchCmd.Flags().StringVarP(&watchFlags.format, "format", "f", "text", "output format: text, json, tsv")
	watchCmd.Flags().StringVar(&watchFlags.listenAddress, "listen", "", "metrics and health listen address (uses config if not specified)")
	_ = watchCmd.MarkFlagRequired("sdrf")
}

// watcher validates a fixed set of files and re-validates on change.
type watcher struct {
	p        *pipeline
	logger   *logging.Logger
	tracer   *tracing.Tracer
	out      func(string, any)
	template string
	files    []string
	store    *history.SQLiteStore

	mu sync.Mutex
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if watchFlags.templateName != "" {
		cfg.Templates.Default = watchFlags.templateName
	}
	if watchFlags.cacheOnly && cfg.Ontology.Mode == config.OntologyModeOLS {
		cfg.Ontology.Mode = config.OntologyModeCache
	}
	if watchFlags.listenAddress != "" {
		cfg.Telemetry.Metrics.ListenAddress = watchFlags.listenAddress
	}
	if err := config.Validate(cfg); err != nil {
		return cli.Fatal(err)
	}

	formatter, err := cli.NewFormatter(cli.OutputFormat(watchFlags.format))
	if err != nil {
		return cli.Fatal(err)
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.Fatal(err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	p, err := newPipeline(cfg, logger.Slog(), collector)
	if err != nil {
		return cli.Fatal(err)
	}
	defer p.Close()
	collector.RecordTemplateReload(metrics.ResultOK, p.templates.Count())

	w := &watcher{
		p:        p,
		logger:   logger,
		tracer:   tracer,
		template: cfg.Templates.Default,
		files:    watchFlags.sdrfFiles,
	}
	out := cmd.OutOrStdout()
	w.out = func(file string, data any) {
		fmt.Fprintf(out, "==> %s <==\n", file)
		if err := formatter.FormatTo(out, data); err != nil {
			logger.Error("failed to write report", "file", file, "error", err)
		}
	}

	checker := health.New(5 * time.Second)
	checker.RegisterCheck("templates", func(context.Context) error {
		if p.templates.Count() == 0 {
			return errors.New("no templates loaded")
		}
		return nil
	})
	if p.ols != nil {
		checker.RegisterCheck("ontology", func(context.Context) error {
			available := p.ols.Available()
			collector.UpdateOntologyAvailability("ols", available)
			if !available {
				return errors.New("OLS marked unavailable after repeated failures")
			}
			return nil
		})
	}

	if cfg.History.Enabled {
		store, err := openHistory(cfg)
		if err != nil {
			return cli.Fatal(err)
		}
		defer store.Close()
		w.store = store
		checker.RegisterCheck("history", store.Ping)

		scheduler := history.NewScheduler(history.NewPruner(store, cfg.History.Retention))
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			if next := scheduler.NextRun(); next != nil {
				logger.Debug("history retention scheduled", "next_run", next)
			}
		}
	}

	var srv *http.Server
	if cfg.Telemetry.Metrics.Enabled {
		srv = collector.NewServer(checker.Register)
		go func() {
			logger.Info("serving metrics and health",
				"address", cfg.Telemetry.Metrics.ListenAddress,
				"metrics_path", cfg.Telemetry.Metrics.Path,
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	w.validateAll(ctx)

	paths := append([]string(nil), w.files...)
	if cfg.Templates.Dir != "" {
		paths = append(paths, cfg.Templates.Dir)
	}
	fwCfg := &template.FileWatcherConfig{
		Paths:            paths,
		DebounceInterval: cfg.Templates.Debounce,
		SkipHidden:       true,
	}
	fw, err := template.NewFileWatcher(fwCfg, logger.Slog())
	if err != nil {
		return cli.Fatal(err)
	}
	defer fw.Stop()

	logger.Info("watching for changes", "files", len(w.files), "template_dir", cfg.Templates.Dir)
	if err := fw.Watch(ctx, func(paths []string) error { return w.onChange(ctx, paths) }); err != nil {
		return cli.Fatal(err)
	}
	logger.Info("watch stopped")
	return nil
}

// onChange reloads templates when a template file changed and then
// re-validates every file. Otherwise only the changed files are
// re-validated, each once.
func (w *watcher) onChange(ctx context.Context, paths []string) error {
	if slices.ContainsFunc(paths, isTemplatePath) {
		if err := w.p.reloadTemplates(); err != nil {
			return fmt.Errorf("template reload failed, keeping previous templates: %w", err)
		}
		w.validateAll(ctx)
		return nil
	}
	for _, f := range w.files {
		if ctx.Err() != nil {
			return nil
		}
		if slices.ContainsFunc(paths, func(p string) bool { return sameFile(f, p) }) {
			w.validate(ctx, f)
		}
	}
	return nil
}

func (w *watcher) validateAll(ctx context.Context) {
	for _, f := range w.files {
		if ctx.Err() != nil {
			return
		}
		w.validate(ctx, f)
	}
}

// validate runs one file; runs are serialised so output does not interleave.
func (w *watcher) validate(ctx context.Context, file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	runID := history.NewRunID()
	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithTemplate(ctx, w.template)
	ctx = logging.WithFile(ctx, file)
	log := w.logger.WithContext(ctx)

	ctx, span := w.tracer.Start(ctx, "sdrfcheck.watch.validate")
	defer span.End()
	tracing.SetAttributes(span, tracing.RunAttributes(runID, w.template, file)...)

	started := time.Now()
	rep, err := w.p.validateFile(ctx, w.template, file)
	if err != nil {
		tracing.SetStatus(span, err)
		log.Error("validation failed", "error", err)
		return
	}
	elapsed := time.Since(started)
	w.out(file, rep)

	if w.store != nil {
		if err := w.store.Record(ctx, history.NewRun(runID, rep, started, elapsed)); err != nil {
			log.Warn("failed to record run", "error", err)
		}
	}
}

func isTemplatePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
