package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sdrf-pipelines/sdrfcheck/pkg/cli"
	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/history"
	"sdrf-pipelines/sdrfcheck/pkg/report"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/logging"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/tracing"
)

var validateFlags struct {
	sdrfFile     string
	templateName string
	cacheOnly    bool
	offline      bool
	format       string
	maxErrors    int
	parallelism  int
	record       bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an SDRF file against a template",
	Long: `Validate an SDRF file against a template and print every error and warning.

The template's extends chain is resolved first; unknown templates, cycles,
unknown validators and invalid validator parameters are fatal. The table is
then checked column by column and row by row.

Exit codes:
  0  no errors (warnings allowed)
  1  the table has errors
  2  fatal problem (bad template, unreadable file, interrupted run)

Examples:
  # Validate against the default template
  sdrfcheck validate --sdrf PXD000001.sdrf.tsv

  # Use the human template without contacting OLS
  sdrfcheck validate --sdrf PXD000001.sdrf.tsv --template human --use-ols-cache-only

  # Stop after 50 errors and print TSV
  sdrfcheck validate --sdrf PXD000001.sdrf.tsv --max-errors 50 --format tsv`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.sdrfFile, "sdrf", "s", "", "SDRF file to validate (- for stdin)")
	validateCmd.Flags().StringVarP(&validateFlags.templateName, "template", "t", "", "template name (uses config default if not specified)")
	validateCmd.Flags().BoolVar(&validateFlags.cacheOnly, "use-ols-cache-only", false, "resolve ontology terms from the local index only")
	validateCmd.Flags().BoolVar(&validateFlags.offline, "offline", false, "skip ontology checks")
	validateCmd.Flags().StringVarP(&validateFlags.format, "format", "f", "text", "output format: text, json, tsv")
	validateCmd.Flags().IntVar(&validateFlags.maxErrors, "max-errors", 0, "stop after this many errors (0 = no limit)")
	validateCmd.Flags().IntVar(&validateFlags.parallelism, "parallelism", 0, "number of rows evaluated concurrently (0 = config)")
	validateCmd.Flags().BoolVar(&validateFlags.record, "record", false, "record the run in the history database")
	_ = validateCmd.MarkFlagRequired("sdrf")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	applyValidateFlags(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return cli.Fatal(err)
	}

	formatter, err := cli.NewFormatter(cli.OutputFormat(validateFlags.format))
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
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	runID := history.NewRunID()
	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithTemplate(ctx, cfg.Templates.Default)
	ctx = logging.WithFile(ctx, validateFlags.sdrfFile)
	log := logger.WithContext(ctx)

	ctx, span := tracer.Start(ctx, "sdrfcheck.validate")
	defer span.End()
	tracing.SetAttributes(span, tracing.RunAttributes(runID, cfg.Templates.Default, validateFlags.sdrfFile)...)

	p, err := newPipeline(cfg, log.Slog(), nil)
	if err != nil {
		tracing.SetStatus(span, err)
		return cli.Fatal(err)
	}
	defer p.Close()

	started := time.Now()
	rep, err := p.validateFile(ctx, cfg.Templates.Default, validateFlags.sdrfFile)
	if err != nil {
		tracing.SetStatus(span, err)
		return cli.Fatal(err)
	}
	elapsed := time.Since(started)

	if err := formatter.FormatTo(cmd.OutOrStdout(), rep); err != nil {
		return cli.Fatal(fmt.Errorf("failed to write report: %w", err))
	}

	log.Info("validation finished",
		"valid", rep.Valid,
		"errors", rep.Counts.Errors,
		"warnings", rep.Counts.Warnings,
		"rows", rep.RowsEvaluated,
		"duration", elapsed,
	)

	if validateFlags.record || cfg.History.Enabled {
		if err := recordRun(ctx, cfg, history.NewRun(runID, rep, started, elapsed)); err != nil {
			log.Warn("failed to record run", "error", err)
		}
	}

	return validationResult(rep)
}

// applyValidateFlags lets explicit flags override the configuration.
func applyValidateFlags(cmd *cobra.Command, cfg *config.Config) {
	if validateFlags.templateName != "" {
		cfg.Templates.Default = validateFlags.templateName
	}
	switch {
	case validateFlags.offline:
		cfg.Ontology.Mode = config.OntologyModeOffline
	case validateFlags.cacheOnly && cfg.Ontology.Mode == config.OntologyModeOLS:
		cfg.Ontology.Mode = config.OntologyModeCache
	}
	if cmd.Flags().Changed("max-errors") {
		cfg.Validation.MaxErrors = validateFlags.maxErrors
	}
	if validateFlags.parallelism > 0 {
		cfg.Validation.Parallelism = validateFlags.parallelism
	}
}

// validationResult maps a report to the command's error. A run that was
// interrupted before finding any error has no verdict and is fatal.
func validationResult(rep *report.Report) error {
	if rep.Incomplete && rep.Valid {
		return cli.Fatal(fmt.Errorf("validation incomplete: %s", rep.IncompleteReason))
	}
	if rep.ExitCode() != report.ExitCodeValid {
		return cli.Invalid()
	}
	return nil
}

func recordRun(ctx context.Context, cfg *config.Config, run *history.Run) error {
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, run)
}

func openHistory(cfg *config.Config) (*history.SQLiteStore, error) {
	sqliteCfg := history.DefaultSQLiteConfig()
	sqliteCfg.Path = cfg.History.Path
	return history.OpenSQLiteStore(sqliteCfg)
}
