package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sdrf-pipelines/sdrfcheck/pkg/cli"
	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sdrfcheck",
	Short: "sdrfcheck - SDRF template validation",
	Long: `sdrfcheck validates SDRF (Sample and Data Relationship Format) tables
against layered YAML templates.

Templates extend one another (minimum -> default -> human, ...) and declare
the columns a table must, should or may contain along with the validators
that apply to each column and to the table as a whole.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the command's exit code:
// 0 valid, 1 invalid, 2 fatal.
func Execute() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	// An ExitError without a cause has already reported through its output.
	var exitErr *cli.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.Err == nil) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "sdrfcheck.yaml", "config file path (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json, text, console")
}

// loadConfig loads the configuration, applies the global flag overrides and
// installs the process logger.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, cli.Fatal(err)
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Telemetry.Logging.Format = logFormat
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
	if err != nil {
		return nil, nil, cli.Fatal(err)
	}
	logger.SetDefault()
	return cfg, logger, nil
}
