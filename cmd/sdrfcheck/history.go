package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sdrf-pipelines/sdrfcheck/pkg/cli"
	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/history"
)

var historyFlags struct {
	format      string
	template    string
	source      string
	since       string
	onlyInvalid bool
	limit       int
	days        int
	maxRuns     int64
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query recorded validation runs",
	Long: `Query recorded validation runs.

Runs are recorded by "validate --record", by "watch" when history is enabled,
or by every validation when history.enabled is set in the configuration.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Long: `List recorded runs, newest first.

Examples:
  # Last 20 runs
  sdrfcheck history list --limit 20

  # Failed runs against the human template in the last week
  sdrfcheck history list --template human --invalid --since 168h`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show a recorded run with its findings",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs outside the retention policy",
	Long: `Delete runs older than history.retention.days and, when
history.retention.max_runs is set, the oldest runs beyond that count.`,
	Args: cobra.NoArgs,
	RunE: runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)

	historyCmd.PersistentFlags().StringVarP(&historyFlags.format, "format", "f", "text", "output format: text, json, tsv")

	historyListCmd.Flags().StringVar(&historyFlags.template, "template", "", "filter by template")
	historyListCmd.Flags().StringVar(&historyFlags.source, "source", "", "filter by SDRF file")
	historyListCmd.Flags().StringVar(&historyFlags.since, "since", "", "only runs newer than this (duration like 24h or RFC3339 time)")
	historyListCmd.Flags().BoolVar(&historyFlags.onlyInvalid, "invalid", false, "only runs with errors")
	historyListCmd.Flags().IntVar(&historyFlags.limit, "limit", 50, "maximum number of runs")

	historyPruneCmd.Flags().IntVar(&historyFlags.days, "days", 0, "retention in days (uses config if not specified)")
	historyPruneCmd.Flags().Int64Var(&historyFlags.maxRuns, "max-runs", 0, "keep at most this many runs (uses config if not specified)")
}

func historyStore() (*history.SQLiteStore, *config.Config, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := openHistory(cfg)
	if err != nil {
		return nil, nil, cli.Fatal(cli.NewCommandError("history", err))
	}
	return store, cfg, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(historyFlags.format))
	if err != nil {
		return cli.Fatal(err)
	}

	q := history.Query{
		Template:    historyFlags.template,
		Source:      historyFlags.source,
		OnlyInvalid: historyFlags.onlyInvalid,
		Limit:       historyFlags.limit,
	}
	if historyFlags.since != "" {
		since, err := parseSince(historyFlags.since, time.Now())
		if err != nil {
			return cli.Fatal(err)
		}
		q.Since = since
	}

	store, _, err := historyStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), q)
	if err != nil {
		return cli.Fatal(err)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), runs)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(historyFlags.format))
	if err != nil {
		return cli.Fatal(err)
	}

	store, _, err := historyStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if errors.Is(err, history.ErrNotFound) {
		return cli.Fatal(fmt.Errorf("no run with ID %q", args[0]))
	}
	if err != nil {
		return cli.Fatal(err)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), run)
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, cfg, err := historyStore()
	if err != nil {
		return err
	}
	defer store.Close()

	retention := cfg.History.Retention
	if cmd.Flags().Changed("days") {
		retention.Days = historyFlags.days
	}
	if cmd.Flags().Changed("max-runs") {
		retention.MaxRuns = historyFlags.maxRuns
	}

	deleted, err := history.NewPruner(store, retention).Prune(cmd.Context())
	if err != nil {
		return cli.Fatal(err)
	}

	remaining, err := store.Count(cmd.Context())
	if err != nil {
		return cli.Fatal(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d runs (%d remaining)\n", deleted, remaining)
	return nil
}

// parseSince accepts a duration ("24h") relative to now or an RFC3339 time.
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q (expected duration like 24h or RFC3339 time)", s)
	}
	return t, nil
}
