package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sdrf-pipelines/sdrfcheck/pkg/cli"
	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/ontology"
)

var ontologyFlags struct {
	ontology  string
	cacheOnly bool
}

var ontologyCmd = &cobra.Command{
	Use:   "ontology",
	Short: "Manage the local ontology term index",
	Long: `Manage the local ontology term index used for cache-only validation
and as a persistent cache in front of the Ontology Lookup Service.`,
}

var ontologyImportCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import tab-separated term lists into the index",
	Long: `Import tab-separated term lists into the index.

Each file starts with a header naming its columns. A "label" column is
required; "id", "iri" and "ontology" are optional. Rows without an ontology
column use --ontology.

Examples:
  sdrfcheck ontology import --ontology ncbitaxon ncbitaxon_terms.tsv
  sdrfcheck ontology import terms_with_ontology_column.tsv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOntologyImport,
}

var ontologyLookupCmd = &cobra.Command{
	Use:   "lookup ONTOLOGY TERM",
	Short: "Look up a term the way ontology validators do",
	Args:  cobra.ExactArgs(2),
	RunE:  runOntologyLookup,
}

var ontologyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of indexed terms per ontology",
	Args:  cobra.NoArgs,
	RunE:  runOntologyStats,
}

func init() {
	rootCmd.AddCommand(ontologyCmd)
	ontologyCmd.AddCommand(ontologyImportCmd, ontologyLookupCmd, ontologyStatsCmd)

	ontologyImportCmd.Flags().StringVar(&ontologyFlags.ontology, "ontology", "", "ontology for rows without an ontology column")
	ontologyLookupCmd.Flags().BoolVar(&ontologyFlags.cacheOnly, "use-ols-cache-only", false, "consult the local index only")
}

func openTermIndex() (*ontology.SQLiteStore, *config.Config, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := ontology.OpenSQLiteStore(cfg.Ontology.CachePath)
	if err != nil {
		return nil, nil, cli.Fatal(err)
	}
	return store, cfg, nil
}

func runOntologyImport(cmd *cobra.Command, args []string) error {
	store, _, err := openTermIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	total := 0
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return cli.Fatal(err)
		}
		n, err := store.Import(cmd.Context(), f, ontologyFlags.ontology)
		f.Close()
		if err != nil {
			return cli.Fatal(fmt.Errorf("failed to import %q: %w", path, err))
		}
		total += n
		fmt.Fprintf(out, "✓ %s: %d terms\n", path, n)
	}
	fmt.Fprintf(out, "✓ Imported %d terms into %s\n", total, store.Path())
	return nil
}

func runOntologyLookup(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if ontologyFlags.cacheOnly && cfg.Ontology.Mode == config.OntologyModeOLS {
		cfg.Ontology.Mode = config.OntologyModeCache
	}
	if cfg.Ontology.Mode == config.OntologyModeOffline {
		return cli.Fatal(fmt.Errorf("ontology lookups are disabled in offline mode"))
	}

	p := &pipeline{cfg: cfg, logger: logger.Slog()}
	resolver, err := p.ontologyResolver()
	if err != nil {
		return cli.Fatal(err)
	}
	defer p.Close()

	m, err := resolver.Lookup(cmd.Context(), args[0], args[1])
	if err != nil {
		return cli.Fatal(err)
	}

	out := cmd.OutOrStdout()
	if !m.Found {
		fmt.Fprintf(out, "✗ %q not found in %s\n", args[1], m.Ontology)
		return cli.Invalid()
	}
	fmt.Fprintf(out, "✓ %q found in %s", args[1], m.Ontology)
	if m.ID != "" {
		fmt.Fprintf(out, " (%s)", m.ID)
	}
	fmt.Fprintln(out)
	return nil
}

func runOntologyStats(cmd *cobra.Command, args []string) error {
	store, _, err := openTermIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.Ontologies(cmd.Context())
	if err != nil {
		return cli.Fatal(err)
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ONTOLOGY\tTERMS")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, counts[name])
	}
	return tw.Flush()
}
