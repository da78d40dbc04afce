package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sdrf-pipelines/sdrfcheck/pkg/cli"
	"sdrf-pipelines/sdrfcheck/pkg/sdrf"
)

var splitFlags struct {
	sdrf       string
	attributes []string
	prefix     string
	outputDir  string
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split an SDRF file into one file per attribute value",
	Long: `Split an SDRF file into one file per combination of attribute values.

Every output file keeps the full header row, repeated columns included, and
the rows of its group in file order. Files are named
<prefix>-<value>[-<value>...].sdrf.tsv; the prefix defaults to the input
file name without its ".sdrf.tsv" suffix. Rows with an empty attribute
value are left out.

Examples:
  sdrfcheck split --sdrf PXD000001.sdrf.tsv --attribute "characteristics[organism]"
  sdrfcheck split -s PXD000001.sdrf.tsv -a "characteristics[organism],comment[label]" -o split/`,
	Args: cobra.NoArgs,
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().StringVarP(&splitFlags.sdrf, "sdrf", "s", "", "SDRF file to split (required)")
	splitCmd.Flags().StringSliceVarP(&splitFlags.attributes, "attribute", "a", nil, "columns to split by, comma separated (required)")
	splitCmd.Flags().StringVarP(&splitFlags.prefix, "prefix", "p", "", "output file name prefix")
	splitCmd.Flags().StringVarP(&splitFlags.outputDir, "output-dir", "o", "", "output directory (default: the input file's directory)")
	splitCmd.MarkFlagRequired("sdrf")
	splitCmd.MarkFlagRequired("attribute")
}

func runSplit(cmd *cobra.Command, _ []string) error {
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}

	// headers are written back verbatim, so they are not lower-cased
	f, err := os.Open(splitFlags.sdrf)
	if err != nil {
		return cli.Fatal(err)
	}
	table, err := sdrf.Read(f, sdrf.ReadOptions{})
	f.Close()
	if err != nil {
		return cli.Fatal(fmt.Errorf("failed to read %q: %w", splitFlags.sdrf, err))
	}

	groups, skipped, err := sdrf.Split(table, splitFlags.attributes)
	if err != nil {
		return cli.Fatal(err)
	}
	if skipped > 0 {
		logger.Warn("rows with an empty split attribute were left out",
			"file", splitFlags.sdrf,
			"rows", skipped,
		)
	}

	dir := splitFlags.outputDir
	if dir == "" {
		dir = filepath.Dir(splitFlags.sdrf)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cli.Fatal(err)
	}
	prefix := splitFlags.prefix
	if prefix == "" {
		prefix = sdrf.SplitPrefix(splitFlags.sdrf)
	}

	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintln(out, "no rows to split")
		return nil
	}
	for _, g := range groups {
		path := filepath.Join(dir, sdrf.SplitFileName(prefix, g.Key))
		if err := sdrf.WriteFile(path, g.Table); err != nil {
			return cli.Fatal(err)
		}
		fmt.Fprintf(out, "✓ Wrote %s (%d rows)\n", path, g.Table.NumRows())
	}
	return nil
}
