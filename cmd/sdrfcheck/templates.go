package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sdrf-pipelines/sdrfcheck/pkg/cli"
	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/template"
	"sdrf-pipelines/sdrfcheck/pkg/validation"
)

var templatesFlags struct {
	dir    string
	format string
	raw    bool
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect and lint validation templates",
	Long: `Inspect the builtin and user templates.

User templates are read from templates.dir (or --dir) and replace builtin
templates of the same name.`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesList,
}

var templatesShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a template with its extends chain folded in",
	Long: `Show a template with its extends chain folded in.

Use --raw to print the template exactly as declared, without inheritance.`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplatesShow,
}

var templatesValidatorsCmd = &cobra.Command{
	Use:   "validators",
	Short: "List the validators templates can reference",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesValidators,
}

var templatesLintCmd = &cobra.Command{
	Use:   "lint [NAME...]",
	Short: "Resolve and compile templates, reporting every problem",
	Long: `Resolve and compile templates, reporting every problem.

Each template's extends chain is folded and every validator it references is
instantiated with its parameters. With no arguments all templates are linted.`,
	RunE: runTemplatesLint,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd, templatesShowCmd, templatesValidatorsCmd, templatesLintCmd)

	templatesCmd.PersistentFlags().StringVar(&templatesFlags.dir, "dir", "", "user template directory (uses config if not specified)")
	templatesShowCmd.Flags().StringVarP(&templatesFlags.format, "format", "f", "yaml", "output format: yaml, json")
	templatesShowCmd.Flags().BoolVar(&templatesFlags.raw, "raw", false, "show the declared template without inheritance")
}

// templatePipeline builds a pipeline that never touches the ontology index.
func templatePipeline() (*pipeline, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if templatesFlags.dir != "" {
		cfg.Templates.Dir = templatesFlags.dir
	}
	cfg.Ontology.Mode = config.OntologyModeOffline

	p, err := newPipeline(cfg, logger.Slog(), nil)
	if err != nil {
		return nil, cli.Fatal(err)
	}
	return p, nil
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	p, err := templatePipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEXTENDS\tCOLUMNS\tSOURCE")
	for _, name := range p.templates.Names() {
		t, _ := p.templates.Get(name)
		extends := t.Extends
		if extends == "" {
			extends = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.Name, extends, len(t.Columns), t.Source)
	}
	return tw.Flush()
}

func runTemplatesShow(cmd *cobra.Command, args []string) error {
	p, err := templatePipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	name := args[0]
	out := cmd.OutOrStdout()

	var data any
	if templatesFlags.raw {
		t, ok := p.templates.Get(name)
		if !ok {
			return cli.Fatal(&template.UnknownTemplateError{
				Name:       name,
				Suggestion: template.SuggestName(name, p.templates.Names()),
			})
		}
		data = t
	} else {
		resolved, err := p.resolver.Resolve(name)
		if err != nil {
			return cli.Fatal(err)
		}
		data = resolved
	}

	switch strings.ToLower(templatesFlags.format) {
	case "json":
		return (&cli.JSONFormatter{Indent: true}).FormatTo(out, data)
	case "yaml", "":
		flat := flatten(data)
		b, err := template.Marshal(flat)
		if err != nil {
			return cli.Fatal(err)
		}
		if r, ok := data.(*template.Resolved); ok {
			fmt.Fprintf(out, "# chain: %s\n", strings.Join(r.Chain, " -> "))
			writeValidatorSummary(out, p.validators, r)
		}
		_, err = out.Write(b)
		return err
	}
	return cli.Fatal(fmt.Errorf("invalid format %q (valid: yaml, json)", templatesFlags.format))
}

// writeValidatorSummary lists each validator a resolved template uses with
// the scopes it may run at.
func writeValidatorSummary(w io.Writer, validators *validation.Registry, r *template.Resolved) {
	names := r.ValidatorNames()
	if len(names) == 0 {
		return
	}
	fmt.Fprintln(w, "# validators:")
	for _, name := range names {
		scope := "unknown"
		if def, ok := validators.Lookup(name); ok {
			scope = def.Scopes.String()
		}
		fmt.Fprintf(w, "#   %s (%s)\n", name, scope)
	}
}

// flatten renders a resolved template as a root template for YAML output.
func flatten(data any) *template.Template {
	switch v := data.(type) {
	case *template.Template:
		return v
	case *template.Resolved:
		return &template.Template{
			Name:        v.Name,
			Description: v.Description,
			Columns:     v.Columns,
			Validators:  v.Validators,
		}
	}
	return nil
}

func runTemplatesValidators(cmd *cobra.Command, args []string) error {
	p, err := templatePipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCOPE\tPARAMS\tDESCRIPTION")
	for _, def := range p.validators.Definitions() {
		params := strings.Join(def.Params, ",")
		if params == "" {
			params = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Name, def.Scopes, params, def.Description)
	}
	return tw.Flush()
}

func runTemplatesLint(cmd *cobra.Command, args []string) error {
	p, err := templatePipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	names := args
	if len(names) == 0 {
		names = p.templates.Names()
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, name := range names {
		plan, err := p.plan(name)
		if err != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "✓ %s (%s; %d cell validators)\n",
			name, strings.Join(plan.Template.Chain, " -> "), plan.CellValidatorCount())
	}

	if failed > 0 {
		return cli.Fatal(fmt.Errorf("%d of %d templates failed", failed, len(names)))
	}
	return nil
}
