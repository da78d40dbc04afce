package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"sdrf-pipelines/sdrfcheck/pkg/ontology"
	"sdrf-pipelines/sdrfcheck/pkg/report"
)

// hint builds a finding suggestion from a description and examples.
func hint(description string, examples []string) string {
	var parts []string
	if description != "" {
		parts = append(parts, "expected "+description)
	}
	if len(examples) > 0 {
		parts = append(parts, "e.g. "+strings.Join(examples, ", "))
	}
	return strings.Join(parts, "; ")
}

type patternValidator struct {
	source     string
	re         *regexp.Regexp
	severity   report.Severity
	suggestion string
}

func newPattern(params Params, _ *Env) (Validator, error) {
	src, err := params.RequiredString("pattern")
	if err != nil {
		return nil, err
	}
	caseSensitive, err := params.Bool("case_sensitive", true)
	if err != nil {
		return nil, err
	}
	sev, err := params.Severity("error_level", report.SeverityError)
	if err != nil {
		return nil, err
	}
	description, err := params.String("description", "")
	if err != nil {
		return nil, err
	}
	examples, err := params.Strings("examples")
	if err != nil {
		return nil, err
	}

	expr := "^(?:" + src + ")$"
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &paramError{param: "pattern", message: "invalid regular expression", cause: err}
	}

	return &patternValidator{
		source:     src,
		re:         re,
		severity:   sev,
		suggestion: hint(description, examples),
	}, nil
}

func (v *patternValidator) Name() string { return Pattern }

func (v *patternValidator) ValidateCell(_ context.Context, c Cell) []report.Finding {
	if v.re.MatchString(c.Value) {
		return nil
	}
	f := report.CellFinding(v.severity, Pattern, c.Row, c.Column, c.Value,
		fmt.Sprintf("value %q does not match pattern %q", c.Value, v.source))
	return []report.Finding{f.WithSuggestion(v.suggestion)}
}

// ServiceUnavailableMessage is the warning emitted when no ontology could
// confirm a term and at least one could not be consulted.
const ServiceUnavailableMessage = "ontology check skipped (service unavailable)"

type ontologyValidator struct {
	ontologies []string
	resolver   ontology.Resolver
	severity   report.Severity
	suggestion string
}

// noopValidator stands in for checks whose dependency is not configured.
type noopValidator struct {
	name string
}

func (v noopValidator) Name() string { return v.name }

func (noopValidator) ValidateCell(context.Context, Cell) []report.Finding { return nil }

func newOntology(params Params, env *Env) (Validator, error) {
	onts, err := params.Strings("ontologies")
	if err != nil {
		return nil, err
	}
	if len(onts) == 0 {
		return nil, &paramError{param: "ontologies", message: "at least one ontology is required"}
	}
	for i, o := range onts {
		onts[i] = ontology.NormalizeOntology(o)
		if onts[i] == "" {
			return nil, &paramError{param: "ontologies", message: fmt.Sprintf("item %d is empty", i)}
		}
	}
	sev, err := params.Severity("error_level", report.SeverityError)
	if err != nil {
		return nil, err
	}
	description, err := params.String("description", "")
	if err != nil {
		return nil, err
	}
	examples, err := params.Strings("examples")
	if err != nil {
		return nil, err
	}

	if env == nil || env.Ontology == nil {
		return noopValidator{name: Ontology}, nil
	}

	return &ontologyValidator{
		ontologies: onts,
		resolver:   env.Ontology,
		severity:   sev,
		suggestion: hint(description, examples),
	}, nil
}

func (v *ontologyValidator) Name() string { return Ontology }

func (v *ontologyValidator) ValidateCell(ctx context.Context, c Cell) []report.Finding {
	term := ontology.ExtractTerm(c.Value)
	if strings.TrimSpace(term) == "" {
		f := report.CellFinding(v.severity, Ontology, c.Row, c.Column, c.Value,
			fmt.Sprintf("empty value is not a term of %s", describeOntologies(v.ontologies)))
		return []report.Finding{f.WithSuggestion(v.suggestion)}
	}

	unavailable := false
	for _, ont := range v.ontologies {
		m, err := v.resolver.Lookup(ctx, ont, term)
		if err != nil {
			unavailable = true
			continue
		}
		if m.Found {
			return nil
		}
	}

	if unavailable {
		return []report.Finding{
			report.CellFinding(report.SeverityWarning, Ontology, c.Row, c.Column, c.Value, ServiceUnavailableMessage),
		}
	}

	f := report.CellFinding(v.severity, Ontology, c.Row, c.Column, c.Value,
		fmt.Sprintf("term %q not found in %s", term, describeOntologies(v.ontologies)))
	return []report.Finding{f.WithSuggestion(v.suggestion)}
}

func describeOntologies(onts []string) string {
	if len(onts) == 1 {
		return fmt.Sprintf("ontology %q", onts[0])
	}
	quoted := make([]string, len(onts))
	for i, o := range onts {
		quoted[i] = fmt.Sprintf("%q", o)
	}
	return "ontologies " + strings.Join(quoted, ", ")
}
