package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/ontology"
	"sdrf-pipelines/sdrfcheck/pkg/report"
	"sdrf-pipelines/sdrfcheck/pkg/sdrf"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/metrics"
	"sdrf-pipelines/sdrfcheck/pkg/template"
	"sdrf-pipelines/sdrfcheck/pkg/validation"
)

const engineTemplate = `
name: engine
validators:
  - validator_name: trailing_whitespace_validator
columns:
  - name: source name
    requirement: required
    allow_not_applicable: false
    allow_not_available: false
  - name: characteristics[organism]
    requirement: required
    validators:
      - validator_name: ontology
        params:
          ontologies: [ncbitaxon]
          examples: [homo sapiens]
  - name: comment[fraction identifier]
    requirement: required
    allow_not_available: true
    type: integer
  - name: comment[modification parameters]
    requirement: recommended
    cardinality: multiple
    allow_not_applicable: true
    validators:
      - validator_name: pattern
        params:
          pattern: 'NT=[^;]+(;[A-Z]{2}=[^;]+)*'
  - name: comment[file uri]
    requirement: optional
`

var engineHeaders = []string{
	"source name",
	"characteristics[organism]",
	"comment[fraction identifier]",
	"comment[modification parameters]",
	"comment[modification parameters]",
}

func organisms() *ontology.StaticResolver {
	return ontology.NewStaticResolver(
		ontology.Term{Ontology: "ncbitaxon", Label: "homo sapiens", ID: "NCBITaxon:9606"},
		ontology.Term{Ontology: "ncbitaxon", Label: "mus musculus", ID: "NCBITaxon:10090"},
	)
}

// countingResolver counts lookups before delegating.
type countingResolver struct {
	next  ontology.Resolver
	calls atomic.Int64
}

func (r *countingResolver) Lookup(ctx context.Context, ont, term string) (ontology.Match, error) {
	r.calls.Add(1)
	return r.next.Lookup(ctx, ont, term)
}

func compile(t *testing.T, resolver ontology.Resolver, docs ...string) *validation.Plan {
	t.Helper()
	reg := template.NewRegistry()
	var last string
	for _, doc := range docs {
		tmpl, err := template.Parse([]byte(doc), "test.yaml")
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if err := reg.Register(tmpl); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		last = tmpl.Name
	}
	return compileFrom(t, reg, last, resolver)
}

func compileFrom(t *testing.T, src template.Source, name string, resolver ontology.Resolver) *validation.Plan {
	t.Helper()
	validators := validation.NewDefaultRegistry(validation.WithOntologyResolver(resolver))
	resolved, err := template.NewResolver(src, template.WithValidatorCatalog(validators)).Resolve(name)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	plan, err := validators.Compile(resolved)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return plan
}

func newTable(t *testing.T, headers []string, rows ...[]string) *sdrf.Table {
	t.Helper()
	tbl, err := sdrf.NewTable(headers, rows)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return tbl
}

func newEngine(t *testing.T, cfg *EngineConfig, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func evaluate(t *testing.T, e *Engine, plan *validation.Plan, tbl *sdrf.Table) *report.Report {
	t.Helper()
	rep, err := e.Evaluate(context.Background(), plan, tbl)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	return rep
}

func byValidator(rep *report.Report, name string) []report.Finding {
	var out []report.Finding
	for _, f := range rep.Findings {
		if f.Validator == name {
			out = append(out, f)
		}
	}
	return out
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []*EngineConfig{
		{Parallelism: 0},
		{Parallelism: 1, MaxErrors: -1},
	}
	for _, cfg := range tests {
		if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("New(%+v) error = %v, want ErrInvalidConfig", cfg, err)
		}
	}
	if _, err := New(nil); err != nil {
		t.Errorf("New(nil) error = %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.ValidationConfig{Parallelism: 3, MaxErrors: 10})
	if cfg.Parallelism != 3 || cfg.MaxErrors != 10 {
		t.Errorf("FromConfig() = %+v", cfg)
	}
}

func TestEvaluate_NilArguments(t *testing.T) {
	e := newEngine(t, nil)
	plan := compile(t, organisms(), engineTemplate)

	if _, err := e.Evaluate(context.Background(), nil, newTable(t, engineHeaders)); !errors.Is(err, ErrNilPlan) {
		t.Errorf("nil plan error = %v", err)
	}
	if _, err := e.Evaluate(context.Background(), plan, nil); !errors.Is(err, ErrNilTable) {
		t.Errorf("nil table error = %v", err)
	}
}

func TestEvaluate_ValidTable(t *testing.T) {
	plan := compile(t, organisms(), engineTemplate)
	tbl := newTable(t, engineHeaders,
		[]string{"s1", "Homo sapiens", "1", "NT=Oxidation;MT=Variable", "not applicable"},
		[]string{"s2", "NT=mus musculus;AC=NCBITaxon:10090", "not available", "NT=Carbamidomethyl;TA=C", "NT=Oxidation"},
	)

	rep := evaluate(t, newEngine(t, &EngineConfig{Parallelism: 1}), plan, tbl)
	if !rep.IsValid() || rep.Counts.Total() != 0 {
		t.Fatalf("expected a clean report, got %v", rep.Findings)
	}
	if rep.ExitCode() != report.ExitCodeValid {
		t.Errorf("ExitCode() = %d", rep.ExitCode())
	}
	if rep.TotalRows != 2 || rep.RowsEvaluated != 2 || rep.Incomplete {
		t.Errorf("rows = %d/%d incomplete=%v", rep.RowsEvaluated, rep.TotalRows, rep.Incomplete)
	}
}

func TestEvaluate_TrailingWhitespace(t *testing.T) {
	plan := compile(t, organisms(), engineTemplate)
	tbl := newTable(t, engineHeaders,
		[]string{"s1", "Homo sapiens ", "1", "NT=Oxidation", "NT=Oxidation"},
	)

	rep := evaluate(t, newEngine(t, nil), plan, tbl)
	if len(rep.Findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(rep.Findings), rep.Findings)
	}
	f := rep.Findings[0]
	if f.Validator != validation.TrailingWhitespace || f.Column != "characteristics[organism]" || f.RowIndex() != 0 {
		t.Errorf("finding = %+v", f)
	}
	if f.Severity != report.SeverityError {
		t.Errorf("severity = %s", f.Severity)
	}
}

func TestEvaluate_IntegerColumn(t *testing.T) {
	plan := compile(t, organisms(), engineTemplate)
	tbl := newTable(t, engineHeaders,
		[]string{"s1", "homo sapiens", "abc", "NT=Oxidation", "NT=Oxidation"},
		[]string{"s2", "homo sapiens", "3", "NT=Oxidation", "NT=Oxidation"},
		[]string{"s3", "homo sapiens", "not available", "NT=Oxidation", "NT=Oxidation"},
	)

	rep := evaluate(t, newEngine(t, nil), plan, tbl)
	if len(rep.Findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(rep.Findings), rep.Findings)
	}
	f := rep.Findings[0]
	if f.Validator != validation.TypeCheck || f.RowIndex() != 0 || f.Value != "abc" {
		t.Errorf("finding = %+v", f)
	}
}

func TestEvaluate_Sentinels(t *testing.T) {
	plan := compile(t, organisms(), engineTemplate)
	tbl := newTable(t, engineHeaders,
		// not applicable is not allowed in the integer column; the type
		// check must not fire as well
		[]string{"s1", "homo sapiens", "Not Applicable", "NT=Oxidation", "NT=Oxidation"},
		// not available is not allowed in source name
		[]string{"not available", "homo sapiens", "1", "not applicable", "NT=Oxidation"},
	)

	rep := evaluate(t, newEngine(t, nil), plan, tbl)
	got := byValidator(rep, validation.SentinelCheck)
	if len(got) != 2 || rep.Counts.Errors != 2 {
		t.Fatalf("findings = %v", rep.Findings)
	}
	if got[0].Column != "comment[fraction identifier]" || got[0].RowIndex() != 0 {
		t.Errorf("first sentinel finding = %+v", got[0])
	}
	if got[1].Column != "source name" || got[1].RowIndex() != 1 {
		t.Errorf("second sentinel finding = %+v", got[1])
	}
	if !strings.Contains(got[0].Message, `"not applicable" is not allowed`) {
		t.Errorf("message = %q", got[0].Message)
	}
}

func TestEvaluate_EmptyValuesReachCellChecks(t *testing.T) {
	resolver := &countingResolver{next: organisms()}
	plan := compile(t, resolver, engineTemplate)
	tbl := newTable(t, engineHeaders,
		[]string{"s1", "", "", "", "NT=Oxidation"},
	)

	rep := evaluate(t, newEngine(t, nil), plan, tbl)

	var got []string
	for _, f := range rep.Findings {
		got = append(got, f.Validator+":"+f.Column)
	}
	want := []string{
		validation.Ontology + ":characteristics[organism]",
		validation.TypeCheck + ":comment[fraction identifier]",
		validation.Pattern + ":comment[modification parameters]",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("findings = %v, want %v", got, want)
	}
	if rep.IsValid() {
		t.Error("empty required values should make the report invalid")
	}
	if n := resolver.calls.Load(); n != 0 {
		t.Errorf("empty value was looked up %d times", n)
	}
}

func TestEvaluate_OntologyAndPattern(t *testing.T) {
	plan := compile(t, organisms(), engineTemplate)
	tbl := newTable(t, engineHeaders,
		[]string{"s1", "homo sapiens", "1", "NT=Oxidation", "Oxidation"},
		[]string{"s2", "homo sapien", "1", "NT=Oxidation", "NT=Oxidation"},
	)

	rep := evaluate(t, newEngine(t, nil), plan, tbl)
	if len(rep.Findings) != 2 {
		t.Fatalf("got %d findings: %v", len(rep.Findings), rep.Findings)
	}
	if f := rep.Findings[0]; f.Validator != validation.Pattern || f.RowIndex() != 0 || f.Value != "Oxidation" {
		t.Errorf("pattern finding = %+v", f)
	}
	if f := rep.Findings[1]; f.Validator != validation.Ontology || f.RowIndex() != 1 || f.Suggestion == "" {
		t.Errorf("ontology finding = %+v", f)
	}
}

func TestEvaluate_Ordering(t *testing.T) {
	plan := compile(t, organisms(), engineTemplate)
	headers := []string{"characteristics[organism]", "comment[fraction identifier]", "extra"}
	tbl := newTable(t, headers,
		[]string{"unknown", "x", "a "},
	)

	rep := evaluate(t, newEngine(t, nil), plan, tbl)

	var got []string
	for _, f := range rep.Findings {
		got = append(got, f.Validator+":"+f.Column)
	}
	want := []string{
		// findings without a row keep emission order
		StructureValidator + ":source name",
		StructureValidator + ":comment[modification parameters]",
		StructureValidator + ":extra",
		// row 0 in declaration order, undeclared columns last
		validation.Ontology + ":characteristics[organism]",
		validation.TypeCheck + ":comment[fraction identifier]",
		validation.TrailingWhitespace + ":extra",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order =\n%v\nwant\n%v", got, want)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	plan := compile(t, organisms(), engineTemplate)
	tbl := newTable(t, engineHeaders,
		[]string{"s1", "homo sapien", "x", "bad", "NT=ok"},
		[]string{"s2", "homo sapiens ", "2", "NT=a", "not available"},
	)
	e := newEngine(t, nil)

	first := evaluate(t, e, plan, tbl)
	second := evaluate(t, e, plan, tbl)
	if !reflect.DeepEqual(first, second) {
		t.Error("evaluating the same table twice gave different reports")
	}
}

func bigTable(t *testing.T, n int) *sdrf.Table {
	t.Helper()
	rows := make([][]string, n)
	for i := range rows {
		organism := "homo sapiens"
		fraction := fmt.Sprint(i % 7)
		mod := "NT=Oxidation"
		switch i % 5 {
		case 1:
			organism = "homo sapien"
		case 2:
			fraction = "f" + fraction
		case 3:
			mod = "Oxidation "
		}
		rows[i] = []string{fmt.Sprintf("s%d", i), organism, fraction, mod, "NT=Carbamidomethyl"}
	}
	return newTable(t, engineHeaders, rows...)
}

func TestEvaluate_ParallelDeterminism(t *testing.T) {
	plan := compile(t, ontology.NewCache(organisms()), engineTemplate)
	tbl := bigTable(t, 300)

	sequential := evaluate(t, newEngine(t, &EngineConfig{Parallelism: 1}), plan, tbl)
	for _, workers := range []int{2, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			parallel := evaluate(t, newEngine(t, &EngineConfig{Parallelism: workers}), plan, tbl)
			if !reflect.DeepEqual(sequential.Findings, parallel.Findings) {
				t.Error("parallel findings differ from the sequential run")
			}
			if sequential.Counts != parallel.Counts {
				t.Errorf("counts = %+v, want %+v", parallel.Counts, sequential.Counts)
			}
		})
	}
	if sequential.Counts.Errors == 0 {
		t.Fatal("test table should produce errors")
	}
}

// errorRows builds n rows holding exactly one error each.
func errorRows(t *testing.T, n int) *sdrf.Table {
	t.Helper()
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("s%d", i), "homo sapiens", "x", "NT=a", "NT=b"}
	}
	return newTable(t, engineHeaders, rows...)
}

func TestEvaluate_MaxErrors(t *testing.T) {
	plan := compile(t, organisms(), engineTemplate)
	tbl := errorRows(t, 10)

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			rep := evaluate(t, newEngine(t, &EngineConfig{Parallelism: workers, MaxErrors: 3}), plan, tbl)
			if !rep.Incomplete {
				t.Fatal("report should be incomplete")
			}
			if rep.RowsEvaluated != 4 || rep.Counts.Errors != 4 {
				t.Errorf("rows evaluated = %d, errors = %d; want 4, 4", rep.RowsEvaluated, rep.Counts.Errors)
			}
			if rep.TotalRows != 10 {
				t.Errorf("TotalRows = %d", rep.TotalRows)
			}
			if !strings.Contains(rep.IncompleteReason, "max errors 3") {
				t.Errorf("reason = %q", rep.IncompleteReason)
			}
		})
	}
}

func TestEvaluate_MaxErrorsBeforeRows(t *testing.T) {
	plan := compile(t, organisms(), engineTemplate)
	tbl := newTable(t, []string{"other"}, []string{"x"})

	rep := evaluate(t, newEngine(t, &EngineConfig{Parallelism: 1, MaxErrors: 1}), plan, tbl)
	if !rep.Incomplete || rep.RowsEvaluated != 0 {
		t.Errorf("incomplete = %v, rows evaluated = %d", rep.Incomplete, rep.RowsEvaluated)
	}
}

func TestEvaluate_CancelledBeforeStart(t *testing.T) {
	plan := compile(t, organisms(), engineTemplate)
	tbl := errorRows(t, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := newEngine(t, nil).Evaluate(ctx, plan, tbl)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !rep.Incomplete || rep.RowsEvaluated != 0 {
		t.Errorf("incomplete = %v, rows evaluated = %d", rep.Incomplete, rep.RowsEvaluated)
	}
	if !strings.Contains(rep.IncompleteReason, "cancel") {
		t.Errorf("reason = %q", rep.IncompleteReason)
	}
	for _, f := range rep.Findings {
		if !f.IsTableLevel() {
			t.Errorf("unexpected row finding %+v", f)
		}
	}
}

// cancellingResolver cancels the run when it sees the term "stop".
type cancellingResolver struct {
	next   ontology.Resolver
	cancel context.CancelFunc
}

func (r *cancellingResolver) Lookup(ctx context.Context, ont, term string) (ontology.Match, error) {
	if term == "stop" {
		r.cancel()
		return ontology.Match{}, ctx.Err()
	}
	return r.next.Lookup(ctx, ont, term)
}

func TestEvaluate_CancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	plan := compile(t, &cancellingResolver{next: organisms(), cancel: cancel}, engineTemplate)

	tbl := newTable(t, engineHeaders,
		[]string{"s0", "homo sapiens", "x", "NT=a", "NT=b"},
		[]string{"s1", "homo sapiens", "x", "NT=a", "NT=b"},
		[]string{"s2", "stop", "1", "NT=a", "NT=b"},
		[]string{"s3", "homo sapiens", "x", "NT=a", "NT=b"},
	)

	rep, err := newEngine(t, &EngineConfig{Parallelism: 1}).Evaluate(ctx, plan, tbl)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !rep.Incomplete || rep.RowsEvaluated != 2 {
		t.Fatalf("incomplete = %v, rows evaluated = %d", rep.Incomplete, rep.RowsEvaluated)
	}
	if rep.Counts.Errors != 2 || rep.Counts.Warnings != 0 {
		t.Errorf("counts = %+v, want the two type errors of the evaluated rows", rep.Counts)
	}
}

func TestEvaluate_Metrics(t *testing.T) {
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "t", Subsystem: "e"}, prometheus.NewRegistry())
	plan := compile(t, organisms(), engineTemplate)
	tbl := newTable(t, engineHeaders,
		[]string{"s1", "homo sapiens", "x", "NT=a", "NT=b"},
	)

	e := newEngine(t, nil, WithMetrics(collector))
	evaluate(t, e, plan, tbl)

	want := `
# HELP t_e_rows_evaluated_total Total number of SDRF data rows evaluated
# TYPE t_e_rows_evaluated_total counter
t_e_rows_evaluated_total 1
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(want), "t_e_rows_evaluated_total"); err != nil {
		t.Error(err)
	}
	if got, err := testutil.GatherAndCount(collector.Registry(), "t_e_findings_total"); err != nil || got != 1 {
		t.Errorf("findings series = %d (%v), want 1", got, err)
	}
}

func TestEvaluate_BuiltinChain(t *testing.T) {
	reg, err := template.NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("NewBuiltinRegistry() error = %v", err)
	}
	plan := compileFrom(t, reg, "human", ontology.NewStaticResolver())

	if got := plan.Template.Chain; !reflect.DeepEqual(got, []string{"minimum", "default", "human"}) {
		t.Fatalf("chain = %v", got)
	}
	disease, ok := plan.Template.Column("characteristics[disease]")
	if !ok || disease.AllowNotApplicable {
		t.Errorf("human should override disease to disallow not applicable: %+v", disease)
	}
	if plan.Template.ColumnIndex("characteristics[disease]") > plan.Template.ColumnIndex("comment[cleavage agent details]") {
		t.Error("overridden column should keep its inherited position")
	}

	minimum := compileFrom(t, reg, "minimum", ontology.NewStaticResolver())
	headers := minimum.Template.ColumnNames()[:11]
	row := make([]string, len(headers))
	for i := range row {
		row[i] = "x"
	}

	rep := evaluate(t, newEngine(t, nil), minimum, newTable(t, headers, row))
	if got := byValidator(rep, validation.MinColumns); len(got) != 1 {
		t.Errorf("min_columns findings = %v, want exactly one", got)
	} else if got[0].Message != "table has 11 columns, fewer than 12 columns required" {
		t.Errorf("message = %q", got[0].Message)
	}
}
