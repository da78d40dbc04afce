package template

import "fmt"

// Requirement governs what happens when a column is absent from a table.
type Requirement string

const (
	// RequirementRequired makes a missing column an error.
	RequirementRequired Requirement = "required"
	// RequirementRecommended makes a missing column a warning.
	RequirementRecommended Requirement = "recommended"
	// RequirementOptional makes a missing column unremarkable.
	RequirementOptional Requirement = "optional"
)

// Cardinality governs how many times a header may appear in a table.
type Cardinality string

const (
	// CardinalityUnique allows exactly one occurrence.
	CardinalityUnique Cardinality = "unique"
	// CardinalityMultiple allows one or more occurrences.
	CardinalityMultiple Cardinality = "multiple"
)

// ValueType is the declared type of a column's values.
type ValueType string

const (
	// TypeString accepts any value.
	TypeString ValueType = "string"
	// TypeInteger requires values to parse as base-10 integers.
	TypeInteger ValueType = "integer"
)

// Template is a named set of column specifications and table-level rules.
// A template may extend exactly one parent template.
type Template struct {
	// Name uniquely identifies the template (e.g., "human").
	Name string `yaml:"name" json:"name"`

	// Description is a human readable summary.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Extends is the name of the parent template, empty for roots.
	Extends string `yaml:"extends,omitempty" json:"extends,omitempty"`

	// Columns are the declared columns in order.
	Columns []ColumnSpec `yaml:"columns,omitempty" json:"columns,omitempty"`

	// Validators are table-level rules.
	Validators []ValidatorSpec `yaml:"validators,omitempty" json:"validators,omitempty"`

	// Source is the file or embedded path the template was loaded from.
	Source string `yaml:"-" json:"-"`
}

// ColumnSpec describes one expected column.
type ColumnSpec struct {
	Name               string          `yaml:"name" json:"name"`
	Description        string          `yaml:"description,omitempty" json:"description,omitempty"`
	Requirement        Requirement     `yaml:"requirement" json:"requirement"`
	Cardinality        Cardinality     `yaml:"cardinality" json:"cardinality"`
	AllowNotApplicable bool            `yaml:"allow_not_applicable" json:"allow_not_applicable"`
	AllowNotAvailable  bool            `yaml:"allow_not_available" json:"allow_not_available"`
	Type               ValueType       `yaml:"type,omitempty" json:"type,omitempty"`
	Validators         []ValidatorSpec `yaml:"validators,omitempty" json:"validators,omitempty"`
}

// IsStructural reports whether the column takes part in ordering checks
// (required and recommended columns do, optional ones do not).
func (c ColumnSpec) IsStructural() bool {
	return c.Requirement == RequirementRequired || c.Requirement == RequirementRecommended
}

// ValidatorSpec references a registered validator and its configuration.
type ValidatorSpec struct {
	Name   string         `yaml:"validator_name" json:"validator_name"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Resolved is a template with its extends chain folded into one flat,
// concrete rule set. It is immutable once produced by a Resolver.
type Resolved struct {
	// Name is the name of the leaf template.
	Name string `json:"name"`

	// Description is the leaf template's description.
	Description string `json:"description,omitempty"`

	// Chain lists the folded template names from root to leaf.
	Chain []string `json:"chain"`

	// Columns holds inherited columns first (overrides kept in place),
	// followed by columns introduced further down the chain.
	Columns []ColumnSpec `json:"columns"`

	// Validators holds table-level validators, parent first.
	Validators []ValidatorSpec `json:"validators,omitempty"`

	index map[string]int
}

// Column returns the column spec with the given name.
func (r *Resolved) Column(name string) (ColumnSpec, bool) {
	i, ok := r.index[name]
	if !ok {
		return ColumnSpec{}, false
	}
	return r.Columns[i], true
}

// ColumnIndex returns the declaration position of a column, or -1.
func (r *Resolved) ColumnIndex(name string) int {
	if i, ok := r.index[name]; ok {
		return i
	}
	return -1
}

// ColumnNames returns the declared column names in order.
func (r *Resolved) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// ValidatorNames returns the distinct validator names referenced by the
// template, table-level first, then column-level in column order.
func (r *Resolved) ValidatorNames() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(specs []ValidatorSpec) {
		for _, v := range specs {
			if !seen[v.Name] {
				seen[v.Name] = true
				names = append(names, v.Name)
			}
		}
	}
	add(r.Validators)
	for _, c := range r.Columns {
		add(c.Validators)
	}
	return names
}

func (r *Resolved) reindex() {
	r.index = make(map[string]int, len(r.Columns))
	for i, c := range r.Columns {
		r.index[c.Name] = i
	}
}

// String implements fmt.Stringer.
func (r *Resolved) String() string {
	return fmt.Sprintf("%s (%d columns, %d table validators)", r.Name, len(r.Columns), len(r.Validators))
}
