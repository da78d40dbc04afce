package template

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// maxTemplateSize bounds template files; real templates are a few KB.
const maxTemplateSize = 1 << 20

var (
	templateKeys  = []string{"name", "description", "extends", "columns", "validators"}
	columnKeys    = []string{"name", "description", "requirement", "cardinality", "allow_not_applicable", "allow_not_available", "type", "validators"}
	validatorKeys = []string{"validator_name", "params"}
)

// yamlTemplate is the intermediate structure decoded from a template file.
type yamlTemplate struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Extends     string          `yaml:"extends"`
	Columns     []yamlColumn    `yaml:"columns"`
	Validators  []yamlValidator `yaml:"validators"`
}

type yamlColumn struct {
	Name               string          `yaml:"name"`
	Description        string          `yaml:"description"`
	Requirement        string          `yaml:"requirement"`
	Cardinality        string          `yaml:"cardinality"`
	AllowNotApplicable bool            `yaml:"allow_not_applicable"`
	AllowNotAvailable  bool            `yaml:"allow_not_available"`
	Type               string          `yaml:"type"`
	Validators         []yamlValidator `yaml:"validators"`

	node *yaml.Node
}

// UnmarshalYAML keeps the original node for line numbers.
func (c *yamlColumn) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlColumn
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = yamlColumn(p)
	c.node = node
	return nil
}

type yamlValidator struct {
	Name   string         `yaml:"validator_name"`
	Params map[string]any `yaml:"params"`

	node *yaml.Node
}

// UnmarshalYAML keeps the original node for line numbers.
func (v *yamlValidator) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlValidator
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*v = yamlValidator(p)
	v.node = node
	return nil
}

// ParseFile reads and parses a template file.
func ParseFile(path string) (*Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ParseError{Source: path, Message: "failed to access file", Cause: err}
	}
	if info.Size() > maxTemplateSize {
		return nil, &ParseError{
			Source:  path,
			Message: fmt.Sprintf("file size %d exceeds maximum %d bytes", info.Size(), maxTemplateSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Message: "failed to read file", Cause: err}
	}
	return Parse(data, path)
}

// ParseFS reads and parses a template from a file system.
func ParseFS(fsys fs.FS, path string) (*Template, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, &ParseError{Source: path, Message: "failed to read file", Cause: err}
	}
	return Parse(data, path)
}

// Parse parses template YAML. Syntax problems yield a *ParseError;
// structural problems are accumulated into an *ErrorList.
func Parse(data []byte, source string) (*Template, error) {
	if len(data) > maxTemplateSize {
		return nil, &ParseError{
			Source:  source,
			Message: fmt.Sprintf("data size %d exceeds maximum %d bytes", len(data), maxTemplateSize),
		}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Source: source, Message: "YAML parsing failed", Cause: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &ParseError{Source: source, Message: "empty template document"}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Source: source, Line: root.Line, Message: "template must be a YAML mapping"}
	}

	var yt yamlTemplate
	if err := root.Decode(&yt); err != nil {
		return nil, &ParseError{Source: source, Line: root.Line, Message: "template does not match the expected structure", Cause: err}
	}

	b := &builder{source: source}
	tmpl := b.buildTemplate(&yt, root)
	if err := b.errs.ToError(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// builder converts the intermediate YAML structures into a Template while
// collecting every structural error it encounters.
type builder struct {
	source string
	errs   ErrorList
}

func (b *builder) loc(node *yaml.Node) Location {
	if node == nil {
		return Location{Source: b.source}
	}
	return Location{Source: b.source, Line: node.Line, Column: node.Column}
}

func (b *builder) checkKeys(node *yaml.Node, allowed []string, what string) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !slices.Contains(allowed, key.Value) {
			b.errs.Add(
				fmt.Sprintf("unknown %s field %q", what, key.Value),
				b.loc(key),
				SuggestName(key.Value, allowed),
			)
		}
	}
}

func (b *builder) buildTemplate(yt *yamlTemplate, root *yaml.Node) *Template {
	b.checkKeys(root, templateKeys, "template")

	if yt.Name == "" {
		b.errs.Add("missing required field 'name'", b.loc(root), "Add 'name: my-template' to the template")
	}

	tmpl := &Template{
		Name:        yt.Name,
		Description: yt.Description,
		Extends:     yt.Extends,
		Source:      b.source,
	}

	seen := make(map[string]bool, len(yt.Columns))
	for i := range yt.Columns {
		col := b.buildColumn(&yt.Columns[i])
		if col.Name != "" {
			if seen[col.Name] {
				b.errs.Add(fmt.Sprintf("column %q is declared more than once", col.Name), b.loc(yt.Columns[i].node), "")
			}
			seen[col.Name] = true
		}
		tmpl.Columns = append(tmpl.Columns, col)
	}

	for i := range yt.Validators {
		tmpl.Validators = append(tmpl.Validators, b.buildValidator(&yt.Validators[i]))
	}

	return tmpl
}

func (b *builder) buildColumn(yc *yamlColumn) ColumnSpec {
	b.checkKeys(yc.node, columnKeys, "column")

	col := ColumnSpec{
		Name:               yc.Name,
		Description:        yc.Description,
		Requirement:        Requirement(yc.Requirement),
		Cardinality:        Cardinality(yc.Cardinality),
		AllowNotApplicable: yc.AllowNotApplicable,
		AllowNotAvailable:  yc.AllowNotAvailable,
		Type:               ValueType(yc.Type),
	}

	if col.Name == "" {
		b.errs.Add("column is missing required field 'name'", b.loc(yc.node), "")
	}

	switch col.Requirement {
	case RequirementRequired, RequirementRecommended, RequirementOptional:
	case "":
		b.errs.Add(fmt.Sprintf("column %q is missing required field 'requirement'", col.Name), b.loc(yc.node),
			"Valid values: required, recommended, optional")
	default:
		b.errs.Add(fmt.Sprintf("column %q has invalid requirement %q", col.Name, col.Requirement), b.loc(yc.node),
			SuggestName(string(col.Requirement), []string{"required", "recommended", "optional"}))
	}

	switch col.Cardinality {
	case CardinalityUnique, CardinalityMultiple:
	case "":
		col.Cardinality = CardinalityUnique
	default:
		b.errs.Add(fmt.Sprintf("column %q has invalid cardinality %q", col.Name, col.Cardinality), b.loc(yc.node),
			"Valid values: unique, multiple")
	}

	switch col.Type {
	case TypeString, TypeInteger:
	case "":
		col.Type = TypeString
	default:
		b.errs.Add(fmt.Sprintf("column %q has invalid type %q", col.Name, col.Type), b.loc(yc.node),
			"Valid values: string, integer")
	}

	for i := range yc.Validators {
		col.Validators = append(col.Validators, b.buildValidator(&yc.Validators[i]))
	}

	return col
}

func (b *builder) buildValidator(yv *yamlValidator) ValidatorSpec {
	b.checkKeys(yv.node, validatorKeys, "validator")

	if yv.Name == "" {
		b.errs.Add("validator is missing required field 'validator_name'", b.loc(yv.node), "")
	}

	return ValidatorSpec{Name: yv.Name, Params: yv.Params}
}

// Marshal renders a template back to YAML.
func Marshal(t *Template) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
