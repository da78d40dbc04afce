package validation

// Built-in validator names.
const (
	MinColumns         = "min_columns"
	TrailingWhitespace = "trailing_whitespace_validator"
	ColumnOrder        = "column_order"
	EmptyCells         = "empty_cells"
	Pattern            = "pattern"
	Ontology           = "ontology"
)

// Names of the implicit checks that are not registered validators.
const (
	SentinelCheck = "sentinel"
	TypeCheck     = "type"
)

// Builtins returns the built-in validator definitions.
func Builtins() []Definition {
	return []Definition{
		{
			Name:        MinColumns,
			Description: "table must have at least min_columns distinct columns",
			Scopes:      ScopeTable,
			Params:      []string{"min_columns"},
			New:         newMinColumns,
		},
		{
			Name:        TrailingWhitespace,
			Description: "values must not start or end with whitespace",
			Scopes:      ScopeTable | ScopeCell,
			New:         newTrailingWhitespace,
		},
		{
			Name:        ColumnOrder,
			Description: "required and recommended columns must follow declaration order",
			Scopes:      ScopeTable,
			New:         newColumnOrder,
		},
		{
			Name:        EmptyCells,
			Description: "values must not be empty",
			Scopes:      ScopeTable,
			New:         newEmptyCells,
		},
		{
			Name:        Pattern,
			Description: "values must fully match a regular expression",
			Scopes:      ScopeCell,
			Params:      []string{"pattern", "case_sensitive", "error_level", "description", "examples"},
			New:         newPattern,
		},
		{
			Name:        Ontology,
			Description: "values must be terms of one of the listed ontologies",
			Scopes:      ScopeCell,
			Params:      []string{"ontologies", "error_level", "description", "examples"},
			New:         newOntology,
		},
	}
}
