// Package template loads SDRF templates and resolves their inheritance.
//
// A template declares the columns an SDRF table must (or may) carry and the
// rules applied to them. Templates are plain YAML:
//
//	name: human
//	description: Human samples
//	extends: default
//	validators:
//	  - validator_name: min_columns
//	    params:
//	      min_columns: 12
//	columns:
//	  - name: characteristics[age]
//	    requirement: required      # required | recommended | optional
//	    cardinality: unique        # unique | multiple
//	    allow_not_applicable: false
//	    allow_not_available: true
//	    type: string               # string | integer
//	    validators:
//	      - validator_name: pattern
//	        params:
//	          pattern: '\d+Y'
//
// # Resolution
//
// Resolver walks the extends chain up to the root, then folds it root first:
// a column redeclared further down the chain replaces the inherited
// definition at its original position, new columns are appended, and
// table-level validators are concatenated parent first. A chain that revisits
// a template fails with *SchemaCycleError; a missing parent fails with
// *UnknownTemplateError. Resolved templates are memoised by name.
//
//	reg, _ := template.NewBuiltinRegistry()
//	resolver := template.NewResolver(reg)
//	resolved, err := resolver.Resolve("human")
//
// # Errors
//
// Syntax errors are reported as *ParseError. Structural problems (unknown
// fields, invalid enum values, duplicate columns) are accumulated into an
// *ErrorList, each entry carrying a source location and, where possible, a
// suggestion.
package template
