// Package validation holds the validator registry and the built-in
// validators.
//
// A Registry maps validator names to factories. Compile turns a resolved
// template into a Plan of instantiated table and cell validators, failing
// on unknown names, unknown or malformed parameters and validators used
// at a scope they do not support.
//
// The built-ins are min_columns, trailing_whitespace_validator,
// column_order, empty_cells, pattern and ontology. CheckSentinel and
// CheckType implement the implicit per-cell checks every column carries.
package validation
