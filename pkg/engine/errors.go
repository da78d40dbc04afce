package engine

import "errors"

// Common sentinel errors
var (
	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrNilPlan is returned when Evaluate is called without a plan.
	ErrNilPlan = errors.New("validation plan is nil")

	// ErrNilTable is returned when Evaluate is called without a table.
	ErrNilTable = errors.New("table is nil")
)
