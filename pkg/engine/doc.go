// Package engine binds SDRF tables to resolved templates and evaluates
// compiled validation plans against them.
//
// Match compares the table headers with the declared columns and reports
// missing, duplicated and unrecognized columns. Engine.Evaluate runs the
// table validators, the header findings and every cell check, and hands the
// findings to report.New:
//
//	resolved, err := resolver.Resolve("human")
//	plan, err := registry.Compile(resolved)
//	eng, err := engine.New(engine.FromConfig(cfg.Validation))
//	rep, err := eng.Evaluate(ctx, plan, table)
//	os.Exit(rep.ExitCode())
package engine
