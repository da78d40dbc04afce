// Package history records validation runs in a local SQLite database so
// results can be listed, inspected and compared over time.
//
// Each run stores its summary counts and the full ordered finding list.
// Runs are identified by a random UUID. A Pruner enforces the retention
// policy (maximum age, maximum number of runs) and a Scheduler runs it on
// a cron schedule in watch mode.
package history
