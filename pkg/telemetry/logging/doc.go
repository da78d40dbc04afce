// Package logging provides structured logging on top of log/slog.
//
// Loggers are built from the telemetry.logging configuration section and
// write JSON, text or console output (stderr by default). Run-scoped fields
// (run ID, template, file) travel in the context:
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithTemplate(ctx, "human")
//	logger.WithContext(ctx).Info("validation finished", "errors", n)
package logging
