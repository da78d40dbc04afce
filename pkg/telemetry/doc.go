// Package telemetry groups the observability packages of sdrfcheck.
//
//   - logging: structured slog loggers with run-scoped context fields
//   - metrics: Prometheus metrics for runs, findings, ontology lookups and
//     templates
//   - tracing: OpenTelemetry tracing exported over OTLP/gRPC
//   - health: liveness and readiness checks for watch mode
package telemetry
