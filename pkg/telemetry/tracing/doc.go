// Package tracing configures OpenTelemetry tracing for sdrfcheck.
//
// With tracing disabled (the default) every span is a noop. When enabled,
// spans are batched and exported over OTLP/gRPC to the configured endpoint,
// and the provider is installed as the otel global so the engine and the
// ontology client report spans under one trace per validation run:
//
//	sdrfcheck.validate
//	├── template.resolve
//	├── engine.evaluate
//	│   └── ontology.ols.lookup (one per uncached term)
//	└── history.record
package tracing
