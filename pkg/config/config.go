package config

import "time"

// Config is the root configuration structure for sdrfcheck.
type Config struct {
	// Templates controls where templates are loaded from.
	Templates TemplatesConfig `yaml:"templates"`

	// Validation contains engine settings.
	Validation ValidationConfig `yaml:"validation"`

	// Ontology selects and configures the ontology term resolver.
	Ontology OntologyConfig `yaml:"ontology"`

	// History configures the store of past validation runs.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TemplatesConfig contains template loading configuration.
type TemplatesConfig struct {
	// Dir is an optional directory of user templates. User templates are
	// loaded after the builtin ones and replace builtins of the same name.
	Dir string `yaml:"dir"`

	// Default is the template used when none is given.
	// Default: "default"
	Default string `yaml:"default"`

	// Debounce delays reloads after template file changes in watch mode.
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce"`
}

// ValidationConfig contains engine configuration.
type ValidationConfig struct {
	// Parallelism is the number of rows evaluated concurrently.
	// Default: number of CPUs
	Parallelism int `yaml:"parallelism"`

	// MaxErrors stops evaluation once more error findings than this have
	// been produced. 0 means no limit.
	MaxErrors int `yaml:"max_errors"`

	// NormalizeHeaders lowercases table headers on read.
	// Default: true
	NormalizeHeaders bool `yaml:"normalize_headers"`
}

// Ontology resolver modes.
const (
	OntologyModeOLS     = "ols"
	OntologyModeCache   = "cache"
	OntologyModeOffline = "offline"
)

// OntologyConfig contains ontology lookup configuration.
type OntologyConfig struct {
	// Mode is "ols" (remote lookups backed by the local index), "cache"
	// (local index only) or "offline" (ontology checks disabled).
	// Default: "ols"
	Mode string `yaml:"mode"`

	// CachePath is the SQLite term index.
	// Default: "data/ontology.db"
	CachePath string `yaml:"cache_path"`

	// OLS configures the remote Ontology Lookup Service.
	OLS OLSConfig `yaml:"ols"`
}

// OLSConfig contains OLS client configuration.
type OLSConfig struct {
	// BaseURL of the OLS instance.
	// Default: "https://www.ebi.ac.uk/ols4"
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single request.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries for server errors.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// FailureThreshold consecutive failures mark the service unavailable.
	// Default: 3
	FailureThreshold int `yaml:"failure_threshold"`

	// RequestsPerSecond caps outgoing lookups.
	// Default: 5
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst of lookups allowed above the rate.
	// Default: 10
	Burst int `yaml:"burst"`
}

// HistoryConfig contains validation run history configuration.
type HistoryConfig struct {
	// Enabled records every validation run.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite history database.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// Retention controls pruning of old runs.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains history retention configuration.
type RetentionConfig struct {
	// Days is how long runs are kept. 0 keeps runs forever.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRuns caps the number of stored runs. 0 means no cap.
	MaxRuns int64 `yaml:"max_runs"`

	// Schedule is the cron expression for pruning in watch mode.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress serves the metrics endpoint in watch mode. Empty
	// disables the endpoint.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "sdrfcheck"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "validator"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are histogram buckets for run duration (seconds).
	// Default: [0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces sampled (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "sdrfcheck"
	ServiceName string `yaml:"service_name"`

	// Timeout bounds span exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
