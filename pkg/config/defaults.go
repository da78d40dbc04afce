package config

import (
	"runtime"
	"time"
)

// Default values for configuration fields.
const (
	// Template defaults
	DefaultTemplate         = "default"
	DefaultTemplateDebounce = 500 * time.Millisecond

	// Validation defaults
	DefaultNormalizeHeaders = true

	// Ontology defaults
	DefaultOntologyMode        = OntologyModeOLS
	DefaultOntologyCachePath   = "data/ontology.db"
	DefaultOLSBaseURL          = "https://www.ebi.ac.uk/ols4"
	DefaultOLSTimeout          = 10 * time.Second
	DefaultOLSMaxRetries       = 2
	DefaultOLSFailureThreshold = 3
	DefaultOLSRequestsPerSec   = 5.0
	DefaultOLSBurst            = 10

	// History defaults
	DefaultHistoryEnabled           = false
	DefaultHistoryPath              = "data/history.db"
	DefaultHistoryRetentionDays     = 30
	DefaultHistoryRetentionSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "text"
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9464"
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "sdrfcheck"
	DefaultMetricsSubsystem     = "validator"
	DefaultTracingEnabled       = false
	DefaultTracingEndpoint      = "localhost:4317"
	DefaultTracingInsecure      = true
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingServiceName   = "sdrfcheck"
	DefaultTracingExportTimeout = 10 * time.Second
)

// DefaultDurationBuckets are the run duration histogram buckets.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

// DefaultParallelism is the default number of concurrent row workers.
func DefaultParallelism() int {
	return runtime.NumCPU()
}

// Default returns a configuration with every field at its default value.
// Boolean defaults live here because a YAML document decoded over this
// value only changes the booleans it mentions.
func Default() *Config {
	cfg := &Config{
		Validation: ValidationConfig{
			NormalizeHeaders: DefaultNormalizeHeaders,
		},
		History: HistoryConfig{
			Enabled: DefaultHistoryEnabled,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled:       DefaultMetricsEnabled,
				ListenAddress: DefaultMetricsListenAddress,
			},
			Tracing: TracingConfig{
				Enabled:  DefaultTracingEnabled,
				Insecure: DefaultTracingInsecure,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	applyTemplateDefaults(&cfg.Templates)
	applyValidationDefaults(&cfg.Validation)
	applyOntologyDefaults(&cfg.Ontology)
	applyHistoryDefaults(&cfg.History)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTemplateDefaults(t *TemplatesConfig) {
	if t.Default == "" {
		t.Default = DefaultTemplate
	}
	if t.Debounce == 0 {
		t.Debounce = DefaultTemplateDebounce
	}
}

func applyValidationDefaults(v *ValidationConfig) {
	if v.Parallelism == 0 {
		v.Parallelism = DefaultParallelism()
	}
}

func applyOntologyDefaults(o *OntologyConfig) {
	if o.Mode == "" {
		o.Mode = DefaultOntologyMode
	}
	if o.CachePath == "" {
		o.CachePath = DefaultOntologyCachePath
	}
	if o.OLS.BaseURL == "" {
		o.OLS.BaseURL = DefaultOLSBaseURL
	}
	if o.OLS.Timeout == 0 {
		o.OLS.Timeout = DefaultOLSTimeout
	}
	if o.OLS.MaxRetries == 0 {
		o.OLS.MaxRetries = DefaultOLSMaxRetries
	}
	if o.OLS.FailureThreshold == 0 {
		o.OLS.FailureThreshold = DefaultOLSFailureThreshold
	}
	if o.OLS.RequestsPerSecond == 0 {
		o.OLS.RequestsPerSecond = DefaultOLSRequestsPerSec
	}
	if o.OLS.Burst == 0 {
		o.OLS.Burst = DefaultOLSBurst
	}
}

func applyHistoryDefaults(h *HistoryConfig) {
	if h.Path == "" {
		h.Path = DefaultHistoryPath
	}
	if h.Retention.Days == 0 {
		h.Retention.Days = DefaultHistoryRetentionDays
	}
	if h.Retention.Schedule == "" {
		h.Retention.Schedule = DefaultHistoryRetentionSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingExportTimeout
	}
}
