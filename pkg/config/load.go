package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override (e.g. SDRFCHECK_ONTOLOGY_MODE).
const EnvPrefix = "SDRFCHECK_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded over Default(), so omitted fields keep their default
// values. The result is validated. Environment variables are not applied;
// use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides, which take precedence over the file.
//
// The loading sequence is:
// 1. Load YAML from file (defaults for omitted fields)
// 2. Apply environment variable overrides
// 3. Validate final configuration
//
// An empty path, or a path that does not exist, yields the defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path != "" {
		loaded, err := LoadConfig(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
			cfg = Default()
		default:
			return nil, err
		}
	} else {
		cfg = Default()
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies SDRFCHECK_SECTION_FIELD environment variables.
// A malformed value is an error rather than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	e := &envReader{}

	// Templates
	e.str("TEMPLATES_DIR", &cfg.Templates.Dir)
	e.str("TEMPLATES_DEFAULT", &cfg.Templates.Default)
	e.duration("TEMPLATES_DEBOUNCE", &cfg.Templates.Debounce)

	// Validation
	e.int("VALIDATION_PARALLELISM", &cfg.Validation.Parallelism)
	e.int("VALIDATION_MAX_ERRORS", &cfg.Validation.MaxErrors)
	e.bool("VALIDATION_NORMALIZE_HEADERS", &cfg.Validation.NormalizeHeaders)

	// Ontology
	e.str("ONTOLOGY_MODE", &cfg.Ontology.Mode)
	e.str("ONTOLOGY_CACHE_PATH", &cfg.Ontology.CachePath)
	e.str("ONTOLOGY_OLS_BASE_URL", &cfg.Ontology.OLS.BaseURL)
	e.duration("ONTOLOGY_OLS_TIMEOUT", &cfg.Ontology.OLS.Timeout)
	e.int("ONTOLOGY_OLS_MAX_RETRIES", &cfg.Ontology.OLS.MaxRetries)
	e.float("ONTOLOGY_OLS_REQUESTS_PER_SECOND", &cfg.Ontology.OLS.RequestsPerSecond)

	// History
	e.bool("HISTORY_ENABLED", &cfg.History.Enabled)
	e.str("HISTORY_PATH", &cfg.History.Path)
	e.int("HISTORY_RETENTION_DAYS", &cfg.History.Retention.Days)
	e.str("HISTORY_RETENTION_SCHEDULE", &cfg.History.Retention.Schedule)

	// Telemetry
	e.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	e.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	e.bool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	e.str("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	e.bool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	e.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	e.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	if len(e.errs) > 0 {
		return ValidationError{Errors: e.errs}
	}
	return nil
}

// envReader reads typed overrides and collects parse failures.
type envReader struct {
	errs []FieldError
}

func (e *envReader) lookup(name string) (string, bool) {
	val := os.Getenv(EnvPrefix + name)
	return val, val != ""
}

func (e *envReader) fail(name, msg string) {
	e.errs = append(e.errs, FieldError{Field: EnvPrefix + name, Message: msg})
}

func (e *envReader) str(name string, dst *string) {
	if val, ok := e.lookup(name); ok {
		*dst = val
	}
}

func (e *envReader) int(name string, dst *int) {
	if val, ok := e.lookup(name); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			e.fail(name, fmt.Sprintf("invalid integer %q", val))
			return
		}
		*dst = i
	}
}

func (e *envReader) bool(name string, dst *bool) {
	if val, ok := e.lookup(name); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			e.fail(name, fmt.Sprintf("invalid boolean %q", val))
			return
		}
		*dst = b
	}
}

func (e *envReader) float(name string, dst *float64) {
	if val, ok := e.lookup(name); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			e.fail(name, fmt.Sprintf("invalid number %q", val))
			return
		}
		*dst = f
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if val, ok := e.lookup(name); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			e.fail(name, fmt.Sprintf("invalid duration %q", val))
			return
		}
		*dst = d
	}
}
