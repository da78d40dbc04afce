package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "ontology.mode").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All field errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateTemplates(&cfg.Templates)...)
	errs = append(errs, validateValidation(&cfg.Validation)...)
	errs = append(errs, validateOntology(&cfg.Ontology)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateTemplates(t *TemplatesConfig) []FieldError {
	var errs []FieldError
	if t.Default == "" {
		errs = append(errs, FieldError{Field: "templates.default", Message: "must not be empty"})
	}
	if t.Debounce < 0 {
		errs = append(errs, FieldError{Field: "templates.debounce", Message: "must not be negative"})
	}
	return errs
}

func validateValidation(v *ValidationConfig) []FieldError {
	var errs []FieldError
	if v.Parallelism < 1 {
		errs = append(errs, FieldError{Field: "validation.parallelism", Message: "must be at least 1"})
	}
	if v.MaxErrors < 0 {
		errs = append(errs, FieldError{Field: "validation.max_errors", Message: "must not be negative"})
	}
	return errs
}

func validateOntology(o *OntologyConfig) []FieldError {
	var errs []FieldError

	switch o.Mode {
	case OntologyModeOLS, OntologyModeCache, OntologyModeOffline:
	default:
		errs = append(errs, FieldError{
			Field:   "ontology.mode",
			Message: fmt.Sprintf("invalid mode %q (valid: ols, cache, offline)", o.Mode),
		})
	}

	if o.Mode != OntologyModeOffline && o.CachePath == "" {
		errs = append(errs, FieldError{Field: "ontology.cache_path", Message: "must not be empty"})
	}

	if o.Mode == OntologyModeOLS {
		u, err := url.Parse(o.OLS.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   "ontology.ols.base_url",
				Message: fmt.Sprintf("invalid URL %q", o.OLS.BaseURL),
			})
		}
		if o.OLS.Timeout <= 0 {
			errs = append(errs, FieldError{Field: "ontology.ols.timeout", Message: "must be positive"})
		}
		if o.OLS.MaxRetries < 0 {
			errs = append(errs, FieldError{Field: "ontology.ols.max_retries", Message: "must not be negative"})
		}
		if o.OLS.RequestsPerSecond < 0 {
			errs = append(errs, FieldError{Field: "ontology.ols.requests_per_second", Message: "must not be negative"})
		}
	}

	return errs
}

func validateHistory(h *HistoryConfig) []FieldError {
	var errs []FieldError
	if !h.Enabled {
		return errs
	}
	if h.Path == "" {
		errs = append(errs, FieldError{Field: "history.path", Message: "must not be empty when history is enabled"})
	}
	if h.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "history.retention.days", Message: "must not be negative"})
	}
	if h.Retention.MaxRuns < 0 {
		errs = append(errs, FieldError{Field: "history.retention.max_runs", Message: "must not be negative"})
	}
	if _, err := cron.ParseStandard(h.Retention.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "history.retention.schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", h.Retention.Schedule, err),
		})
	}
	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(t.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q (valid: debug, info, warn, error)", t.Logging.Level),
		})
	}
	switch strings.ToLower(t.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q (valid: json, text, console)", t.Logging.Format),
		})
	}

	if t.Metrics.Enabled && !strings.HasPrefix(t.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}

	if t.Tracing.Enabled {
		if t.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "must not be empty when tracing is enabled"})
		}
		if t.Tracing.SampleRatio < 0 || t.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0.0 and 1.0"})
		}
	}

	return errs
}
