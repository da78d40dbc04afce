package engine

import (
	"fmt"
	"runtime"

	"sdrf-pipelines/sdrfcheck/pkg/config"
)

// EngineConfig controls how rows are evaluated.
type EngineConfig struct {
	// Parallelism is the number of concurrent row workers.
	// Default: runtime.NumCPU().
	Parallelism int

	// MaxErrors stops evaluation once more than this many error findings
	// have been collected. Zero means no limit.
	MaxErrors int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Parallelism: runtime.NumCPU(),
	}
}

// FromConfig builds an EngineConfig from the validation config section.
func FromConfig(cfg config.ValidationConfig) *EngineConfig {
	return &EngineConfig{
		Parallelism: cfg.Parallelism,
		MaxErrors:   cfg.MaxErrors,
	}
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be at least 1, got %d", ErrInvalidConfig, c.Parallelism)
	}
	if c.MaxErrors < 0 {
		return fmt.Errorf("%w: max errors must not be negative, got %d", ErrInvalidConfig, c.MaxErrors)
	}
	return nil
}
