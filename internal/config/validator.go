package config

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// ConfigurationError indicates an invalid configuration value. Unlike per-file
// failures this aborts the run up front: silently ignoring a bad threshold or
// glob would produce misleading facts.
type ConfigurationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Message)
}

// Validate checks the configuration for values that would corrupt an analysis
// run. It returns the first problem found as a *ConfigurationError.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return &ConfigurationError{Field: "project.root", Value: "", Message: "repository root is required"}
	}
	if fi, err := os.Stat(c.Project.Root); err != nil {
		return &ConfigurationError{Field: "project.root", Value: c.Project.Root, Message: "root path does not exist"}
	} else if !fi.IsDir() {
		return &ConfigurationError{Field: "project.root", Value: c.Project.Root, Message: "root path is not a directory"}
	}

	for _, pattern := range c.Scan.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return &ConfigurationError{Field: "scan.ignore", Value: pattern, Message: "invalid glob pattern"}
		}
	}

	if c.Scan.MaxFileSize <= 0 {
		return &ConfigurationError{Field: "scan.max_file_size", Value: c.Scan.MaxFileSize, Message: "must be positive"}
	}

	if c.Performance.ParallelFileWorkers < 0 {
		return &ConfigurationError{Field: "performance.workers", Value: c.Performance.ParallelFileWorkers, Message: "must be >= 0 (0 = auto)"}
	}
	if c.Performance.ExtractionCacheSize <= 0 {
		return &ConfigurationError{Field: "performance.extraction_cache_size", Value: c.Performance.ExtractionCacheSize, Message: "must be positive"}
	}
	if c.Performance.WatchDebounceMs < 0 {
		return &ConfigurationError{Field: "performance.watch_debounce_ms", Value: c.Performance.WatchDebounceMs, Message: "must be >= 0"}
	}

	if c.Clones.MinCloneTokens < 2 {
		return &ConfigurationError{Field: "clones.min_tokens", Value: c.Clones.MinCloneTokens, Message: "must be at least 2"}
	}
	if c.Clones.WinnowWindow < 1 {
		return &ConfigurationError{Field: "clones.winnow_window", Value: c.Clones.WinnowWindow, Message: "must be at least 1"}
	}

	thresholds := []struct {
		field string
		value int
	}{
		{"thresholds.function_lines", c.Thresholds.FunctionLines},
		{"thresholds.function_complexity", c.Thresholds.FunctionComplexity},
		{"thresholds.function_params", c.Thresholds.FunctionParams},
		{"thresholds.class_methods", c.Thresholds.ClassMethods},
		{"thresholds.function_fan_out", c.Thresholds.FunctionFanOut},
	}
	for _, th := range thresholds {
		if th.value <= 0 {
			return &ConfigurationError{Field: th.field, Value: th.value, Message: "must be positive"}
		}
	}

	return nil
}
