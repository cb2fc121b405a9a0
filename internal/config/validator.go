package config

import (
	"fmt"
	"strings"
)

var (
	logLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	logFormats = map[string]bool{"text": true, "json": true}
)

// Validate checks the config for:
//   - Required fields (version, input path)
//   - Positive engine sizes
//   - Known log level and format
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Version == "" {
		errs = append(errs, "version is required")
	}
	if cfg.Input.Path == "" {
		errs = append(errs, "input.path is required")
	}
	if cfg.Engine.Workers < 0 {
		errs = append(errs, fmt.Sprintf("engine.workers must be positive, got %d", cfg.Engine.Workers))
	}
	if cfg.Engine.QueueDepth < 0 {
		errs = append(errs, fmt.Sprintf("engine.queue_depth must be positive, got %d", cfg.Engine.QueueDepth))
	}
	if cfg.Engine.JobTimeoutMs < 0 {
		errs = append(errs, fmt.Sprintf("engine.job_timeout_ms must be positive, got %d", cfg.Engine.JobTimeoutMs))
	}
	if !logLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}
	if !logFormats[strings.ToLower(cfg.Log.Format)] {
		errs = append(errs, fmt.Sprintf("log.format %q is not one of text, json", cfg.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
