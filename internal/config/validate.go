package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the configuration for invalid or inconsistent values
func Validate(cfg *Config) error {
	var errors []string

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid server port: %d", cfg.Server.Port))
	}
	if cfg.Server.Heartbeat != "" {
		if d, err := time.ParseDuration(cfg.Server.Heartbeat); err != nil {
			errors = append(errors, fmt.Sprintf("invalid heartbeat interval: %s", cfg.Server.Heartbeat))
		} else if d < time.Second {
			errors = append(errors, "heartbeat interval must be at least 1s")
		}
	}

	validProviders := map[string]bool{
		"anthropic": true,
		"mock":      true,
	}
	if !validProviders[cfg.Provider.Name] {
		errors = append(errors, fmt.Sprintf("invalid provider: %s", cfg.Provider.Name))
	}

	validEmbedders := map[string]bool{
		"openai": true,
		"mock":   true,
	}
	if !validEmbedders[cfg.Embedder.Provider] {
		errors = append(errors, fmt.Sprintf("invalid embedder provider: %s", cfg.Embedder.Provider))
	}
	if cfg.Embedder.Dimensions < 0 {
		errors = append(errors, fmt.Sprintf("invalid embedder dimensions: %d", cfg.Embedder.Dimensions))
	}

	validMemoryDrivers := map[string]bool{
		"sqlite":  true,
		"chromem": true,
	}
	if !validMemoryDrivers[cfg.Memory.Driver] {
		errors = append(errors, fmt.Sprintf("invalid memory driver: %s", cfg.Memory.Driver))
	}
	if cfg.Memory.TopK < 1 {
		errors = append(errors, fmt.Sprintf("memory top_k must be positive, got %d", cfg.Memory.TopK))
	}
	for _, cat := range cfg.Memory.PersistentCategories {
		if !validCategories[cat] {
			errors = append(errors, fmt.Sprintf("invalid persistent category: %s", cat))
		}
	}

	if cfg.Store.Driver != "sqlite" {
		errors = append(errors, fmt.Sprintf("invalid store driver: %s", cfg.Store.Driver))
	}

	if cfg.Defaults.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Defaults.Timeout); err != nil {
			errors = append(errors, fmt.Sprintf("invalid timeout: %s", cfg.Defaults.Timeout))
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errors = append(errors, fmt.Sprintf("invalid log level: %s", cfg.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		errors = append(errors, fmt.Sprintf("invalid log format: %s", cfg.Logging.Format))
	}

	if len(errors) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// validCategories mirrors the memory record categories the classifier can emit.
var validCategories = map[string]bool{
	"identity":            true,
	"preference":          true,
	"communication":       true,
	"moodPatterns":        true,
	"boundaries":          true,
	"relationshipHistory": true,
	"personalSymbols":     true,
	"aspirations":         true,
	"other":               true,
}
