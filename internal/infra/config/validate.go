package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

var validProviderTypes = map[string]bool{
	"openai":    true,
	"anthropic": true,
}

var validNameStrategies = map[string]bool{
	"fuzzy":     true,
	"substring": true,
}

// Validate checks cfg for structural correctness. It returns a
// *ValidationError when one or more problems are found, allowing callers
// to inspect all issues at once.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateCatalog(cfg, ve)
	validateMatcher(cfg, ve)
	validateTools(cfg, ve)
	validateLLM(cfg, ve)
	validateLogger(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCatalog(cfg *Config, ve *ValidationError) {
	if cfg.Catalog.ProgramsCSV == "" {
		ve.Add("catalog.programs_csv must not be empty")
	}
	if cfg.Catalog.PersonsCSV == "" {
		ve.Add("catalog.persons_csv must not be empty")
	}
}

func validateMatcher(cfg *Config, ve *ValidationError) {
	if !validNameStrategies[cfg.Matcher.NameStrategy] {
		ve.Add("matcher.name_strategy must be one of: fuzzy, substring (got %q)", cfg.Matcher.NameStrategy)
	}
	if cfg.Matcher.FuzzyThreshold < 0 || cfg.Matcher.FuzzyThreshold > 100 {
		ve.Add("matcher.fuzzy_threshold must be 0-100 (got %d)", cfg.Matcher.FuzzyThreshold)
	}
}

func validateTools(cfg *Config, ve *ValidationError) {
	if cfg.Tools.SearchCacheTTL < 0 {
		ve.Add("tools.search_cache_ttl must not be negative")
	}
	if cfg.Tools.SearchMaxQPS < 0 {
		ve.Add("tools.search_max_qps must not be negative")
	}
	if cfg.Tools.SearchPerMinute < 0 {
		ve.Add("tools.search_per_minute must not be negative")
	}
}

func validateLLM(cfg *Config, ve *ValidationError) {
	names := map[string]bool{}
	for i, p := range cfg.LLM.Providers {
		if p.Name == "" {
			ve.Add("llm.providers[%d].name must not be empty", i)
			continue
		}
		if names[p.Name] {
			ve.Add("llm.providers[%d]: duplicate provider name %q", i, p.Name)
		}
		names[p.Name] = true
		if !validProviderTypes[p.Type] {
			ve.Add("llm.providers[%d].type must be one of: openai, anthropic (got %q)", i, p.Type)
		}
	}
	if cfg.LLM.DefaultProvider != "" && len(cfg.LLM.Providers) > 0 && !names[cfg.LLM.DefaultProvider] {
		ve.Add("llm.default_provider %q is not a configured provider", cfg.LLM.DefaultProvider)
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		ve.Add("logger.level must be one of: debug, info, warn, error (got %q)", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json", "":
	default:
		ve.Add("logger.format must be one of: text, json (got %q)", cfg.Logger.Format)
	}
}
