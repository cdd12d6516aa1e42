package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Matcher.FuzzyThreshold != 60 {
		t.Errorf("fuzzy_threshold = %d, want default 60", cfg.Matcher.FuzzyThreshold)
	}
	if cfg.Tools.SearchBackend != "duckduckgo" {
		t.Errorf("search_backend = %q", cfg.Tools.SearchBackend)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
matcher:
  name_strategy: substring
tools:
  search_cache_ttl: 5m
llm:
  default_provider: gateway
  providers:
    - name: gateway
      type: openai
      base_url: https://llm-gateway.internal/v1
      model: gpt-4o-mini
      headers:
        x-api-key: secret
        x-selected-account-id: acct-1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Matcher.NameStrategy != "substring" {
		t.Errorf("name_strategy = %q", cfg.Matcher.NameStrategy)
	}
	// Untouched keys keep their defaults.
	if cfg.Matcher.FuzzyThreshold != 60 {
		t.Errorf("fuzzy_threshold = %d", cfg.Matcher.FuzzyThreshold)
	}
	if cfg.Tools.SearchCacheTTL != 5*time.Minute {
		t.Errorf("search_cache_ttl = %v", cfg.Tools.SearchCacheTTL)
	}

	if len(cfg.LLM.Providers) != 1 {
		t.Fatalf("providers = %d", len(cfg.LLM.Providers))
	}
	p := cfg.LLM.Providers[0]
	if p.Type != "openai" || p.Headers["x-selected-account-id"] != "acct-1" {
		t.Errorf("provider = %+v", p)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
matcher:
  name_strategy: soundex
  fuzzy_threshold: 140
llm:
  default_provider: ghost
  providers:
    - name: real
      type: carrier-pigeon
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("got %T, want *ValidationError", err)
	}
	if len(ve.Errors) != 4 {
		t.Errorf("got %d errors, want 4: %v", len(ve.Errors), ve.Errors)
	}
	for _, want := range []string{"name_strategy", "fuzzy_threshold", "type", "default_provider"} {
		if !strings.Contains(ve.Error(), want) {
			t.Errorf("error text missing %q: %s", want, ve.Error())
		}
	}
}

func TestValidateEmptyCatalogPaths(t *testing.T) {
	cfg := Defaults()
	cfg.Catalog.ProgramsCSV = ""
	cfg.Catalog.PersonsCSV = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "programs_csv") || !strings.Contains(err.Error(), "persons_csv") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateDuplicateProviderNames(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.DefaultProvider = "p"
	cfg.LLM.Providers = []ProviderConfig{
		{Name: "p", Type: "openai"},
		{Name: "p", Type: "anthropic"},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "duplicate provider name") {
		t.Errorf("unexpected error: %v", err)
	}
}
