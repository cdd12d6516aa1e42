package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Matcher MatcherConfig `yaml:"matcher"`
	Tools   ToolsConfig   `yaml:"tools"`
	LLM     LLMConfig     `yaml:"llm"`
	State   StateConfig   `yaml:"state"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
}

// CatalogConfig holds the reference data sources.
type CatalogConfig struct {
	ProgramsCSV string `yaml:"programs_csv"`
	PersonsCSV  string `yaml:"persons_csv"`
}

// MatcherConfig holds eligibility matcher settings.
type MatcherConfig struct {
	// NameStrategy selects the string-comparison strategy for name
	// lookup: "fuzzy" (weighted-ratio scoring) or "substring".
	NameStrategy string `yaml:"name_strategy"`
	// FuzzyThreshold is the minimum 0-100 similarity score for a fuzzy
	// name match to be accepted.
	FuzzyThreshold int `yaml:"fuzzy_threshold"`
}

// ToolsConfig holds tool system settings.
type ToolsConfig struct {
	SearchBackend  string        `yaml:"search_backend"`
	SearchCacheTTL time.Duration `yaml:"search_cache_ttl"`
	// SearchMaxQPS throttles outbound search requests (token bucket).
	SearchMaxQPS   float64 `yaml:"search_max_qps"`
	SearchMaxBurst int     `yaml:"search_max_burst"`
	// SearchPerMinute caps web_search tool invocations that miss the
	// cache (sliding window).
	SearchPerMinute int `yaml:"search_per_minute"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	DefaultProvider string               `yaml:"default_provider"`
	Providers       []ProviderConfig     `yaml:"providers"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"` // "openai" | "anthropic"
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
	// Headers are sent with every request. Gateway deployments use
	// these for account-scoped auth instead of the bearer API key.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// PoolConfig holds HTTP connection pool settings for LLM providers.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// CircuitBreakerConfig holds circuit breaker settings for LLM providers.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// StateConfig holds conversation-state store settings.
type StateConfig struct {
	Path string `yaml:"path"` // SQLite file, ":memory:" for ephemeral
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Catalog: CatalogConfig{
			ProgramsCSV: "data/clinical_programs.csv",
			PersonsCSV:  "data/persons.csv",
		},
		Matcher: MatcherConfig{
			NameStrategy:   "fuzzy",
			FuzzyThreshold: 60,
		},
		Tools: ToolsConfig{
			SearchBackend:   "duckduckgo",
			SearchCacheTTL:  15 * time.Minute,
			SearchMaxQPS:    1,
			SearchMaxBurst:  3,
			SearchPerMinute: 30,
		},
		LLM: LLMConfig{
			DefaultProvider: "openai",
		},
		State: StateConfig{
			Path: "data/task_state.db",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file on top of the defaults. A missing file
// is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
