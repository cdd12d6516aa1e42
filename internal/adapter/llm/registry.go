package llm

import (
	"fmt"
	"log/slog"

	"trialmatch/internal/domain"
	"trialmatch/internal/infra/config"
)

// NewProvider builds one provider from its config, wrapped with a
// circuit breaker when enabled.
func NewProvider(cfg config.ProviderConfig, cb config.CircuitBreakerConfig, logger *slog.Logger) (domain.LLMProvider, error) {
	var p domain.LLMProvider
	switch cfg.Type {
	case "openai":
		p = NewOpenAIProvider(cfg, logger)
	case "anthropic":
		p = NewAnthropicProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}

	if cb.Enabled {
		p = NewCircuitBreakerProvider(p, cb, logger)
	}
	return p, nil
}

// FromConfig builds every configured provider and returns them by name
// along with the default provider.
func FromConfig(cfg config.LLMConfig, logger *slog.Logger) (map[string]domain.LLMProvider, domain.LLMProvider, error) {
	providers := make(map[string]domain.LLMProvider, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := NewProvider(pc, cfg.CircuitBreaker, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		if _, dup := providers[pc.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate provider name %q", pc.Name)
		}
		providers[pc.Name] = p
	}

	if len(providers) == 0 {
		return providers, nil, nil
	}

	def, ok := providers[cfg.DefaultProvider]
	if !ok {
		return nil, nil, fmt.Errorf("default provider %q not configured", cfg.DefaultProvider)
	}
	return providers, def, nil
}
