package provider

import (
	"fmt"

	"go.uber.org/zap"
)

// New constructs a provider from its configuration. The type selects the
// adapter; "openclaw" is the hosted OpenAI-compatible API.
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	switch cfg.Type {
	case "openai", "openclaw":
		return NewOpenAIProvider(cfg, logger), nil
	case "ollama":
		return NewOllamaProvider(cfg, logger), nil
	case "anthropic":
		return NewAnthropicProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
