package llm

import (
	"fmt"

	"github.com/aatumaykin/cronbot/internal/config"
)

// NewProvider constructs the named provider from the application
// configuration. An empty name picks the first configured provider,
// preferring Anthropic.
func NewProvider(name string, cfg *config.Config) (Provider, error) {
	switch name {
	case "anthropic":
		if cfg.LLM.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requested but no API key configured")
		}
		return NewAnthropicProvider(cfg.LLM.Anthropic), nil
	case "openai":
		if cfg.LLM.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai provider requested but no API key configured")
		}
		return NewOpenAIProvider(cfg.LLM.OpenAI), nil
	case "mock":
		return NewEchoProvider(), nil
	case "":
		if cfg.LLM.Anthropic.APIKey != "" {
			return NewAnthropicProvider(cfg.LLM.Anthropic), nil
		}
		if cfg.LLM.OpenAI.APIKey != "" {
			return NewOpenAIProvider(cfg.LLM.OpenAI), nil
		}
		return nil, fmt.Errorf("no LLM provider configured: set an Anthropic or OpenAI API key")
	default:
		return nil, fmt.Errorf("unknown model provider: %s", name)
	}
}
