package llm

import (
	"context"
	"fmt"
	"strings"
)

// Supported provider names.
const (
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// ProviderConfig selects and configures an inference backend.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string

	// BaseURL is only used by the openai provider.
	BaseURL string

	// Bedrock is only used by the bedrock provider.
	Bedrock BedrockConfig
}

// KnownProvider reports whether name is a supported provider.
func KnownProvider(name string) bool {
	switch strings.ToLower(name) {
	case ProviderGemini, ProviderOpenAI, ProviderBedrock:
		return true
	}
	return false
}

// New builds the backend named by cfg.Provider (gemini when empty).
func New(ctx context.Context, cfg ProviderConfig) (LLM, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		return NewGeminiLLM(cfg.APIKey, cfg.Model)
	case ProviderOpenAI:
		return NewOpenAILLM(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case ProviderBedrock:
		bedrockCfg := cfg.Bedrock
		if cfg.Model != "" {
			bedrockCfg.ModelID = cfg.Model
		}
		return NewBedrockLLM(ctx, bedrockCfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
