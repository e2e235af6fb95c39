package perception

import (
	"context"
	"fmt"

	"proofread/internal/config"
)

// NewClientFromConfig builds the client for cfg.LLM.Provider.
func NewClientFromConfig(ctx context.Context, cfg *config.Config) (LLMClient, error) {
	switch cfg.LLM.Provider {
	case config.ProviderSiliconFlow, "":
		return NewSiliconFlowClientWithConfig(SiliconFlowConfig{
			APIKey:      cfg.LLM.APIKey,
			Endpoint:    cfg.GetEndpoint(),
			Model:       cfg.GetModel(),
			Timeout:     cfg.GetLLMTimeout(),
			MaxTokens:   cfg.GetMaxTokens(),
			Temperature: cfg.LLM.Temperature,
		}), nil

	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.GetModel(),
			BaseURL:     cfg.GetEndpoint(),
			Timeout:     cfg.GetLLMTimeout(),
			MaxTokens:   cfg.GetMaxTokens(),
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}
