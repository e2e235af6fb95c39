package perception

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proofread/internal/config"
)

func TestNewClientFromConfig(t *testing.T) {
	t.Run("siliconflow", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.APIKey = "sk"
		cfg.LLM.Model = "deepseek-ai/DeepSeek-V3"

		client, err := NewClientFromConfig(context.Background(), cfg)
		require.NoError(t, err)
		sf, ok := client.(*SiliconFlowClient)
		require.True(t, ok)
		assert.Equal(t, "deepseek-ai/DeepSeek-V3", sf.GetModel())
		assert.Equal(t, config.DefaultSiliconFlowEndpoint, sf.endpoint)
		assert.Equal(t, cfg.GetLLMTimeout(), sf.httpClient.Timeout)
	})

	t.Run("gemini", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = config.ProviderGemini
		cfg.LLM.APIKey = "g"

		client, err := NewClientFromConfig(context.Background(), cfg)
		require.NoError(t, err)
		g, ok := client.(*GeminiClient)
		require.True(t, ok)
		assert.Equal(t, config.DefaultGeminiModel, g.GetModel())
	})

	t.Run("gemini without key", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = config.ProviderGemini

		client, err := NewClientFromConfig(context.Background(), cfg)
		assert.ErrorIs(t, err, ErrAPIKeyMissing)
		assert.Nil(t, client)
	})

	t.Run("unsupported", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = "zai"

		_, err := NewClientFromConfig(context.Background(), cfg)
		assert.ErrorContains(t, err, "unsupported")
	})
}
