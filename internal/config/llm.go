package config

import "time"

// Supported LLM providers.
const (
	ProviderSiliconFlow = "siliconflow"
	ProviderGemini      = "gemini"
)

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{ProviderSiliconFlow, ProviderGemini}

// Provider defaults.
const (
	DefaultSiliconFlowEndpoint = "https://api.siliconflow.cn/v1/chat/completions"
	DefaultSiliconFlowModel    = "Qwen/Qwen2.5-7B-Instruct"
	DefaultGeminiModel         = "gemini-2.5-flash"

	DefaultLLMTimeout  = 25 * time.Second
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.2
)

// LLMConfig configures the upstream proofreading model.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // siliconflow, gemini
	APIKey      string  `yaml:"api_key,omitempty"`
	Endpoint    string  `yaml:"endpoint,omitempty"` // chat completions URL (siliconflow only)
	Model       string  `yaml:"model,omitempty"`
	Timeout     string  `yaml:"timeout"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return DefaultLLMTimeout
	}
	return d
}

// GetMaxTokens returns the completion token limit.
func (c *Config) GetMaxTokens() int {
	if c.LLM.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.LLM.MaxTokens
}

// GetEndpoint returns the configured endpoint, or the provider's default.
// Gemini has no default; the SDK picks its own base URL.
func (c *Config) GetEndpoint() string {
	if c.LLM.Endpoint != "" {
		return c.LLM.Endpoint
	}
	if c.LLM.Provider == ProviderGemini {
		return ""
	}
	return DefaultSiliconFlowEndpoint
}

// GetModel returns the configured model, or the provider's default.
func (c *Config) GetModel() string {
	if c.LLM.Model != "" {
		return c.LLM.Model
	}
	if c.LLM.Provider == ProviderGemini {
		return DefaultGeminiModel
	}
	return DefaultSiliconFlowModel
}
