package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all proofread configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Server   ServerConfig   `yaml:"server"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AnalysisConfig configures the reconciliation engine and batch runs.
type AnalysisConfig struct {
	WindowRadius   int `yaml:"window_radius"`   // reanchoring window, in codepoints
	MaxConcurrency int `yaml:"max_concurrency"` // files analyzed in parallel by check
}

// ServerConfig configures the HTTP endpoint.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	ReadTimeout  string `yaml:"read_timeout"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// Defaults for the non-LLM sections.
const (
	DefaultWindowRadius   = 200
	DefaultMaxConcurrency = 4
	DefaultAddr           = ":8080"
	DefaultMaxBodyBytes   = 15 << 20
	DefaultReadTimeout    = 30 * time.Second
	DefaultWatchDebounce  = 500 * time.Millisecond
	DefaultConfigFileName = "proofread.yaml"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderSiliconFlow,
			Timeout:     DefaultLLMTimeout.String(),
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},

		Analysis: AnalysisConfig{
			WindowRadius:   DefaultWindowRadius,
			MaxConcurrency: DefaultMaxConcurrency,
		},

		Server: ServerConfig{
			Addr:         DefaultAddr,
			MaxBodyBytes: DefaultMaxBodyBytes,
			ReadTimeout:  DefaultReadTimeout.String(),
		},

		Watch: WatchConfig{
			Debounce: DefaultWatchDebounce.String(),
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("PROOFREAD_LLM_PROVIDER"); p != "" {
		c.LLM.Provider = strings.ToLower(p)
	}

	// API key for the selected provider
	switch c.LLM.Provider {
	case "", ProviderSiliconFlow:
		if key := os.Getenv("SILICONFLOW_API_KEY"); key != "" {
			c.LLM.APIKey = key
			c.LLM.Provider = ProviderSiliconFlow
		}
	case ProviderGemini:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	}

	if endpoint := os.Getenv("PROOFREAD_LLM_ENDPOINT"); endpoint != "" {
		c.LLM.Endpoint = endpoint
	}
	if model := os.Getenv("PROOFREAD_LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if addr := os.Getenv("PROOFREAD_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// GetReadTimeout returns the server read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil || d <= 0 {
		return DefaultReadTimeout
	}
	return d
}

// GetWatchDebounce returns the watcher debounce interval as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return DefaultWatchDebounce
	}
	return d
}

// GetMaxConcurrency returns the batch concurrency limit.
func (c *Config) GetMaxConcurrency() int {
	if c.Analysis.MaxConcurrency < 1 {
		return DefaultMaxConcurrency
	}
	return c.Analysis.MaxConcurrency
}

// GetMaxBodyBytes returns the request body limit.
func (c *Config) GetMaxBodyBytes() int64 {
	if c.Server.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return c.Server.MaxBodyBytes
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.LLM.APIKey == "" {
		env := "SILICONFLOW_API_KEY"
		if c.LLM.Provider == ProviderGemini {
			env = "GEMINI_API_KEY"
		}
		return fmt.Errorf("LLM API key not configured (set %s or llm.api_key)", env)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %v", c.LLM.Temperature)
	}
	if c.Analysis.WindowRadius < 0 {
		return fmt.Errorf("analysis.window_radius must be >= 0")
	}

	return nil
}
