package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"proofread/internal/logging"
)

// SiliconFlowClient implements LLMClient for SiliconFlow's OpenAI-compatible
// chat completions API.
type SiliconFlowClient struct {
	apiKey      string
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// DefaultSiliconFlowConfig returns the defaults the service was tuned with.
func DefaultSiliconFlowConfig(apiKey string) SiliconFlowConfig {
	return SiliconFlowConfig{
		APIKey:      apiKey,
		Endpoint:    "https://api.siliconflow.cn/v1/chat/completions",
		Model:       "Qwen/Qwen2.5-7B-Instruct",
		Timeout:     25 * time.Second,
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

// NewSiliconFlowClient creates a new SiliconFlow client with default config.
func NewSiliconFlowClient(apiKey string) *SiliconFlowClient {
	return NewSiliconFlowClientWithConfig(DefaultSiliconFlowConfig(apiKey))
}

// NewSiliconFlowClientWithConfig creates a new SiliconFlow client with custom config.
func NewSiliconFlowClientWithConfig(config SiliconFlowConfig) *SiliconFlowClient {
	def := DefaultSiliconFlowConfig("")
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = def.MaxTokens
	}
	return &SiliconFlowClient{
		apiKey:      config.APIKey,
		endpoint:    strings.TrimSpace(config.Endpoint),
		model:       strings.TrimSpace(config.Model),
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// GetModel returns the model name sent with each request.
func (c *SiliconFlowClient) GetModel() string { return c.model }

// CompleteWithSystem sends a prompt with a system message.
func (c *SiliconFlowClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.PerceptionDebug("[SiliconFlow] CompleteWithSystem: model=%s system_len=%d user_len=%d", c.model, len(systemPrompt), len(userPrompt))

	if c.apiKey == "" {
		return "", fmt.Errorf("siliconflow: %w (set SILICONFLOW_API_KEY)", ErrAPIKeyMissing)
	}
	if err := validateEndpoint(c.endpoint); err != nil {
		return "", err
	}

	var messages []ChatMessage
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: userPrompt})

	reqBody := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      false,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.APIWarn("[SiliconFlow] status=%d after %v", resp.StatusCode, time.Since(startTime))
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		logging.PerceptionWarn("[SiliconFlow] no choices after %v", time.Since(startTime))
		return "", fmt.Errorf("no completion returned")
	}

	response := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	logging.Perception("[SiliconFlow] CompleteWithSystem: completed in %v response_len=%d tokens=%d",
		time.Since(startTime), len(response), chatResp.Usage.TotalTokens)
	return response, nil
}

// validateEndpoint accepts only absolute http and https URLs.
func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URI: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid endpoint: %q", endpoint)
	}
	return nil
}
