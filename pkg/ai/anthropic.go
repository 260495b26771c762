package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude
type AnthropicProvider struct {
	apiKey    string
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
	baseURL   string
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, model string, maxTokens int, timeout time.Duration, logger *zap.Logger) *AnthropicProvider {
	if apiKey == "" {
		return &AnthropicProvider{logger: logger}
	}

	return &AnthropicProvider{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
		baseURL:   "https://api.anthropic.com/v1",
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable checks if the provider is available
func (p *AnthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Chat sends a messages request to Anthropic
func (p *AnthropicProvider) Chat(ctx context.Context, system string, messages []Message) (string, error) {
	if !p.IsAvailable() {
		return "", fmt.Errorf("Anthropic provider not available")
	}

	apiMessages := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		apiMessages = append(apiMessages, map[string]interface{}{"role": m.Role, "content": m.Content})
	}

	requestBody := map[string]interface{}{
		"model":      p.model,
		"max_tokens": p.maxTokens,
		"system":     system,
		"messages":   apiMessages,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	client := &http.Client{Timeout: p.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Anthropic API error: %d - %s", resp.StatusCode, string(body))
	}

	var anthropicResp struct {
		Content []struct {
			Text string `json:"text"`
			Type string `json:"type"`
		} `json:"content"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(anthropicResp.Content) == 0 {
		return "", fmt.Errorf("Anthropic returned no content")
	}

	var sb strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return sb.String(), nil
}
