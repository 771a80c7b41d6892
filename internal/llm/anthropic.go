package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
	DefaultAnthropicModel   = "claude-sonnet-4-5"

	anthropicVersion = "2023-06-01"
)

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// AnthropicProvider calls the Anthropic Messages API. The API has no search
// tool here, so callers inject search context into the prompt themselves.
type AnthropicProvider struct {
	Model string

	client  *http.Client
	baseURL string
	apiKey  string
}

type messagesRequest struct {
	Model     string            `json:"model"`
	Messages  []messagesMessage `json:"messages"`
	MaxTokens int               `json:"max_tokens"`
	System    string            `json:"system,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	return &AnthropicProvider{
		Model:   cfg.Model,
		client:  newHTTPClient(cfg.Timeout),
		baseURL: trimBaseURL(cfg.BaseURL, DefaultAnthropicBaseURL),
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured checks if the API key is set.
func (a *AnthropicProvider) IsConfigured() bool {
	return a.apiKey != ""
}

// Generate sends a single user message and returns the concatenated text blocks.
func (a *AnthropicProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !a.IsConfigured() {
		return "", fmt.Errorf("anthropic: %w", ErrNotConfigured)
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	body := messagesRequest{
		Model:     a.Model,
		Messages:  []messagesMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var result messagesResponse
	if err := postJSON(ctx, a.client, "anthropic", a.baseURL+"/v1/messages", headers, body, &result); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	return out, nil
}
