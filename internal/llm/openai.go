package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

const (
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultOpenAISearchModel = "gpt-5-mini"
)

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey string
	// BaseURL is the API root including the version segment.
	BaseURL string
	// Model serves plain chat completions.
	Model string
	// SearchModel serves web-search responses.
	SearchModel string
	Timeout     time.Duration
}

// OpenAIProvider talks to the OpenAI API. Plain prompts go through the chat
// completions endpoint; WebSearch uses the Responses API with the web_search
// tool.
type OpenAIProvider struct {
	Model       string
	SearchModel string

	client  openai.Client
	hc      *http.Client
	baseURL string
	apiKey  string
}

// NewOpenAIProvider creates a new OpenAI provider. A provider without an API
// key is returned unconfigured rather than as an error.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.SearchModel == "" {
		cfg.SearchModel = DefaultOpenAISearchModel
	}
	baseURL := trimBaseURL(cfg.BaseURL, DefaultOpenAIBaseURL)
	hc := newHTTPClient(cfg.Timeout)

	return &OpenAIProvider{
		Model:       cfg.Model,
		SearchModel: cfg.SearchModel,
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL+"/"),
			option.WithHTTPClient(hc),
		),
		hc:      hc,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.apiKey != ""
}

// Generate sends a prompt to the chat completions endpoint.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !o.IsConfigured() {
		return "", fmt.Errorf("openai: %w", ErrNotConfigured)
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(o.Model),
		Temperature: openai.Float(0.3),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

type responsesRequest struct {
	Model string          `json:"model"`
	Input string          `json:"input"`
	Tools []webSearchTool `json:"tools"`
}

type webSearchTool struct {
	Type              string             `json:"type"`
	SearchContextSize string             `json:"search_context_size,omitempty"`
	UserLocation      *approximateLocale `json:"user_location,omitempty"`
}

type approximateLocale struct {
	Type    string `json:"type"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type        string `json:"type"`
			Text        string `json:"text"`
			Annotations []struct {
				Type  string `json:"type"`
				URL   string `json:"url"`
				Title string `json:"title"`
			} `json:"annotations"`
		} `json:"content"`
	} `json:"output"`
}

// WebSearch asks the search model with the web_search tool enabled at high
// search context. An empty Text with a nil error means the call completed
// without producing output.
func (o *OpenAIProvider) WebSearch(ctx context.Context, prompt string, loc *UserLocation) (Answer, error) {
	if !o.IsConfigured() {
		return Answer{}, fmt.Errorf("openai: %w", ErrNotConfigured)
	}

	tool := webSearchTool{Type: "web_search", SearchContextSize: "high"}
	if !loc.IsZero() {
		tool.UserLocation = &approximateLocale{
			Type:    "approximate",
			City:    loc.City,
			Country: loc.Country,
			Region:  loc.Region,
		}
	}
	body := responsesRequest{
		Model: o.SearchModel,
		Input: prompt,
		Tools: []webSearchTool{tool},
	}

	var result responsesResponse
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}
	if err := postJSON(ctx, o.hc, "openai", o.baseURL+"/responses", headers, body, &result); err != nil {
		return Answer{}, err
	}

	var (
		text    strings.Builder
		sources []models.SearchSource
		seen    = make(map[string]bool)
	)
	for _, item := range result.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type != "output_text" {
				continue
			}
			text.WriteString(c.Text)
			for _, a := range c.Annotations {
				if a.Type != "url_citation" || a.URL == "" || seen[a.URL] {
					continue
				}
				seen[a.URL] = true
				sources = append(sources, models.SearchSource{URL: a.URL, Title: a.Title})
			}
		}
	}

	return Answer{Text: strings.TrimSpace(text.String()), Sources: sources}, nil
}
