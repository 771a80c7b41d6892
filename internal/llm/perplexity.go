package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

const (
	DefaultPerplexityBaseURL = "https://api.perplexity.ai"
	DefaultPerplexityModel   = "sonar"
)

// PerplexityConfig configures a PerplexityProvider.
type PerplexityConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// PerplexityProvider calls the Perplexity chat completions endpoint. Search
// is always on for its models.
type PerplexityProvider struct {
	Model string

	client  *http.Client
	baseURL string
	apiKey  string
}

type perplexityRequest struct {
	Model            string                  `json:"model"`
	Messages         []messagesMessage       `json:"messages"`
	MaxTokens        int                     `json:"max_tokens,omitempty"`
	WebSearchOptions *perplexitySearchOption `json:"web_search_options,omitempty"`
}

type perplexitySearchOption struct {
	UserLocation struct {
		Country string `json:"country"`
	} `json:"user_location"`
}

type perplexityResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations     []string `json:"citations"`
	SearchResults []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	} `json:"search_results"`
}

// NewPerplexityProvider creates a new Perplexity provider.
func NewPerplexityProvider(cfg PerplexityConfig) *PerplexityProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultPerplexityModel
	}
	return &PerplexityProvider{
		Model:   cfg.Model,
		client:  newHTTPClient(cfg.Timeout),
		baseURL: trimBaseURL(cfg.BaseURL, DefaultPerplexityBaseURL),
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured checks if the API key is set.
func (p *PerplexityProvider) IsConfigured() bool {
	return p.apiKey != ""
}

// Generate sends a prompt and returns the answer text.
func (p *PerplexityProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ans, err := p.ask(ctx, prompt, "", maxTokens)
	if err != nil {
		return "", err
	}
	if ans.Text == "" {
		return "", fmt.Errorf("perplexity: %w", ErrEmptyResponse)
	}
	return ans.Text, nil
}

// Ask sends a prompt biased towards country (ISO alpha-2, optional) and
// returns the answer with its citations. An empty Text with a nil error means
// the call completed without producing output.
func (p *PerplexityProvider) Ask(ctx context.Context, prompt, country string) (Answer, error) {
	return p.ask(ctx, prompt, country, 0)
}

func (p *PerplexityProvider) ask(ctx context.Context, prompt, country string, maxTokens int) (Answer, error) {
	if !p.IsConfigured() {
		return Answer{}, fmt.Errorf("perplexity: %w", ErrNotConfigured)
	}

	body := perplexityRequest{
		Model:     p.Model,
		Messages:  []messagesMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	}
	if country != "" {
		body.WebSearchOptions = &perplexitySearchOption{}
		body.WebSearchOptions.UserLocation.Country = strings.ToUpper(country)
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	var result perplexityResponse
	if err := postJSON(ctx, p.client, "perplexity", p.baseURL+"/chat/completions", headers, body, &result); err != nil {
		return Answer{}, err
	}

	var ans Answer
	if len(result.Choices) > 0 {
		ans.Text = strings.TrimSpace(result.Choices[0].Message.Content)
	}

	titles := make(map[string]models.SearchSource, len(result.SearchResults))
	for _, r := range result.SearchResults {
		titles[r.URL] = models.SearchSource{URL: r.URL, Title: r.Title, Snippet: r.Snippet}
	}
	for _, c := range result.Citations {
		if c == "" {
			continue
		}
		src, ok := titles[c]
		if !ok {
			src = models.SearchSource{URL: c}
		}
		ans.Sources = append(ans.Sources, src)
	}
	if len(result.Citations) == 0 {
		for _, r := range result.SearchResults {
			ans.Sources = append(ans.Sources, titles[r.URL])
		}
	}
	return ans, nil
}
