package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-2.5-flash"
)

// GeminiConfig configures a GeminiProvider.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GeminiProvider calls the Gemini generateContent endpoint, optionally with
// the google_search grounding tool.
type GeminiProvider struct {
	Model string

	client  *http.Client
	baseURL string
	apiKey  string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	Tools            []map[string]any  `json:"tools,omitempty"`
	GenerationConfig *geminiGeneration `json:"generationConfig,omitempty"`
}

type geminiGeneration struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	return &GeminiProvider{
		Model:   cfg.Model,
		client:  newHTTPClient(cfg.Timeout),
		baseURL: trimBaseURL(cfg.BaseURL, DefaultGeminiBaseURL),
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured checks if the API key is set.
func (g *GeminiProvider) IsConfigured() bool {
	return g.apiKey != ""
}

// Generate sends an ungrounded prompt.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ans, err := g.generate(ctx, prompt, maxTokens, false)
	if err != nil {
		return "", err
	}
	return ans.Text, nil
}

// GenerateGrounded sends a prompt with Google Search grounding enabled and
// returns the grounding chunks as sources.
func (g *GeminiProvider) GenerateGrounded(ctx context.Context, prompt string) (Answer, error) {
	return g.generate(ctx, prompt, 0, true)
}

func (g *GeminiProvider) generate(ctx context.Context, prompt string, maxTokens int, grounded bool) (Answer, error) {
	if !g.IsConfigured() {
		return Answer{}, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	if grounded {
		body.Tools = []map[string]any{{"google_search": map[string]any{}}}
	}
	if maxTokens > 0 {
		body.GenerationConfig = &geminiGeneration{MaxOutputTokens: maxTokens}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.Model))
	headers := map[string]string{"x-goog-api-key": g.apiKey}

	var result geminiResponse
	if err := postJSON(ctx, g.client, "gemini", endpoint, headers, body, &result); err != nil {
		return Answer{}, err
	}
	if len(result.Candidates) == 0 {
		return Answer{}, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	cand := result.Candidates[0]
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}
	ans := Answer{Text: strings.TrimSpace(text.String())}
	if ans.Text == "" {
		return Answer{}, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			ans.Sources = append(ans.Sources, models.SearchSource{URL: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}
	return ans, nil
}
