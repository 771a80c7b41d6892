// Package search provides the external web search backend used to ground
// models that lack a native search tool.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// MaxResults is the most results the Custom Search API returns per request.
const MaxResults = 10

// ErrNotConfigured is returned by a searcher without credentials.
var ErrNotConfigured = errors.New("search backend not configured")

// Searcher runs a web search and returns up to limit results.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchSource, error)
	IsConfigured() bool
}

// GoogleConfig configures a GoogleSearcher.
type GoogleConfig struct {
	APIKey string
	// EngineID is the Programmable Search Engine id (cx).
	EngineID string
	// Endpoint overrides the API root, mainly for tests.
	Endpoint string
	// RequestsPerSecond caps the sustained request rate. Zero is unlimited.
	RequestsPerSecond float64
	// Burst is how many requests may start at once; at least 1.
	Burst int
}

// GoogleSearcher queries the Google Programmable Search (Custom Search) API.
// Requests share a token bucket so a dispatch fan-out stays inside the
// per-minute quota.
type GoogleSearcher struct {
	svc      *customsearch.Service
	engineID string
	limiter  *rate.Limiter
}

// NewGoogleSearcher creates a searcher. Missing credentials produce an
// unconfigured searcher, not an error.
func NewGoogleSearcher(ctx context.Context, cfg GoogleConfig) (*GoogleSearcher, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return &GoogleSearcher{}, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating custom search service: %w", err)
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)
	return &GoogleSearcher{
		svc:      svc,
		engineID: cfg.EngineID,
		limiter:  rate.NewLimiter(limit, burst),
	}, nil
}

// IsConfigured reports whether credentials were supplied.
func (g *GoogleSearcher) IsConfigured() bool {
	return g.svc != nil
}

// Search returns up to limit results for query.
func (g *GoogleSearcher) Search(ctx context.Context, query string, limit int) ([]models.SearchSource, error) {
	if !g.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("custom search rate limit: %w", err)
	}

	res, err := g.svc.Cse.List().
		Q(query).
		Cx(g.engineID).
		Num(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("custom search: %w", err)
	}

	out := make([]models.SearchSource, 0, len(res.Items))
	for _, item := range res.Items {
		if item == nil || item.Link == "" {
			continue
		}
		out = append(out, models.SearchSource{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: strings.TrimSpace(item.Snippet),
		})
	}
	return out, nil
}

// FormatContext renders results as a numbered block suitable for injecting
// into a prompt.
func FormatContext(results []models.SearchSource) string {
	if len(results) == 0 {
		return "No search results were found."
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "%s\n", r.Snippet)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
