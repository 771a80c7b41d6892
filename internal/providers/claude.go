package providers

import (
	"context"
	"time"

	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/models"
	"github.com/TobiSchelling/AIVisibility/internal/search"
)

// Claude grounds a model that has no search tool by running an external
// search first. Search is mandatory: if it fails the query fails.
type Claude struct {
	base
	client    llm.Provider
	searcher  search.Searcher
	maxTokens int
	results   int
}

// NewClaude creates the Claude adapter.
func NewClaude(client llm.Provider, searcher search.Searcher, opts Options) *Claude {
	a := &Claude{
		base:      newBase(models.Claude, opts),
		client:    client,
		searcher:  searcher,
		maxTokens: opts.maxTokens(),
		results:   opts.searchResults(),
	}
	switch {
	case client == nil || !client.IsConfigured():
		a.configErr = notConfigured(models.Claude, llm.ErrNotConfigured)
	case searcher == nil || !searcher.IsConfigured():
		a.configErr = notConfigured(models.Claude, search.ErrNotConfigured)
	}
	return a
}

// Query runs one search-grounded query.
func (a *Claude) Query(ctx context.Context, text, domain string, _ *models.LocationContext) models.SearchQueryResult {
	start := time.Now()
	if a.configErr != nil {
		return a.fail(text, start, a.configErr)
	}

	answer, sources, err := answerWithSearch(ctx, a.client, a.searcher, text, a.results, a.maxTokens)
	if err != nil {
		return a.fail(text, start, err)
	}
	return a.finish(ctx, text, domain, answer, sources, start)
}
