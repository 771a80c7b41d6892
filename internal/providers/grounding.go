package providers

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/models"
	"github.com/TobiSchelling/AIVisibility/internal/search"
)

const searchContextPrompt = `Answer the question below as a helpful assistant would for a real customer.
Use the web search results provided for up-to-date information and name specific businesses where relevant.

Web search results:
%s

Question: %s`

// answerWithSearch runs an external search, injects the results into the
// prompt and asks gen for a plain completion. A failed search fails the call.
func answerWithSearch(ctx context.Context, gen llm.Provider, searcher search.Searcher, query string, limit, maxTokens int) (string, []models.SearchSource, error) {
	if searcher == nil {
		return "", nil, fmt.Errorf("external search: %w", search.ErrNotConfigured)
	}
	results, err := searcher.Search(ctx, query, limit)
	if err != nil {
		return "", nil, fmt.Errorf("external search: %w", err)
	}

	text, err := gen.Generate(ctx, fmt.Sprintf(searchContextPrompt, search.FormatContext(results), query), maxTokens)
	if err != nil {
		return "", nil, err
	}
	return text, results, nil
}
