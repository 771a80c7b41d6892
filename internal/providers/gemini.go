package providers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/models"
	"github.com/TobiSchelling/AIVisibility/internal/search"
)

// GroundedGenerator is a model with native search grounding.
type GroundedGenerator interface {
	llm.Provider
	GenerateGrounded(ctx context.Context, prompt string) (llm.Answer, error)
}

// Gemini tries native search grounding first and on any failure falls back
// to external search context fed to the same model ungrounded.
type Gemini struct {
	base
	client    GroundedGenerator
	searcher  search.Searcher
	maxTokens int
	results   int
}

// NewGemini creates the Gemini adapter. searcher is only used on fallback.
func NewGemini(client GroundedGenerator, searcher search.Searcher, opts Options) *Gemini {
	a := &Gemini{
		base:      newBase(models.Gemini, opts),
		client:    client,
		searcher:  searcher,
		maxTokens: opts.maxTokens(),
		results:   opts.searchResults(),
	}
	if client == nil || !client.IsConfigured() {
		a.configErr = notConfigured(models.Gemini, llm.ErrNotConfigured)
	}
	return a
}

// Query runs one query through the grounded → search-context chain.
func (a *Gemini) Query(ctx context.Context, text, domain string, _ *models.LocationContext) models.SearchQueryResult {
	start := time.Now()
	if a.configErr != nil {
		return a.fail(text, start, a.configErr)
	}

	ans, err := a.client.GenerateGrounded(ctx, text)
	if err == nil {
		return a.finish(ctx, text, domain, ans.Text, ans.Sources, start)
	}
	if ctx.Err() != nil {
		return a.fail(text, start, ctx.Err())
	}
	a.log.Info("grounded call failed, falling back to search context", zap.String("query", text), zap.Error(err))

	answer, sources, ferr := answerWithSearch(ctx, a.client, a.searcher, text, a.results, a.maxTokens)
	if ferr != nil {
		return a.fail(text, start, fmt.Errorf("grounding failed (%v); fallback failed: %w", err, ferr))
	}
	return a.finish(ctx, text, domain, answer, sources, start)
}
