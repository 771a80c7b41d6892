package providers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// WebSearcher is a model with a native web search tool.
type WebSearcher interface {
	WebSearch(ctx context.Context, prompt string, loc *llm.UserLocation) (llm.Answer, error)
	IsConfigured() bool
}

// ChatGPT queries a reasoning model with its native web search tool. The
// model occasionally completes a search but returns no text, so empty
// answers are retried.
type ChatGPT struct {
	base
	client  WebSearcher
	backoff Backoff
}

// NewChatGPT creates the ChatGPT adapter.
func NewChatGPT(client WebSearcher, opts Options) *ChatGPT {
	a := &ChatGPT{
		base:    newBase(models.ChatGPT, opts),
		client:  client,
		backoff: opts.backoff(),
	}
	if client == nil || !client.IsConfigured() {
		a.configErr = notConfigured(models.ChatGPT, llm.ErrNotConfigured)
	}
	return a
}

// Query runs one search-enabled query.
func (a *ChatGPT) Query(ctx context.Context, text, domain string, loc *models.LocationContext) models.SearchQueryResult {
	start := time.Now()
	if a.configErr != nil {
		return a.fail(text, start, a.configErr)
	}

	ans, err := a.search(ctx, text, ResolveLocation(text, loc), maxRetries)
	if err != nil {
		return a.fail(text, start, err)
	}
	return a.finish(ctx, text, domain, ans.Text, ans.Sources, start)
}

// search calls the model, retrying empty answers while remaining > 0 with a
// fixed delay.
func (a *ChatGPT) search(ctx context.Context, text string, loc *llm.UserLocation, remaining int) (llm.Answer, error) {
	for {
		ans, err := a.client.WebSearch(ctx, text, loc)
		if err != nil {
			return llm.Answer{}, err
		}
		if ans.Text != "" {
			return ans, nil
		}
		if remaining == 0 {
			return llm.Answer{}, fmt.Errorf("chatgpt: %w after %d retries", llm.ErrEmptyResponse, maxRetries)
		}
		remaining--
		a.log.Debug("empty response, retrying", zap.String("query", text), zap.Int("remaining", remaining))
		if err := sleep(ctx, a.backoff.Empty); err != nil {
			return llm.Answer{}, err
		}
	}
}
