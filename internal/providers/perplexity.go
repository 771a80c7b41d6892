package providers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// SearchAsker is a search-native model.
type SearchAsker interface {
	Ask(ctx context.Context, prompt, country string) (llm.Answer, error)
	IsConfigured() bool
}

// Perplexity queries a search-native model. Each attempt is bounded by a
// timeout; transient network errors back off exponentially and empty answers
// back off linearly, each with its own retry budget.
type Perplexity struct {
	base
	client  SearchAsker
	backoff Backoff
	timeout time.Duration
}

// NewPerplexity creates the Perplexity adapter.
func NewPerplexity(client SearchAsker, opts Options) *Perplexity {
	a := &Perplexity{
		base:    newBase(models.Perplexity, opts),
		client:  client,
		backoff: opts.backoff(),
		timeout: opts.Timeout,
	}
	if a.timeout <= 0 {
		a.timeout = DefaultPerplexityTimeout
	}
	if client == nil || !client.IsConfigured() {
		a.configErr = notConfigured(models.Perplexity, llm.ErrNotConfigured)
	}
	return a
}

// Query runs one query.
func (a *Perplexity) Query(ctx context.Context, text, domain string, loc *models.LocationContext) models.SearchQueryResult {
	start := time.Now()
	if a.configErr != nil {
		return a.fail(text, start, a.configErr)
	}

	var country string
	if ul := ResolveLocation(text, loc); ul != nil {
		country = ul.Country
	}

	ans, err := a.ask(ctx, text, country, maxRetries, maxRetries)
	if err != nil {
		return a.fail(text, start, err)
	}
	return a.finish(ctx, text, domain, ans.Text, ans.Sources, start)
}

// ask runs attempts until one yields text or a retry budget runs out.
func (a *Perplexity) ask(ctx context.Context, text, country string, transientLeft, emptyLeft int) (llm.Answer, error) {
	transientAttempt, emptyAttempt := 0, 0
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
		ans, err := a.client.Ask(attemptCtx, text, country)
		cancel()

		var delay time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil || !isTransient(err) {
				return llm.Answer{}, err
			}
			if transientLeft == 0 {
				return llm.Answer{}, fmt.Errorf("perplexity: giving up after %d retries: %w", maxRetries, err)
			}
			transientLeft--
			delay = a.backoff.Transient << transientAttempt
			transientAttempt++
			a.log.Debug("transient error, retrying", zap.Error(err), zap.Duration("delay", delay))
		case ans.Text == "":
			if emptyLeft == 0 {
				return llm.Answer{}, fmt.Errorf("perplexity: %w after %d retries", llm.ErrEmptyResponse, maxRetries)
			}
			emptyLeft--
			emptyAttempt++
			delay = a.backoff.Empty * time.Duration(emptyAttempt)
			a.log.Debug("empty response, retrying", zap.Duration("delay", delay))
		default:
			return ans, nil
		}

		if err := sleep(ctx, delay); err != nil {
			return llm.Answer{}, err
		}
	}
}
