// Package providers adapts each AI platform to a common query contract.
//
// An adapter never returns an error and never panics on provider failure:
// every path ends in a SearchQueryResult, with Error set and SearchEnabled
// false when the platform could not answer.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/logger"
	"github.com/TobiSchelling/AIVisibility/internal/mention"
	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// Adapter sends one query to one platform.
type Adapter interface {
	Platform() models.Platform
	Query(ctx context.Context, text, domain string, loc *models.LocationContext) models.SearchQueryResult
}

// CompetitorExtractor finds competitor names in a response.
type CompetitorExtractor interface {
	Extract(ctx context.Context, response, domain string) []models.CompetitorMention
}

// Backoff holds the retry delays. Tests shrink them.
type Backoff struct {
	// Empty is the delay unit between empty-response retries.
	Empty time.Duration
	// Transient is the first delay after a transient network error; each
	// further retry doubles it.
	Transient time.Duration
}

// DefaultBackoff is used when Options.Backoff is zero.
var DefaultBackoff = Backoff{Empty: time.Second, Transient: 2 * time.Second}

const (
	// maxRetries bounds every retry loop in this package.
	maxRetries = 2
	// defaultSearchResults is the number of external search results injected
	// as context.
	defaultSearchResults = 5
	// DefaultPerplexityTimeout bounds each Perplexity attempt.
	DefaultPerplexityTimeout = 60 * time.Second
	defaultMaxTokens         = 1500
)

// Options carries the collaborators shared by all adapters.
type Options struct {
	Extractor CompetitorExtractor
	Logger    *zap.Logger
	Backoff   Backoff
	// Timeout is the per-attempt limit for adapters that enforce one.
	Timeout   time.Duration
	MaxTokens int
	// SearchResults is how many external search results are injected into
	// prompts of adapters without native search.
	SearchResults int
}

func (o Options) backoff() Backoff {
	if o.Backoff == (Backoff{}) {
		return DefaultBackoff
	}
	return o.Backoff
}

func (o Options) searchResults() int {
	if o.SearchResults <= 0 {
		return defaultSearchResults
	}
	return o.SearchResults
}

func (o Options) maxTokens() int {
	if o.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return o.MaxTokens
}

// base holds what every adapter shares: identity, post-processing and the
// degraded state set when a credential is missing.
type base struct {
	platform  models.Platform
	extractor CompetitorExtractor
	log       *zap.Logger
	configErr error
}

func newBase(p models.Platform, opts Options) base {
	return base{
		platform:  p,
		extractor: opts.Extractor,
		log:       logger.OrNop(opts.Logger).With(zap.String("platform", string(p))),
	}
}

func (b *base) Platform() models.Platform { return b.platform }

// ConfigErr reports why the adapter is degraded, or nil if it can query.
func (b *base) ConfigErr() error { return b.configErr }

// fail builds the error result for a query.
func (b *base) fail(query string, start time.Time, err error) models.SearchQueryResult {
	b.log.Warn("query failed", zap.String("query", query), zap.Error(err))
	return ErrorResult(b.platform, query, time.Since(start), err)
}

// ErrorResult is the result recorded for a unit that produced no answer.
func ErrorResult(p models.Platform, query string, elapsed time.Duration, err error) models.SearchQueryResult {
	return models.SearchQueryResult{
		Platform:             p,
		Query:                query,
		Sources:              []models.SearchSource{},
		CompetitorsMentioned: []models.CompetitorMention{},
		ResponseTimeMs:       elapsed.Milliseconds(),
		Error:                err.Error(),
	}
}

// finish runs mention detection then competitor extraction and records the
// elapsed time.
func (b *base) finish(ctx context.Context, query, domain, text string, sources []models.SearchSource, start time.Time) models.SearchQueryResult {
	m := mention.Detect(text, domain)

	var competitors []models.CompetitorMention
	if b.extractor != nil {
		competitors = b.extractor.Extract(ctx, text, domain)
	}
	if competitors == nil {
		competitors = []models.CompetitorMention{}
	}
	if sources == nil {
		sources = []models.SearchSource{}
	}

	return models.SearchQueryResult{
		Platform:             b.platform,
		Query:                query,
		Response:             text,
		Sources:              sources,
		SearchEnabled:        true,
		DomainMentioned:      m.Mentioned,
		MentionPosition:      m.Position,
		CompetitorsMentioned: competitors,
		ResponseTimeMs:       time.Since(start).Milliseconds(),
	}
}

func notConfigured(p models.Platform, cause error) error {
	return fmt.Errorf("%s adapter unavailable: %w", p, cause)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isTransient reports whether err looks like a network hiccup worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection reset", "timeout", "timed out", "aborted", "eof", "broken pipe"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
