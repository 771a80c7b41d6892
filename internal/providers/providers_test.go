package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/models"
)

var fastBackoff = Backoff{Empty: time.Millisecond, Transient: time.Millisecond}

const mentionText = "For emergency work we recommend Acme Plumbing, or Bob's Pipes if they are booked out."

// scripted replays a fixed sequence of answers, repeating the last one.
type scripted struct {
	mu      sync.Mutex
	answers []llm.Answer
	errs    []error
	calls   int
	locs    []*llm.UserLocation
	country []string
}

func (s *scripted) next() (llm.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, max(len(s.answers), len(s.errs))-1)
	s.calls++
	var ans llm.Answer
	var err error
	if i < len(s.answers) {
		ans = s.answers[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return ans, err
}

func (s *scripted) IsConfigured() bool { return true }

func (s *scripted) WebSearch(_ context.Context, _ string, loc *llm.UserLocation) (llm.Answer, error) {
	s.locs = append(s.locs, loc)
	return s.next()
}

func (s *scripted) Ask(_ context.Context, _ string, country string) (llm.Answer, error) {
	s.country = append(s.country, country)
	return s.next()
}

type fakeGen struct {
	configured bool
	grounded   func() (llm.Answer, error)
	text       string
	err        error
	prompts    []string
}

func (f *fakeGen) IsConfigured() bool { return f.configured }

func (f *fakeGen) Generate(_ context.Context, prompt string, _ int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeGen) GenerateGrounded(context.Context, string) (llm.Answer, error) {
	return f.grounded()
}

type fakeSearcher struct {
	configured bool
	results    []models.SearchSource
	err        error
	calls      int
}

func (f *fakeSearcher) IsConfigured() bool { return f.configured }

func (f *fakeSearcher) Search(context.Context, string, int) ([]models.SearchSource, error) {
	f.calls++
	return f.results, f.err
}

type fakeExtractor struct{ calls int }

func (f *fakeExtractor) Extract(_ context.Context, response, _ string) []models.CompetitorMention {
	f.calls++
	if strings.Contains(response, "Bob's Pipes") {
		return []models.CompetitorMention{{Name: "Bob's Pipes"}}
	}
	return nil
}

func testOptions(t *testing.T) (Options, *fakeExtractor) {
	ext := &fakeExtractor{}
	return Options{Extractor: ext, Logger: zaptest.NewLogger(t), Backoff: fastBackoff}, ext
}

func assertFailed(t *testing.T, r models.SearchQueryResult) {
	t.Helper()
	assert.False(t, r.SearchEnabled)
	assert.NotEmpty(t, r.Error)
	assert.False(t, r.DomainMentioned)
	assert.Nil(t, r.MentionPosition)
	assert.NotNil(t, r.Sources)
	assert.NotNil(t, r.CompetitorsMentioned)
}

func TestChatGPTSuccessRunsPostProcessing(t *testing.T) {
	opts, ext := testOptions(t)
	client := &scripted{answers: []llm.Answer{{
		Text:    mentionText,
		Sources: []models.SearchSource{{URL: "https://acmeplumbing.com.au"}},
	}}}
	a := NewChatGPT(client, opts)

	r := a.Query(context.Background(), "emergency plumber sydney", "acmeplumbing.com.au", nil)
	assert.Equal(t, models.ChatGPT, r.Platform)
	assert.True(t, r.SearchEnabled)
	assert.Empty(t, r.Error)
	assert.True(t, r.DomainMentioned)
	require.NotNil(t, r.MentionPosition)
	assert.Equal(t, 2, *r.MentionPosition)
	assert.Len(t, r.Sources, 1)
	assert.Equal(t, []models.CompetitorMention{{Name: "Bob's Pipes"}}, r.CompetitorsMentioned)
	assert.Equal(t, 1, ext.calls)

	require.Len(t, client.locs, 1)
	require.NotNil(t, client.locs[0])
	assert.Equal(t, "Sydney", client.locs[0].City)
	assert.Equal(t, "AU", client.locs[0].Country)
}

func TestChatGPTRetriesEmptyResponse(t *testing.T) {
	opts, _ := testOptions(t)
	client := &scripted{answers: []llm.Answer{{}, {}, {Text: "finally"}}}
	a := NewChatGPT(client, opts)

	r := a.Query(context.Background(), "q", "acme.com", nil)
	assert.True(t, r.SearchEnabled)
	assert.Equal(t, "finally", r.Response)
	assert.Equal(t, 3, client.calls)
}

func TestChatGPTGivesUpAfterTwoRetries(t *testing.T) {
	opts, ext := testOptions(t)
	client := &scripted{answers: []llm.Answer{{}}}
	a := NewChatGPT(client, opts)

	r := a.Query(context.Background(), "q", "acme.com", nil)
	assertFailed(t, r)
	assert.Contains(t, r.Error, "empty response")
	assert.Equal(t, 3, client.calls)
	assert.Equal(t, 0, ext.calls)
}

func TestChatGPTErrorIsTerminal(t *testing.T) {
	opts, _ := testOptions(t)
	client := &scripted{errs: []error{errors.New("401 unauthorized")}}
	a := NewChatGPT(client, opts)

	r := a.Query(context.Background(), "q", "acme.com", nil)
	assertFailed(t, r)
	assert.Equal(t, 1, client.calls)
}

func TestChatGPTUsesLocationContext(t *testing.T) {
	opts, _ := testOptions(t)
	client := &scripted{answers: []llm.Answer{{Text: "ok"}}}
	a := NewChatGPT(client, opts)

	a.Query(context.Background(), "plumber near me", "acme.com", &models.LocationContext{City: "Perth", CountryCode: "au"})
	require.NotNil(t, client.locs[0])
	assert.Equal(t, llm.UserLocation{City: "Perth", Country: "AU", Region: "Western Australia"}, *client.locs[0])
}

func TestUnconfiguredAdaptersDegrade(t *testing.T) {
	opts, _ := testOptions(t)
	adapters := []Adapter{
		NewChatGPT(llm.NewOpenAIProvider(llm.OpenAIConfig{}), opts),
		NewClaude(llm.NewAnthropicProvider(llm.AnthropicConfig{}), &fakeSearcher{configured: true}, opts),
		NewClaude(&fakeGen{configured: true}, &fakeSearcher{configured: false}, opts),
		NewGemini(llm.NewGeminiProvider(llm.GeminiConfig{}), nil, opts),
		NewPerplexity(llm.NewPerplexityProvider(llm.PerplexityConfig{}), opts),
	}
	for _, a := range adapters {
		r := a.Query(context.Background(), "q", "acme.com", nil)
		assertFailed(t, r)
		assert.Equal(t, a.Platform(), r.Platform)
		assert.Contains(t, r.Error, "unavailable")
	}
}

func TestClaudeInjectsSearchContext(t *testing.T) {
	opts, _ := testOptions(t)
	gen := &fakeGen{configured: true, text: mentionText}
	s := &fakeSearcher{configured: true, results: []models.SearchSource{
		{URL: "https://bobspipes.example", Title: "Bob's Pipes", Snippet: "24/7 plumbing"},
	}}
	a := NewClaude(gen, s, opts)

	r := a.Query(context.Background(), "best plumber", "acmeplumbing.com.au", nil)
	assert.True(t, r.SearchEnabled)
	assert.True(t, r.DomainMentioned)
	assert.Equal(t, s.results, r.Sources)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "https://bobspipes.example")
	assert.Contains(t, gen.prompts[0], "Question: best plumber")
}

func TestClaudeSearchFailureFailsQuery(t *testing.T) {
	opts, _ := testOptions(t)
	gen := &fakeGen{configured: true, text: "unused"}
	s := &fakeSearcher{configured: true, err: errors.New("quota exceeded")}
	a := NewClaude(gen, s, opts)

	r := a.Query(context.Background(), "best plumber", "acme.com", nil)
	assertFailed(t, r)
	assert.Contains(t, r.Error, "quota exceeded")
	assert.Empty(t, gen.prompts)
}

func TestGeminiGroundedSuccess(t *testing.T) {
	opts, _ := testOptions(t)
	gen := &fakeGen{configured: true, grounded: func() (llm.Answer, error) {
		return llm.Answer{Text: "grounded", Sources: []models.SearchSource{{URL: "https://g.example"}}}, nil
	}}
	s := &fakeSearcher{configured: true}
	a := NewGemini(gen, s, opts)

	r := a.Query(context.Background(), "q", "acme.com", nil)
	assert.True(t, r.SearchEnabled)
	assert.Equal(t, "grounded", r.Response)
	assert.Equal(t, 0, s.calls)
	assert.Empty(t, gen.prompts)
}

func TestGeminiFallsBackOnGroundingFailure(t *testing.T) {
	for _, groundErr := range []error{
		errors.New("403 permission denied"),
		fmt.Errorf("gemini: %w", llm.ErrEmptyResponse),
	} {
		opts, _ := testOptions(t)
		gen := &fakeGen{configured: true, text: "fallback answer", grounded: func() (llm.Answer, error) {
			return llm.Answer{}, groundErr
		}}
		s := &fakeSearcher{configured: true, results: []models.SearchSource{{URL: "https://s.example"}}}
		a := NewGemini(gen, s, opts)

		r := a.Query(context.Background(), "q", "acme.com", nil)
		assert.True(t, r.SearchEnabled, "error %v", groundErr)
		assert.Equal(t, "fallback answer", r.Response)
		assert.Equal(t, 1, s.calls)
		assert.Equal(t, s.results, r.Sources)
	}
}

func TestGeminiFallbackFailure(t *testing.T) {
	opts, _ := testOptions(t)
	gen := &fakeGen{configured: true, grounded: func() (llm.Answer, error) {
		return llm.Answer{}, errors.New("403")
	}}
	a := NewGemini(gen, &fakeSearcher{configured: true, err: errors.New("search down")}, opts)

	r := a.Query(context.Background(), "q", "acme.com", nil)
	assertFailed(t, r)
	assert.Contains(t, r.Error, "search down")
}

func TestPerplexityRetriesTransientErrors(t *testing.T) {
	opts, _ := testOptions(t)
	client := &scripted{
		errs:    []error{io.ErrUnexpectedEOF, syscall.ECONNRESET, nil},
		answers: []llm.Answer{{}, {}, {Text: "third time lucky"}},
	}
	a := NewPerplexity(client, opts)

	r := a.Query(context.Background(), "plumber in london", "acme.com", nil)
	assert.True(t, r.SearchEnabled)
	assert.Equal(t, "third time lucky", r.Response)
	assert.Equal(t, 3, client.calls)
	assert.Equal(t, "GB", client.country[0])
}

func TestPerplexityTransientBudget(t *testing.T) {
	opts, _ := testOptions(t)
	client := &scripted{errs: []error{errors.New("read: connection reset by peer")}}
	a := NewPerplexity(client, opts)

	r := a.Query(context.Background(), "q", "acme.com", nil)
	assertFailed(t, r)
	assert.Equal(t, 3, client.calls)
}

func TestPerplexityNonTransientFailsImmediately(t *testing.T) {
	opts, _ := testOptions(t)
	client := &scripted{errs: []error{&llm.APIError{Provider: "perplexity", StatusCode: 400, Body: "bad request"}}}
	a := NewPerplexity(client, opts)

	r := a.Query(context.Background(), "q", "acme.com", nil)
	assertFailed(t, r)
	assert.Equal(t, 1, client.calls)
}

func TestPerplexityEmptyBudget(t *testing.T) {
	opts, _ := testOptions(t)
	client := &scripted{answers: []llm.Answer{{}}}
	a := NewPerplexity(client, opts)

	r := a.Query(context.Background(), "q", "acme.com", nil)
	assertFailed(t, r)
	assert.Contains(t, r.Error, "empty response")
	assert.Equal(t, 3, client.calls)
}

type slowAsker struct {
	mu    sync.Mutex
	calls int
}

func (s *slowAsker) IsConfigured() bool { return true }

func (s *slowAsker) Ask(ctx context.Context, _, _ string) (llm.Answer, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	<-ctx.Done()
	return llm.Answer{}, ctx.Err()
}

func TestPerplexityPerAttemptTimeout(t *testing.T) {
	opts, _ := testOptions(t)
	opts.Timeout = 5 * time.Millisecond
	client := &slowAsker{}
	a := NewPerplexity(client, opts)

	r := a.Query(context.Background(), "q", "acme.com", nil)
	assertFailed(t, r)
	assert.Equal(t, 3, client.calls)
}

func TestPerplexityParentCancellationStopsRetries(t *testing.T) {
	opts, _ := testOptions(t)
	client := &slowAsker{}
	a := NewPerplexity(client, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	r := a.Query(ctx, "q", "acme.com", nil)
	assertFailed(t, r)
	assert.Equal(t, 1, client.calls)
}

func TestIsTransient(t *testing.T) {
	transient := []error{
		context.DeadlineExceeded,
		io.EOF,
		fmt.Errorf("wrapped: %w", syscall.ECONNRESET),
		errors.New("net/http: request canceled (Client.Timeout exceeded)"),
		errors.New("connection aborted"),
	}
	for _, err := range transient {
		assert.True(t, isTransient(err), "%v", err)
	}
	assert.False(t, isTransient(nil))
	assert.False(t, isTransient(errors.New("invalid api key")))
	assert.False(t, isTransient(context.Canceled))
}
