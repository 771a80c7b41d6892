package competitor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockProvider struct {
	response   string
	err        error
	configured bool
	calls      int
	lastPrompt string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return m.configured }

const sampleResponse = "We recommend Acme Plumbing or Bob's Pipes for this job. City Drains is another option."

func TestExtractFiltersTargetDomain(t *testing.T) {
	p := &mockProvider{configured: true, response: `Sure: ["Acme Plumbing", "Bob's Pipes", "City Drains"]`}
	e := NewExtractor(p, zaptest.NewLogger(t))

	got := e.Extract(context.Background(), sampleResponse, "acmeplumbing.com.au")
	require.Len(t, got, 2)
	assert.Equal(t, "Bob's Pipes", got[0].Name)
	assert.Contains(t, got[0].Context, "Bob's Pipes")
	assert.Equal(t, "City Drains", got[1].Name)
	assert.Contains(t, p.lastPrompt, "acmeplumbing.com.au")
}

func TestExtractShortResponseSkipsCall(t *testing.T) {
	p := &mockProvider{configured: true, response: `["X"]`}
	e := NewExtractor(p, nil)

	assert.Empty(t, e.Extract(context.Background(), "Too short to bother.", "acme.com"))
	assert.Equal(t, 0, p.calls)
}

func TestExtractProviderErrorYieldsEmpty(t *testing.T) {
	p := &mockProvider{configured: true, err: errors.New("rate limited")}
	e := NewExtractor(p, zaptest.NewLogger(t))

	assert.Empty(t, e.Extract(context.Background(), sampleResponse, "acme.com"))
	assert.Equal(t, 1, p.calls)
}

func TestExtractUnparseableYieldsEmpty(t *testing.T) {
	p := &mockProvider{configured: true, response: "I could not find any companies."}
	e := NewExtractor(p, zaptest.NewLogger(t))

	assert.Empty(t, e.Extract(context.Background(), sampleResponse, "acme.com"))
}

func TestExtractUnconfiguredProvider(t *testing.T) {
	p := &mockProvider{configured: false}
	e := NewExtractor(p, nil)

	assert.Empty(t, e.Extract(context.Background(), sampleResponse, "acme.com"))
	assert.Equal(t, 0, p.calls)
	assert.Empty(t, NewExtractor(nil, nil).Extract(context.Background(), sampleResponse, "acme.com"))
}

func TestExtractObjectItems(t *testing.T) {
	p := &mockProvider{configured: true, response: "```json\n[{\"name\": \"City Drains\"}, {\"other\": 1}]\n```"}
	e := NewExtractor(p, nil)

	got := e.Extract(context.Background(), sampleResponse, "acme.com")
	require.Len(t, got, 1)
	assert.Equal(t, "City Drains", got[0].Name)
}

func TestBuildCapsAndDedupes(t *testing.T) {
	names := []string{"One Co", "one co", "Two Co", "Three Co", "Four Co", "Five Co", "Six Co"}
	got := Build(names, "nothing relevant here", "acme.com")
	require.Len(t, got, MaxCompetitors)
	assert.Equal(t, "One Co", got[0].Name)
	assert.Equal(t, "Two Co", got[1].Name)
	for _, c := range got {
		assert.Empty(t, c.Context)
	}
}

func TestBuildFiltersAlphanumericVariant(t *testing.T) {
	got := Build([]string{"Acme-Plumbing Pty Ltd", "Rival"}, "Rival is good", "acmeplumbing.com.au")
	require.Len(t, got, 1)
	assert.Equal(t, "Rival", got[0].Name)
}

func TestContextWindow(t *testing.T) {
	response := strings.Repeat("a", 40) + "Bob's Pipes" + strings.Repeat("b", 40)
	ctx := contextWindow(response, "bob's pipes")
	assert.Equal(t, strings.Repeat("a", 30)+"Bob's Pipes"+strings.Repeat("b", 30), ctx)

	assert.Equal(t, "Rival here", contextWindow("Rival here", "rival"))
	assert.Empty(t, contextWindow("nothing", "Rival"))
}
