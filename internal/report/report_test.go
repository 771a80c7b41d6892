package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

func pos(i int) *int { return &i }

func sampleInput() Input {
	return Input{
		ScanID:       "0b7c",
		Domain:       "acmeplumbing.com.au",
		BusinessType: "plumbing services",
		Date:         "2026-10-16",
		Score: models.ScoreResult{
			Overall: 59,
			ByPlatform: map[models.Platform]models.PlatformScore{
				models.ChatGPT:    {Score: 100, Mentioned: 2, Total: 2},
				models.Claude:     {Score: 0, Mentioned: 0, Total: 2},
				models.Gemini:     {Score: 0, Mentioned: 0, Total: 2},
				models.Perplexity: {Score: 0, Mentioned: 0, Total: 2},
			},
		},
		Results: []models.QueryResults{
			{
				QueryID: "q1",
				Query:   "emergency plumber | sydney",
				Results: []models.SearchQueryResult{
					{Platform: models.ChatGPT, DomainMentioned: true, MentionPosition: pos(1),
						CompetitorsMentioned: []models.CompetitorMention{{Name: "Bob's Pipes"}, {Name: "Pipe Pros"}}},
					{Platform: models.Claude, Error: "claude adapter unavailable"},
					{Platform: models.Gemini, CompetitorsMentioned: []models.CompetitorMention{{Name: "bob's pipes"}}},
					{Platform: models.Perplexity},
				},
			},
			{
				QueryID: "q2",
				Query:   "hot water repair",
				Results: []models.SearchQueryResult{
					{Platform: models.ChatGPT, DomainMentioned: true, MentionPosition: pos(3)},
					{Platform: models.Claude},
					{Platform: models.Gemini},
				},
			},
		},
	}
}

func TestBand(t *testing.T) {
	assert.Equal(t, "Strong", Band(70))
	assert.Equal(t, "Moderate", Band(40))
	assert.Equal(t, "Low", Band(6))
	assert.Equal(t, "Not visible", Band(0))
}

func TestTopCompetitors(t *testing.T) {
	top := TopCompetitors(sampleInput().Results, 0)
	require.Len(t, top, 2)

	assert.Equal(t, "Bob's Pipes", top[0].Name)
	assert.Equal(t, 2, top[0].Mentions)
	assert.Equal(t, []models.Platform{models.ChatGPT, models.Gemini}, top[0].Platforms)
	assert.Equal(t, "Pipe Pros", top[1].Name)

	assert.Len(t, TopCompetitors(sampleInput().Results, 1), 1)
}

func TestMarkdown(t *testing.T) {
	out := Markdown(sampleInput())

	assert.Contains(t, out, "# AI visibility report: acmeplumbing.com.au")
	assert.Contains(t, out, "## Overall score: 59/100 (Moderate)")
	assert.Contains(t, out, "| ChatGPT | 10 | 2 | 2 | 100 |")
	assert.Contains(t, out, "| Claude | 1 | 0 | 2 | 0 |")
	assert.Contains(t, out, "| Bob's Pipes | 2 | ChatGPT, Gemini |")
	assert.Contains(t, out, `| emergency plumber \| sydney | yes (1) | error | no | no |`)
	assert.Contains(t, out, "| hot water repair | yes (3) | no | no | n/a |")
	assert.Contains(t, out, "- **Claude** / emergency plumber | sydney: claude adapter unavailable")

	// Platform rows follow the canonical order.
	assert.Less(t, strings.Index(out, "| ChatGPT |"), strings.Index(out, "| Perplexity |"))
}

func TestMarkdownEmpty(t *testing.T) {
	out := Markdown(Input{Domain: "acme.com"})
	assert.Contains(t, out, "Not visible")
	assert.Contains(t, out, "No competitors were named")
	assert.Contains(t, out, "No queries were dispatched")
	assert.NotContains(t, out, "## Errors")
}

func TestHTML(t *testing.T) {
	out, err := HTML(sampleInput())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>AI visibility report: acmeplumbing.com.au</title>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<h2>Top competitors</h2>")
}
