package research

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

func sug(q string, c models.Category, p models.Platform) models.RawQuerySuggestion {
	return models.RawQuerySuggestion{Query: q, Category: c, Platform: p}
}

func TestRankGroupsOverlappingSuggestions(t *testing.T) {
	in := []models.RawQuerySuggestion{
		sug("plumber near me sydney", models.CategoryLocal, models.ChatGPT),
		sug("how to fix a leaky tap", models.CategoryHowTo, models.ChatGPT),
		sug("emergency plumber sydney", models.CategoryRecommendation, models.Claude),
		sug("find a plumber in sydney", models.CategoryLocal, models.Gemini),
	}

	got := Rank(in, 10, []string{"emergency plumber", "hot water"})
	require.Len(t, got, 2)

	top := got[0]
	assert.Equal(t, "plumber near me sydney", top.Query)
	assert.Equal(t, models.CategoryLocal, top.Category)
	assert.Equal(t, []models.Platform{models.ChatGPT, models.Claude, models.Gemini}, top.SuggestedBy)
	assert.Equal(t, 30, top.RelevanceScore)

	assert.Equal(t, "how to fix a leaky tap", got[1].Query)
	assert.Equal(t, 10, got[1].RelevanceScore)
	assert.Greater(t, top.RelevanceScore, got[1].RelevanceScore)
}

func TestRankKeyPhraseBoost(t *testing.T) {
	in := []models.RawQuerySuggestion{
		sug("cheap hot water system install", models.CategoryPricing, models.ChatGPT),
		sug("best bathroom renovation ideas", models.CategoryGeneral, models.ChatGPT),
	}
	got := Rank(in, 5, []string{"Hot Water", "install", ""})
	require.Len(t, got, 2)
	assert.Equal(t, "cheap hot water system install", got[0].Query)
	assert.Equal(t, 20, got[0].RelevanceScore)
	assert.Equal(t, 10, got[1].RelevanceScore)
}

func TestRankRepresentativePrefersMidLength(t *testing.T) {
	in := []models.RawQuerySuggestion{
		sug("plumber sydney", models.CategoryLocal, models.ChatGPT),
		sug("plumber sydney cbd", models.CategoryLocal, models.Claude),
		sug("reliable plumber sydney", models.CategoryLocal, models.Gemini),
	}
	got := Rank(in, 5, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "reliable plumber sydney", got[0].Query)
}

func TestRankCategoryMajorityWithFirstSeenTieBreak(t *testing.T) {
	in := []models.RawQuerySuggestion{
		sug("best plumber sydney", models.CategoryRecommendation, models.ChatGPT),
		sug("best plumber sydney", models.CategoryLocal, models.Claude),
	}
	got := Rank(in, 5, nil)
	require.Len(t, got, 1)
	assert.Equal(t, models.CategoryRecommendation, got[0].Category)

	in = append(in, sug("Best Plumber Sydney", models.CategoryLocal, models.Perplexity))
	got = Rank(in, 5, nil)
	require.Len(t, got, 1)
	assert.Equal(t, models.CategoryLocal, got[0].Category)
	assert.Len(t, got[0].SuggestedBy, 3)
}

func TestRankTieBreakEqualSimilarityGoesToEarliestGroup(t *testing.T) {
	in := []models.RawQuerySuggestion{
		sug("alpha beta gamma delta", models.CategoryGeneral, models.ChatGPT),
		sug("alpha beta epsilon zeta", models.CategoryGeneral, models.Claude),
		sug("alpha beta", models.CategoryGeneral, models.Gemini),
	}
	got := Rank(in, 5, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha beta gamma delta", got[0].Query)
	assert.Equal(t, []models.Platform{models.ChatGPT, models.Gemini}, got[0].SuggestedBy)
	assert.Equal(t, []models.Platform{models.Claude}, got[1].SuggestedBy)
}

func TestRankTieBreakPrefersMostSimilarGroup(t *testing.T) {
	in := []models.RawQuerySuggestion{
		sug("alpha beta gamma", models.CategoryGeneral, models.ChatGPT),
		sug("alpha beta delta epsilon", models.CategoryGeneral, models.Claude),
		sug("alpha beta delta epsilon gamma", models.CategoryGeneral, models.Gemini),
	}
	got := Rank(in, 5, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha beta delta epsilon", got[0].Query)
	assert.Equal(t, []models.Platform{models.Claude, models.Gemini}, got[0].SuggestedBy)
	assert.Equal(t, []models.Platform{models.ChatGPT}, got[1].SuggestedBy)
}

func TestRankMergesGroupsWithSameRepresentative(t *testing.T) {
	// The long query joins the first group, then its repeat joins the second
	// group, and both groups pick it as their representative.
	long := "aaa bbb ccc ddd - is it ok"
	in := []models.RawQuerySuggestion{
		sug("aaa bbb", models.CategoryLocal, models.ChatGPT),
		sug(long, models.CategoryLocal, models.Claude),
		sug("aaa ccc ddd", models.CategoryPricing, models.Gemini),
		sug(long, models.CategoryPricing, models.Perplexity),
	}

	got := Rank(in, 10, nil)
	require.Len(t, got, 1)
	assert.Equal(t, long, got[0].Query)
	assert.Equal(t, QueryID(long), got[0].ID)
	assert.Equal(t, models.CategoryLocal, got[0].Category)
	assert.Equal(t, models.Platforms, got[0].SuggestedBy)
	assert.Equal(t, 40, got[0].RelevanceScore)

	seen := make(map[string]bool)
	for _, q := range Rank(in, 1, nil) {
		assert.False(t, seen[q.ID], "duplicate id %s", q.ID)
		seen[q.ID] = true
	}
}

func TestRankCategoryCapThenFill(t *testing.T) {
	var in []models.RawQuerySuggestion
	for i := 0; i < 6; i++ {
		in = append(in, sug(fmt.Sprintf("local query number%d unique%d", i, i), models.CategoryLocal, models.ChatGPT))
	}
	in = append(in, sug("pricing question about costs", models.CategoryPricing, models.ChatGPT))

	got := Rank(in, 3, nil)
	require.Len(t, got, 3)
	// ceil(3/3) = 1 local on the first pass, the pricing query, then one more local.
	assert.Equal(t, "local query number0 unique0", got[0].Query)
	assert.Equal(t, "local query number1 unique1", got[1].Query)
	assert.Equal(t, "pricing question about costs", got[2].Query)
}

func TestRankCapPrefersDiversity(t *testing.T) {
	in := []models.RawQuerySuggestion{
		sug("first local thing", models.CategoryLocal, models.ChatGPT),
		sug("first local thing", models.CategoryLocal, models.Claude),
		sug("second local item", models.CategoryLocal, models.ChatGPT),
		sug("second local item", models.CategoryLocal, models.Claude),
		sug("third local option", models.CategoryLocal, models.ChatGPT),
		sug("some pricing question", models.CategoryPricing, models.Gemini),
		sug("another howto question", models.CategoryHowTo, models.Gemini),
	}

	got := Rank(in, 4, nil)
	require.Len(t, got, 4)
	var queries []string
	for _, q := range got {
		queries = append(queries, q.Query)
	}
	// cap is 2 locals on the first pass; pricing and how-to fill the rest.
	assert.Equal(t, []string{"first local thing", "second local item", "some pricing question", "another howto question"}, queries)
}

func TestRankIdempotent(t *testing.T) {
	in := []models.RawQuerySuggestion{
		sug("plumber near me sydney", models.CategoryLocal, models.ChatGPT),
		sug("emergency plumber sydney", models.CategoryRecommendation, models.Claude),
		sug("how to fix a leaky tap", models.CategoryHowTo, models.Gemini),
		sug("hot water repair cost", models.CategoryPricing, models.Perplexity),
		sug("hot water repair price", models.CategoryPricing, models.ChatGPT),
	}
	first := Rank(in, 3, []string{"hot water"})
	second := Rank(in, 3, []string{"hot water"})
	assert.Equal(t, first, second)
}

func TestRankSkipsBlankAndHandlesNoLimit(t *testing.T) {
	in := []models.RawQuerySuggestion{
		sug("   ", models.CategoryLocal, models.ChatGPT),
		sug("a b", models.CategoryLocal, models.ChatGPT),
		sug("A B", models.CategoryLocal, models.Claude),
		sug("c d", models.CategoryLocal, models.Gemini),
	}
	got := Rank(in, 0, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "a b", got[0].Query)
	assert.Len(t, got[0].SuggestedBy, 2)
	assert.Empty(t, Rank(nil, 5, nil))
}

func TestQueryIDDeterministic(t *testing.T) {
	assert.Equal(t, QueryID("Plumber Sydney"), QueryID(" plumber sydney "))
	assert.NotEqual(t, QueryID("plumber sydney"), QueryID("plumber melbourne"))
}
