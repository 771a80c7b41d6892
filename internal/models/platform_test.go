package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReachWeightsSumToMax(t *testing.T) {
	sum := 0
	for _, p := range Platforms {
		sum += ReachWeight(p)
	}
	assert.Equal(t, MaxReachPoints, sum)
}

func TestReachWeightOrdering(t *testing.T) {
	assert.Greater(t, ReachWeight(ChatGPT), ReachWeight(Perplexity))
	assert.Greater(t, ReachWeight(Perplexity), ReachWeight(Gemini))
	assert.Greater(t, ReachWeight(Gemini), ReachWeight(Claude))
	assert.Equal(t, 0, ReachWeight(Platform("bing")))
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("  ChatGPT ")
	require.NoError(t, err)
	assert.Equal(t, ChatGPT, p)

	_, err = ParsePlatform("copilot")
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryHowTo, ParseCategory("How-To"))
	assert.Equal(t, CategoryLocal, ParseCategory("local"))
	assert.Equal(t, CategoryGeneral, ParseCategory("something else"))
}
