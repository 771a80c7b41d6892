package models

import (
	"fmt"
	"strings"
)

// Platform identifies one of the AI assistants a business is checked against.
type Platform string

const (
	ChatGPT    Platform = "chatgpt"
	Claude     Platform = "claude"
	Gemini     Platform = "gemini"
	Perplexity Platform = "perplexity"
)

// Platforms lists every platform in canonical order. Output that is grouped by
// platform always follows this order.
var Platforms = []Platform{ChatGPT, Claude, Gemini, Perplexity}

// reachWeights approximates each platform's share of AI-driven referral traffic.
var reachWeights = map[Platform]int{
	ChatGPT:    10,
	Perplexity: 4,
	Gemini:     2,
	Claude:     1,
}

// MaxReachPoints is the sum of all reach weights.
const MaxReachPoints = 17

// ReachWeight returns the fixed reach weight for a platform, or 0 if unknown.
func ReachWeight(p Platform) int {
	return reachWeights[p]
}

// Index returns the platform's position in Platforms, or -1.
func (p Platform) Index() int {
	for i, candidate := range Platforms {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	return p.Index() >= 0
}

// ParsePlatform converts a user-supplied name into a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}
