package models

import "strings"

// BusinessProfile describes the business being scanned. It is produced by an
// upstream content-analysis step and treated as read-only.
type BusinessProfile struct {
	BusinessType string   `yaml:"business_type" json:"businessType"`
	Services     []string `yaml:"services" json:"services"`
	Products     []string `yaml:"products" json:"products"`
	Location     string   `yaml:"location" json:"location,omitempty"`
	KeyPhrases   []string `yaml:"key_phrases" json:"keyPhrases"`
}

// Category classifies the intent behind a customer query.
type Category string

const (
	CategoryRecommendation Category = "recommendation"
	CategoryLocal          Category = "local"
	CategoryComparison     Category = "comparison"
	CategoryHowTo          Category = "how_to"
	CategoryPricing        Category = "pricing"
	CategoryReviews        Category = "reviews"
	CategoryProblem        Category = "problem"
	CategoryGeneral        Category = "general"
)

// Categories lists the accepted categories.
var Categories = []Category{
	CategoryRecommendation,
	CategoryLocal,
	CategoryComparison,
	CategoryHowTo,
	CategoryPricing,
	CategoryReviews,
	CategoryProblem,
	CategoryGeneral,
}

// ParseCategory normalizes a model-supplied category. Unknown values map to general.
func ParseCategory(s string) Category {
	c := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryGeneral
}

// RawQuerySuggestion is one query proposed by one platform during research.
type RawQuerySuggestion struct {
	Query    string
	Category Category
	Platform Platform
}

// ResearchedQuery is a group of similar suggestions collapsed into one query.
type ResearchedQuery struct {
	ID             string     `json:"id"`
	Query          string     `json:"query"`
	Category       Category   `json:"category"`
	SuggestedBy    []Platform `json:"suggestedBy"`
	RelevanceScore int        `json:"relevanceScore"`
}

// SearchSource is a citation returned alongside a platform response.
type SearchSource struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}

// CompetitorMention is a competing business named in a response.
type CompetitorMention struct {
	Name    string `json:"name"`
	Context string `json:"context"`
}

// SearchQueryResult is the outcome of sending one query to one platform.
// Exactly one is produced per (query, platform) pair.
type SearchQueryResult struct {
	Platform             Platform            `json:"platform"`
	Query                string              `json:"query"`
	Response             string              `json:"response"`
	Sources              []SearchSource      `json:"sources"`
	SearchEnabled        bool                `json:"searchEnabled"`
	DomainMentioned      bool                `json:"domainMentioned"`
	MentionPosition      *int                `json:"mentionPosition"`
	CompetitorsMentioned []CompetitorMention `json:"competitorsMentioned"`
	ResponseTimeMs       int64               `json:"responseTimeMs"`
	Error                string              `json:"error,omitempty"`
}

// LocationContext biases "near me" style queries. It is advisory only.
type LocationContext struct {
	Location    string `yaml:"location" json:"location"`
	City        string `yaml:"city" json:"city"`
	Country     string `yaml:"country" json:"country"`
	CountryCode string `yaml:"country_code" json:"countryCode"`
}

// QueryResults groups the per-platform results for one researched query.
type QueryResults struct {
	QueryID string              `json:"queryId"`
	Query   string              `json:"query"`
	Results []SearchQueryResult `json:"results"`
}

// PlatformScore is the visibility score for a single platform.
type PlatformScore struct {
	Score     int `json:"score"`
	Mentioned int `json:"mentioned"`
	Total     int `json:"total"`
}

// ScoreResult is the reach-weighted visibility score for a full result set.
type ScoreResult struct {
	Overall    int                        `json:"overall"`
	ByPlatform map[Platform]PlatformScore `json:"byPlatform"`
}

// Progress reports how many units of work have completed out of a total.
type Progress struct {
	Completed int
	Total     int
}
