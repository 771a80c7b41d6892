package research

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// SuggestionsPerPlatform is how many queries each platform is asked for.
const SuggestionsPerPlatform = 10

const categoryList = "recommendation, local, comparison, how_to, pricing, reviews, problem, general"

const servicePrompt = `You are researching how real customers look for a service business using AI assistants.

Business type: %s
Services offered: %s
Location: %s

Write exactly %d questions a potential customer would realistically type into an AI assistant when looking for these services. Mix intents: asking for recommendations, finding someone local, comparing providers, pricing, reviews, and describing a problem they need fixed. Write them the way customers talk, not the way businesses advertise. Do not name any specific business.

Categories: %s

Return ONLY a JSON array, no other text:
[{"query": "...", "category": "..."}]`

const retailPrompt = `You are researching how real shoppers look for products using AI assistants.

Store type: %s
Products sold: %s
Location: %s

Write exactly %d questions a shopper would realistically type into an AI assistant when looking to buy these products. Mix intents: asking where to buy, best brands or stores, comparisons, price ranges, reviews, and style or how-to questions. Include a few questions about buying locally or online. Do not name any specific store.

Categories: %s

Return ONLY a JSON array, no other text:
[{"query": "...", "category": "..."}]`

// BuildPrompt renders the research prompt for a profile, picking the retail
// or service template.
func BuildPrompt(profile models.BusinessProfile) string {
	retailer := IsRetailer(profile.BusinessType, profile.Products, profile.KeyPhrases)

	items := offerings(profile, retailer)
	list := "not specified"
	if len(items) > 0 {
		list = strings.Join(items, ", ")
	}
	location := strings.TrimSpace(profile.Location)
	if location == "" {
		location = "not specified"
	}
	businessType := strings.TrimSpace(profile.BusinessType)
	if businessType == "" {
		businessType = "not specified"
	}

	tmpl := servicePrompt
	if retailer {
		tmpl = retailPrompt
	}
	return fmt.Sprintf(tmpl, businessType, list, location, SuggestionsPerPlatform, categoryList)
}
