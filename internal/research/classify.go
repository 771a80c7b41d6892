package research

import (
	"regexp"
	"strings"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// substituteLimit is how many key phrases stand in for an empty
// products or services list.
const substituteLimit = 5

var (
	saasKeywords = []string{
		"saas", "software", "app", "apps", "platform", "cloud", "api", "crm", "erp",
		"subscription software", "web application", "tech startup", "developer tools",
	}
	retailKeywords = []string{
		"retail", "shop", "store", "boutique", "ecommerce", "e-commerce", "online store",
		"furniture", "clothing", "apparel", "fashion", "homewares", "decor", "jewellery",
		"jewelry", "gift", "merchandise",
	}
	productIndicators = []string{
		"furniture", "sofa", "couch", "chair", "table", "bed", "mattress", "lamp", "rug",
		"cushion", "curtain", "bedding", "decor", "homeware", "kitchenware", "home goods",
		"clothing", "dress", "shirt", "jeans", "jacket", "shoes", "sneakers", "apparel",
	}

	saasPattern    = wordPattern(saasKeywords, true)
	retailPattern  = wordPattern(retailKeywords, false)
	productPattern = wordPattern(append(append([]string{}, productIndicators...), retailKeywords...), false)
)

// wordPattern matches any keyword at a word start; whole additionally
// requires a word end.
func wordPattern(keywords []string, whole bool) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	expr := `\b(?:` + strings.Join(quoted, "|") + `)`
	if whole {
		expr += `\b`
	}
	return regexp.MustCompile(expr)
}

// IsRetailer decides which prompt template a business gets. Software
// businesses are never retailers; otherwise a retail keyword in the business
// type, or at least two product-like key phrases, makes it one. Products are
// counted in place of key phrases only when there are no key phrases.
func IsRetailer(businessType string, products, keyPhrases []string) bool {
	bt := strings.ToLower(businessType)
	if saasPattern.MatchString(bt) {
		return false
	}
	if retailPattern.MatchString(bt) {
		return true
	}

	phrases := nonEmpty(keyPhrases)
	if len(phrases) == 0 {
		phrases = nonEmpty(products)
	}
	matches := 0
	for _, phrase := range phrases {
		if productPattern.MatchString(strings.ToLower(phrase)) {
			matches++
		}
	}
	return matches >= 2
}

// offerings returns the list describing what the business sells: products for
// retailers, services otherwise, falling back to the first key phrases.
func offerings(profile models.BusinessProfile, retailer bool) []string {
	list := profile.Services
	if retailer {
		list = profile.Products
	}
	list = nonEmpty(list)
	if len(list) > 0 {
		return list
	}

	phrases := nonEmpty(profile.KeyPhrases)
	if len(phrases) > substituteLimit {
		phrases = phrases[:substituteLimit]
	}
	return phrases
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
