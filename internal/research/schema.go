package research

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/models"
)

const suggestionSchemaJSON = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "minLength": 3, "maxLength": 300},
    "category": {"type": "string"}
  },
  "required": ["query"]
}`

var suggestionSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(suggestionSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("research: invalid suggestion schema: %v", err))
	}
	return s
}()

// parseSuggestions extracts the suggestion array from a model response. Items
// failing the schema are dropped; a response with no array is an error.
func parseSuggestions(raw string, platform models.Platform) ([]models.RawQuerySuggestion, int, error) {
	var items []json.RawMessage
	if err := llm.DecodeJSONArray(raw, &items); err != nil {
		return nil, 0, err
	}

	out := make([]models.RawQuerySuggestion, 0, len(items))
	rejected := 0
	for _, item := range items {
		res, err := suggestionSchema.Validate(gojsonschema.NewBytesLoader(item))
		if err != nil || !res.Valid() {
			rejected++
			continue
		}
		var s struct {
			Query    string `json:"query"`
			Category string `json:"category"`
		}
		if err := json.Unmarshal(item, &s); err != nil {
			rejected++
			continue
		}
		q := strings.Join(strings.Fields(s.Query), " ")
		if q == "" {
			rejected++
			continue
		}
		out = append(out, models.RawQuerySuggestion{
			Query:    q,
			Category: models.ParseCategory(s.Category),
			Platform: platform,
		})
		if len(out) == SuggestionsPerPlatform {
			break
		}
	}
	return out, rejected, nil
}
