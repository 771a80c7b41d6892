// Package competitor pulls competing business names out of AI responses.
package competitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/logger"
	"github.com/TobiSchelling/AIVisibility/internal/mention"
	"github.com/TobiSchelling/AIVisibility/internal/models"
)

const (
	// MinResponseLength is the shortest response worth an extraction call.
	MinResponseLength = 50
	// MaxCompetitors caps the names returned per response.
	MaxCompetitors = 5

	contextRadius = 30
	maxTokens     = 300
)

const extractPrompt = `Identify the real businesses, brands or companies named in the response below that compete with %s.

Rules:
- Return ONLY a JSON array of company names, e.g. ["Bob's Pipes", "City Drains"].
- Do NOT include %s or any variation of its name.
- Do NOT include generic terms ("local plumbers", "online stores"), platforms used only as sources, or locations.
- If no competitors are named, return [].

Response:
"""
%s
"""`

// Extractor finds competitor mentions with one auxiliary model call.
type Extractor struct {
	provider llm.Provider
	log      *zap.Logger
}

// NewExtractor creates an extractor. A nil or unconfigured provider yields an
// extractor that always returns no competitors.
func NewExtractor(provider llm.Provider, log *zap.Logger) *Extractor {
	return &Extractor{provider: provider, log: logger.OrNop(log)}
}

// Extract returns up to MaxCompetitors competitors named in response,
// excluding anything that looks like domain itself. It never fails: model and
// parse errors are logged and produce an empty list.
func (e *Extractor) Extract(ctx context.Context, response, domain string) []models.CompetitorMention {
	if len(strings.TrimSpace(response)) < MinResponseLength {
		return nil
	}
	if e.provider == nil || !e.provider.IsConfigured() {
		return nil
	}

	host := mention.Normalize(domain)
	raw, err := e.provider.Generate(ctx, fmt.Sprintf(extractPrompt, host, host, response), maxTokens)
	if err != nil {
		e.log.Warn("competitor extraction failed", zap.String("domain", host), zap.Error(err))
		return nil
	}

	names, err := parseNames(raw)
	if err != nil {
		e.log.Warn("competitor extraction returned unparseable output",
			zap.String("domain", host), zap.Error(err))
		return nil
	}

	return Build(names, response, domain)
}

// Build turns raw names into mentions: drops the target's own name, dedupes,
// attaches a context window and caps the list.
func Build(names []string, response, domain string) []models.CompetitorMention {
	root := mention.Root(domain)
	seen := make(map[string]bool)
	var out []models.CompetitorMention

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] || isSelf(key, root) {
			continue
		}
		seen[key] = true

		out = append(out, models.CompetitorMention{Name: name, Context: contextWindow(response, name)})
		if len(out) == MaxCompetitors {
			break
		}
	}
	return out
}

func isSelf(lowerName, root string) bool {
	if root == "" {
		return false
	}
	return strings.Contains(lowerName, root) || strings.Contains(alnum(lowerName), root)
}

func alnum(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// contextWindow returns the text within contextRadius bytes either side of
// the first case-insensitive occurrence of name, or "" when absent.
func contextWindow(response, name string) string {
	lower := strings.ToLower(response)
	if len(lower) != len(response) {
		lower = response
	}
	idx := strings.Index(lower, strings.ToLower(name))
	if idx < 0 {
		return ""
	}

	start := max(idx-contextRadius, 0)
	end := min(idx+len(name)+contextRadius, len(response))
	for start > 0 && !isRuneStart(response[start]) {
		start--
	}
	for end < len(response) && !isRuneStart(response[end]) {
		end++
	}
	return strings.TrimSpace(response[start:end])
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// parseNames accepts a JSON array of strings or of {"name": ...} objects.
func parseNames(raw string) ([]string, error) {
	var items []json.RawMessage
	if err := llm.DecodeJSONArray(raw, &items); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			names = append(names, s)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Name != "" {
			names = append(names, obj.Name)
		}
	}
	return names, nil
}
