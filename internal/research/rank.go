package research

import (
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

const (
	similarityThreshold = 0.5
	minTokenLength      = 3
	platformWeight      = 10
	keyPhraseWeight     = 5
	preferredMinLength  = 20
	preferredMaxLength  = 60
)

// queryNamespace seeds deterministic query IDs.
var queryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("aivis:query"))

type group struct {
	tokens  map[string]struct{}
	members []models.RawQuerySuggestion
}

// Rank groups similar suggestions, scores each group and selects up to limit
// queries, limiting any one category to ceil(limit/3) on the first pass. A
// limit <= 0 returns every group. Output is ordered by score, highest first.
//
// A suggestion joins the existing group whose first query is most similar to
// it (Jaccard over tokens longer than two characters, at least 0.5); equal
// similarity goes to the group created first.
func Rank(suggestions []models.RawQuerySuggestion, limit int, keyPhrases []string) []models.ResearchedQuery {
	var groups []*group
	for _, s := range suggestions {
		s.Query = strings.TrimSpace(s.Query)
		if s.Query == "" {
			continue
		}
		toks := tokenize(s.Query)

		var best *group
		bestSim := 0.0
		for _, g := range groups {
			sim := similarity(toks, g.tokens, s.Query, g.members[0].Query)
			if sim >= similarityThreshold && sim > bestSim {
				best, bestSim = g, sim
			}
		}
		if best == nil {
			groups = append(groups, &group{tokens: toks, members: []models.RawQuerySuggestion{s}})
			continue
		}
		best.members = append(best.members, s)
	}

	// Two groups can settle on the same representative text. They collapse
	// into the earlier one so no query ID is shortlisted twice.
	ranked := make([]models.ResearchedQuery, 0, len(groups))
	byID := make(map[string]int, len(groups))
	for _, g := range groups {
		q := g.build(keyPhrases)
		if i, ok := byID[q.ID]; ok {
			ranked[i] = mergeQueries(ranked[i], q, keyPhrases)
			continue
		}
		byID[q.ID] = len(ranked)
		ranked = append(ranked, q)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	if limit <= 0 || limit >= len(ranked) {
		return ranked
	}
	return selectDiverse(ranked, limit)
}

func categoryCap(limit int) int {
	return (limit + 2) / 3
}

// selectDiverse picks up to limit queries: first honoring the per-category
// cap, then filling remaining slots in score order.
func selectDiverse(ranked []models.ResearchedQuery, limit int) []models.ResearchedQuery {
	perCategory := categoryCap(limit)
	chosen := make([]bool, len(ranked))
	counts := make(map[models.Category]int)
	n := 0

	for i, q := range ranked {
		if n == limit {
			break
		}
		if counts[q.Category] < perCategory {
			chosen[i] = true
			counts[q.Category]++
			n++
		}
	}
	for i := range ranked {
		if n == limit {
			break
		}
		if !chosen[i] {
			chosen[i] = true
			n++
		}
	}

	out := make([]models.ResearchedQuery, 0, n)
	for i, q := range ranked {
		if chosen[i] {
			out = append(out, q)
		}
	}
	return out
}

func (g *group) build(keyPhrases []string) models.ResearchedQuery {
	query := g.members[0].Query
	for _, m := range g.members {
		if n := len(m.Query); n >= preferredMinLength && n <= preferredMaxLength {
			query = m.Query
			break
		}
	}

	suggested := make(map[models.Platform]bool)
	for _, m := range g.members {
		suggested[m.Platform] = true
	}
	var by []models.Platform
	for _, p := range models.Platforms {
		if suggested[p] {
			by = append(by, p)
		}
	}

	return models.ResearchedQuery{
		ID:             QueryID(query),
		Query:          query,
		Category:       g.category(),
		SuggestedBy:    by,
		RelevanceScore: platformWeight*len(by) + keyPhraseWeight*keyPhraseMatches(query, keyPhrases),
	}
}

// mergeQueries folds b into a, which keeps its text and category.
func mergeQueries(a, b models.ResearchedQuery, keyPhrases []string) models.ResearchedQuery {
	suggested := make(map[models.Platform]bool, len(a.SuggestedBy)+len(b.SuggestedBy))
	for _, p := range a.SuggestedBy {
		suggested[p] = true
	}
	for _, p := range b.SuggestedBy {
		suggested[p] = true
	}
	a.SuggestedBy = nil
	for _, p := range models.Platforms {
		if suggested[p] {
			a.SuggestedBy = append(a.SuggestedBy, p)
		}
	}
	a.RelevanceScore = platformWeight*len(a.SuggestedBy) + keyPhraseWeight*keyPhraseMatches(a.Query, keyPhrases)
	return a
}

// category is the most frequent member category, ties going to the one seen first.
func (g *group) category() models.Category {
	counts := make(map[models.Category]int)
	var order []models.Category
	for _, m := range g.members {
		if counts[m.Category] == 0 {
			order = append(order, m.Category)
		}
		counts[m.Category]++
	}

	best := order[0]
	for _, c := range order[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	if best == "" {
		return models.CategoryGeneral
	}
	return best
}

// QueryID is the stable identifier for a query text.
func QueryID(query string) string {
	return uuid.NewSHA1(queryNamespace, []byte(strings.ToLower(strings.TrimSpace(query)))).String()
}

func keyPhraseMatches(query string, keyPhrases []string) int {
	q := strings.ToLower(query)
	n := 0
	for _, kp := range keyPhrases {
		kp = strings.ToLower(strings.TrimSpace(kp))
		if kp != "" && strings.Contains(q, kp) {
			n++
		}
	}
	return n
}

func tokenize(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len([]rune(w)) >= minTokenLength {
			out[w] = struct{}{}
		}
	}
	return out
}

// similarity is the Jaccard index of two token sets. Queries identical up to
// case are always fully similar, even when they have no usable tokens.
func similarity(a, b map[string]struct{}, rawA, rawB string) float64 {
	if strings.EqualFold(rawA, rawB) {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
