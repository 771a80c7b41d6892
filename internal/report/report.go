// Package report renders a stored scan as a Markdown or HTML visibility report.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// TopCompetitorCount is the number of competitors listed in a report.
const TopCompetitorCount = 10

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

var platformNames = map[models.Platform]string{
	models.ChatGPT:    "ChatGPT",
	models.Claude:     "Claude",
	models.Gemini:     "Gemini",
	models.Perplexity: "Perplexity",
}

// Input is everything a report shows.
type Input struct {
	ScanID       string
	Domain       string
	BusinessType string
	Date         string
	Score        models.ScoreResult
	Results      []models.QueryResults
}

// CompetitorCount is how often a competitor was named across a scan.
type CompetitorCount struct {
	Name      string
	Mentions  int
	Platforms []models.Platform
}

// Band describes an overall score in words.
func Band(score int) string {
	switch {
	case score >= 70:
		return "Strong"
	case score >= 40:
		return "Moderate"
	case score > 0:
		return "Low"
	default:
		return "Not visible"
	}
}

// TopCompetitors counts competitor mentions case-insensitively, keeping the
// first spelling seen. Ties sort by name.
func TopCompetitors(results []models.QueryResults, n int) []CompetitorCount {
	index := make(map[string]int)
	var counts []CompetitorCount
	seenOn := make(map[string]map[models.Platform]bool)

	for _, qr := range results {
		for _, r := range qr.Results {
			for _, c := range r.CompetitorsMentioned {
				name := strings.TrimSpace(c.Name)
				if name == "" {
					continue
				}
				key := strings.ToLower(name)
				i, ok := index[key]
				if !ok {
					i = len(counts)
					index[key] = i
					counts = append(counts, CompetitorCount{Name: name})
					seenOn[key] = make(map[models.Platform]bool)
				}
				counts[i].Mentions++
				seenOn[key][r.Platform] = true
			}
		}
	}

	for i := range counts {
		on := seenOn[strings.ToLower(counts[i].Name)]
		for _, p := range models.Platforms {
			if on[p] {
				counts[i].Platforms = append(counts[i].Platforms, p)
			}
		}
	}

	sort.SliceStable(counts, func(a, b int) bool {
		if counts[a].Mentions != counts[b].Mentions {
			return counts[a].Mentions > counts[b].Mentions
		}
		return strings.ToLower(counts[a].Name) < strings.ToLower(counts[b].Name)
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Markdown renders the report.
func Markdown(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# AI visibility report: %s\n\n", in.Domain)
	var meta []string
	if in.BusinessType != "" {
		meta = append(meta, in.BusinessType)
	}
	if in.Date != "" {
		meta = append(meta, in.Date)
	}
	if in.ScanID != "" {
		meta = append(meta, "scan `"+in.ScanID+"`")
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, " · ") + "\n\n")
	}

	fmt.Fprintf(&b, "## Overall score: %d/100 (%s)\n\n", in.Score.Overall, Band(in.Score.Overall))
	b.WriteString("The overall score weights each platform by its share of AI-driven traffic.\n\n")

	b.WriteString("## By platform\n\n")
	b.WriteString("| Platform | Reach weight | Mentioned | Queries | Score |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, p := range models.Platforms {
		ps := in.Score.ByPlatform[p]
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n",
			platformNames[p], models.ReachWeight(p), ps.Mentioned, ps.Total, ps.Score)
	}
	b.WriteString("\n")

	b.WriteString("## Top competitors\n\n")
	competitors := TopCompetitors(in.Results, TopCompetitorCount)
	if len(competitors) == 0 {
		b.WriteString("No competitors were named in any response.\n\n")
	} else {
		b.WriteString("| Competitor | Mentions | Platforms |\n")
		b.WriteString("|---|---:|---|\n")
		for _, c := range competitors {
			names := make([]string, len(c.Platforms))
			for i, p := range c.Platforms {
				names[i] = platformNames[p]
			}
			fmt.Fprintf(&b, "| %s | %d | %s |\n", cell(c.Name), c.Mentions, strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Queries\n\n")
	if len(in.Results) == 0 {
		b.WriteString("No queries were dispatched.\n\n")
	} else {
		b.WriteString("| Query |")
		for _, p := range models.Platforms {
			b.WriteString(" " + platformNames[p] + " |")
		}
		b.WriteString("\n|---|")
		for range models.Platforms {
			b.WriteString(":---:|")
		}
		b.WriteString("\n")
		for _, qr := range in.Results {
			byPlatform := make(map[models.Platform]models.SearchQueryResult, len(qr.Results))
			for _, r := range qr.Results {
				byPlatform[r.Platform] = r
			}
			b.WriteString("| " + cell(qr.Query) + " |")
			for _, p := range models.Platforms {
				r, ok := byPlatform[p]
				b.WriteString(" " + outcome(r, ok) + " |")
			}
			b.WriteString("\n")
		}
		b.WriteString("\nPositions: 1 = first third of the answer, 2 = middle, 3 = last third.\n\n")
	}

	var failures []string
	for _, qr := range in.Results {
		for _, r := range qr.Results {
			if r.Error != "" {
				failures = append(failures, fmt.Sprintf("- **%s** / %s: %s", platformNames[r.Platform], qr.Query, r.Error))
			}
		}
	}
	if len(failures) > 0 {
		b.WriteString("## Errors\n\n")
		b.WriteString(strings.Join(failures, "\n"))
		b.WriteString("\n\n")
	}

	return b.String()
}

func outcome(r models.SearchQueryResult, ok bool) string {
	switch {
	case !ok:
		return "n/a"
	case r.Error != "":
		return "error"
	case r.DomainMentioned && r.MentionPosition != nil:
		return fmt.Sprintf("yes (%d)", *r.MentionPosition)
	case r.DomainMentioned:
		return "yes"
	default:
		return "no"
	}
}

// cell makes text safe inside a Markdown table cell.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>AI visibility report: {{.Domain}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; }
th { background: #f4f4f4; }
code { background: #f4f4f4; padding: 0 0.2rem; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders the report as a standalone HTML page.
func HTML(in Input) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(in)), &body); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	var out bytes.Buffer
	err := page.Execute(&out, map[string]any{
		"Domain": in.Domain,
		"Body":   template.HTML(body.String()), //nolint: gosec
	})
	if err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return out.String(), nil
}
