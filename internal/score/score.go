// Package score reduces dispatch results to a reach-weighted visibility score.
package score

import (
	"math"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// Score computes the per-platform and overall visibility scores. Error
// results count toward a platform's total. A platform with no results
// scores 0. Results for unknown platforms are ignored.
func Score(results []models.SearchQueryResult) models.ScoreResult {
	by := make(map[models.Platform]models.PlatformScore, len(models.Platforms))
	for _, p := range models.Platforms {
		by[p] = models.PlatformScore{}
	}

	for _, r := range results {
		ps, ok := by[r.Platform]
		if !ok {
			continue
		}
		ps.Total++
		if r.DomainMentioned {
			ps.Mentioned++
		}
		by[r.Platform] = ps
	}

	weighted := 0.0
	for _, p := range models.Platforms {
		ps := by[p]
		if ps.Total > 0 {
			ps.Score = round(100 * float64(ps.Mentioned) / float64(ps.Total))
		}
		by[p] = ps
		weighted += float64(ps.Score) / 100 * float64(models.ReachWeight(p))
	}

	return models.ScoreResult{
		Overall:    round(100 * weighted / models.MaxReachPoints),
		ByPlatform: by,
	}
}

// Flatten concatenates the per-query result groups.
func Flatten(groups []models.QueryResults) []models.SearchQueryResult {
	n := 0
	for _, g := range groups {
		n += len(g.Results)
	}
	out := make([]models.SearchQueryResult, 0, n)
	for _, g := range groups {
		out = append(out, g.Results...)
	}
	return out
}

// round halves away from zero; all inputs here are non-negative.
func round(f float64) int {
	return int(math.Round(f))
}
