package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

func TestObserveUnit(t *testing.T) {
	ok := DispatchUnits.WithLabelValues("claude", "ok", "true")
	failed := DispatchUnits.WithLabelValues("claude", "error", "false")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObserveUnit(models.SearchQueryResult{Platform: models.Claude, DomainMentioned: true}, time.Second)
	ObserveUnit(models.SearchQueryResult{Platform: models.Claude, Error: "boom"}, time.Second)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestObserveScore(t *testing.T) {
	ObserveScore(models.ScoreResult{
		Overall: 59,
		ByPlatform: map[models.Platform]models.PlatformScore{
			models.ChatGPT: {Score: 100},
			models.Claude:  {Score: 0},
		},
	})
	assert.Equal(t, 59.0, testutil.ToFloat64(VisibilityScore.WithLabelValues("overall")))
	assert.Equal(t, 100.0, testutil.ToFloat64(VisibilityScore.WithLabelValues("chatgpt")))
	assert.Equal(t, 0.0, testutil.ToFloat64(VisibilityScore.WithLabelValues("claude")))
}
