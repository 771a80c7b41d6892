// Package research asks AI platforms for realistic customer queries and
// ranks the suggestions into a shortlist.
package research

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/logger"
	"github.com/TobiSchelling/AIVisibility/internal/metrics"
	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// DefaultThrottle is the pause between one platform call finishing and the
// next one starting.
const DefaultThrottle = 300 * time.Millisecond

const maxTokens = 1500

// ErrNoResearchProviders is returned when no platform has a usable client.
var ErrNoResearchProviders = errors.New("no research providers configured")

// Researcher collects query suggestions from each platform in turn.
type Researcher struct {
	providers map[models.Platform]llm.Provider
	throttle  time.Duration
	log       *zap.Logger
}

// NewResearcher creates a researcher. throttle is the pause after each
// platform call before the next one starts; zero disables it.
func NewResearcher(providers map[models.Platform]llm.Provider, throttle time.Duration, log *zap.Logger) *Researcher {
	return &Researcher{
		providers: providers,
		throttle:  throttle,
		log:       logger.OrNop(log),
	}
}

// Configured returns the platforms with a usable client, in platform order.
func (r *Researcher) Configured() []models.Platform {
	var out []models.Platform
	for _, p := range models.Platforms {
		if prov, ok := r.providers[p]; ok && prov != nil && prov.IsConfigured() {
			out = append(out, p)
		}
	}
	return out
}

// Research asks every configured platform for suggestions, one platform at a
// time, pausing for the throttle between calls. Per-platform failures are
// logged and contribute nothing.
//
// progress may be nil. Otherwise it receives a non-blocking update after each
// platform and Research closes it before returning, on every path, so the
// caller must pass a fresh channel to each call and must not close it.
func (r *Researcher) Research(ctx context.Context, profile models.BusinessProfile, progress chan<- models.Progress) ([]models.RawQuerySuggestion, error) {
	if progress != nil {
		defer close(progress)
	}

	platforms := r.Configured()
	if len(platforms) == 0 {
		return nil, ErrNoResearchProviders
	}

	var all []models.RawQuerySuggestion
	for i, p := range platforms {
		if i > 0 {
			if err := r.pause(ctx); err != nil {
				return all, err
			}
		} else if err := ctx.Err(); err != nil {
			return all, err
		}
		all = append(all, r.SuggestFor(ctx, p, profile)...)
		report(progress, models.Progress{Completed: i + 1, Total: len(platforms)})
	}

	r.log.Info("research complete",
		zap.Int("platforms", len(platforms)),
		zap.Int("suggestions", len(all)))
	return all, nil
}

// SuggestFor asks a single platform for suggestions. It never fails: errors
// and unparseable output yield an empty list.
func (r *Researcher) SuggestFor(ctx context.Context, platform models.Platform, profile models.BusinessProfile) []models.RawQuerySuggestion {
	log := r.log.With(zap.String("platform", string(platform)))

	prov, ok := r.providers[platform]
	if !ok || prov == nil || !prov.IsConfigured() {
		log.Debug("skipping unconfigured research provider")
		return nil
	}

	raw, err := prov.Generate(ctx, BuildPrompt(profile), maxTokens)
	if err != nil {
		log.Warn("research call failed", zap.Error(err))
		return nil
	}

	suggestions, rejected, err := parseSuggestions(raw, platform)
	if err != nil {
		log.Warn("unparseable research response", zap.Error(err), zap.Int("length", len(raw)))
		return nil
	}
	if rejected > 0 {
		log.Debug("dropped invalid suggestions", zap.Int("rejected", rejected))
	}
	metrics.ResearchSuggestions.WithLabelValues(string(platform)).Add(float64(len(suggestions)))
	return suggestions
}

// pause waits out the throttle or until ctx is done.
func (r *Researcher) pause(ctx context.Context) error {
	if r.throttle <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.throttle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func report(ch chan<- models.Progress, p models.Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
	}
}
