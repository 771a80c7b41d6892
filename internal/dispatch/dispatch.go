// Package dispatch fans researched queries out to every platform adapter and
// gathers the results back in query order.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/AIVisibility/internal/logger"
	"github.com/TobiSchelling/AIVisibility/internal/metrics"
	"github.com/TobiSchelling/AIVisibility/internal/models"
	"github.com/TobiSchelling/AIVisibility/internal/providers"
)

// Options configures an Orchestrator.
type Options struct {
	// PerPlatformLimit caps in-flight queries per platform. Zero or less
	// means no cap.
	PerPlatformLimit int
	Logger           *zap.Logger
}

// Orchestrator runs every (query, platform) unit concurrently.
type Orchestrator struct {
	adapters map[models.Platform]providers.Adapter
	limit    int
	log      *zap.Logger
}

// NewOrchestrator indexes adapters by platform. A later adapter for the same
// platform replaces an earlier one.
func NewOrchestrator(adapters []providers.Adapter, opts Options) *Orchestrator {
	byPlatform := make(map[models.Platform]providers.Adapter, len(adapters))
	for _, a := range adapters {
		if a != nil {
			byPlatform[a.Platform()] = a
		}
	}
	return &Orchestrator{
		adapters: byPlatform,
		limit:    opts.PerPlatformLimit,
		log:      logger.OrNop(opts.Logger),
	}
}

// DispatchAll sends every query to every platform and returns one
// QueryResults per query, in input order, each holding one result per
// platform in models.Platforms order. Unit failures become error results;
// DispatchAll itself never fails.
//
// Progress events are sent without blocking, so a slow reader may miss
// intermediate counts. progress may be nil. Otherwise DispatchAll owns it:
// the channel is closed before DispatchAll returns, so the caller must pass a
// fresh channel to each call and must not close it.
func (o *Orchestrator) DispatchAll(
	ctx context.Context,
	queries []models.ResearchedQuery,
	domain string,
	loc *models.LocationContext,
	progress chan<- models.Progress,
) []models.QueryResults {
	if progress != nil {
		defer close(progress)
	}

	total := len(queries) * len(models.Platforms)
	o.log.Info("dispatching",
		zap.Int("queries", len(queries)),
		zap.Int("units", total),
		zap.Int("per_platform_limit", o.limit))

	// Each unit owns exactly one slot, so no lock is needed.
	slots := make([][]models.SearchQueryResult, len(queries))
	for i := range slots {
		slots[i] = make([]models.SearchQueryResult, len(models.Platforms))
	}

	var completed atomic.Int64
	var platforms errgroup.Group
	for pi, p := range models.Platforms {
		pi, p := pi, p
		adapter := o.adapters[p]
		platforms.Go(func() error {
			var units errgroup.Group
			if o.limit > 0 {
				units.SetLimit(o.limit)
			}
			for qi, q := range queries {
				qi, q := qi, q
				units.Go(func() error {
					slots[qi][pi] = o.runUnit(ctx, adapter, p, q.Query, domain, loc)
					n := int(completed.Add(1))
					report(progress, models.Progress{Completed: n, Total: total})
					return nil
				})
			}
			return units.Wait()
		})
	}
	_ = platforms.Wait()

	out := make([]models.QueryResults, len(queries))
	for i, q := range queries {
		out[i] = models.QueryResults{QueryID: q.ID, Query: q.Query, Results: slots[i]}
	}

	o.log.Info("dispatch complete", zap.Int("units", int(completed.Load())))
	return out
}

// runUnit queries one platform, turning a missing adapter or a panic into an
// error result.
func (o *Orchestrator) runUnit(
	ctx context.Context,
	a providers.Adapter,
	p models.Platform,
	query, domain string,
	loc *models.LocationContext,
) (res models.SearchQueryResult) {
	start := time.Now()
	active := metrics.DispatchActive.WithLabelValues(string(p))
	active.Inc()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("adapter panicked",
				zap.String("platform", string(p)),
				zap.String("query", query),
				zap.Any("panic", r))
			res = providers.ErrorResult(p, query, time.Since(start), fmt.Errorf("%s adapter panicked: %v", p, r))
		}
		active.Dec()
		metrics.ObserveUnit(res, time.Since(start))
	}()

	if a == nil {
		return providers.ErrorResult(p, query, time.Since(start), fmt.Errorf("no adapter configured for %s", p))
	}

	res = a.Query(ctx, query, domain, loc)
	res.Platform = p
	if res.Query == "" {
		res.Query = query
	}
	return res
}

func report(progress chan<- models.Progress, ev models.Progress) {
	if progress == nil {
		return
	}
	select {
	case progress <- ev:
	default:
	}
}
