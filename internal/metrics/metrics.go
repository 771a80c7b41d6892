// Package metrics holds the Prometheus collectors for scans.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

var (
	DispatchUnits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aivis_dispatch_units_total",
			Help: "Query/platform units completed, by outcome and whether the domain was mentioned",
		},
		[]string{"platform", "outcome", "mentioned"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aivis_dispatch_unit_duration_seconds",
			Help:    "Wall-clock time of one query/platform unit",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"platform"},
	)

	DispatchActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aivis_dispatch_units_active",
			Help: "Query/platform units currently in flight",
		},
		[]string{"platform"},
	)

	ResearchSuggestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aivis_research_suggestions_total",
			Help: "Query suggestions accepted from each platform during research",
		},
		[]string{"platform"},
	)

	VisibilityScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aivis_visibility_score",
			Help: "Most recent visibility score per platform, plus overall",
		},
		[]string{"platform"},
	)
)

// ObserveUnit records one finished dispatch unit.
func ObserveUnit(r models.SearchQueryResult, elapsed time.Duration) {
	outcome := "ok"
	if r.Error != "" {
		outcome = "error"
	}
	p := string(r.Platform)
	DispatchUnits.WithLabelValues(p, outcome, strconv.FormatBool(r.DomainMentioned)).Inc()
	DispatchDuration.WithLabelValues(p).Observe(elapsed.Seconds())
}

// ObserveScore publishes a score result.
func ObserveScore(s models.ScoreResult) {
	VisibilityScore.WithLabelValues("overall").Set(float64(s.Overall))
	for p, ps := range s.ByPlatform {
		VisibilityScore.WithLabelValues(string(p)).Set(float64(ps.Score))
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
