// Package pipeline runs a full visibility scan: research, rank, dispatch,
// score and store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/logger"
	"github.com/TobiSchelling/AIVisibility/internal/mention"
	"github.com/TobiSchelling/AIVisibility/internal/metrics"
	"github.com/TobiSchelling/AIVisibility/internal/models"
	"github.com/TobiSchelling/AIVisibility/internal/research"
	"github.com/TobiSchelling/AIVisibility/internal/score"
)

// ErrNoQueries is returned when research produced nothing to dispatch.
var ErrNoQueries = errors.New("no queries to dispatch")

// Researcher suggests candidate queries for a business. Research closes
// progress before returning.
type Researcher interface {
	Configured() []models.Platform
	Research(ctx context.Context, profile models.BusinessProfile, progress chan<- models.Progress) ([]models.RawQuerySuggestion, error)
}

// Dispatcher sends queries to every platform. DispatchAll closes progress
// before returning.
type Dispatcher interface {
	DispatchAll(ctx context.Context, queries []models.ResearchedQuery, domain string, loc *models.LocationContext, progress chan<- models.Progress) []models.QueryResults
}

// Store persists scans. *database.DB implements it.
type Store interface {
	CreateScan(domain string, profile models.BusinessProfile, loc *models.LocationContext) (string, error)
	SaveQueries(scanID string, queries []models.ResearchedQuery) error
	SaveResults(scanID string, results []models.QueryResults) error
	CompleteScan(scanID string, score models.ScoreResult) error
	FailScan(scanID, reason string) error
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	ScanID  string
	Queries []models.ResearchedQuery
	Results []models.QueryResults
	Score   *models.ScoreResult
	Steps   []StepResult
}

// Err returns the first step error.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(s.Name), s.Err)
		}
	}
	return nil
}

// Request describes one scan.
type Request struct {
	Domain   string
	Profile  models.BusinessProfile
	Location *models.LocationContext
	// Limit caps the shortlisted queries. Zero uses the pipeline default.
	Limit int
	// Queries, when set, are dispatched as-is and research is skipped.
	Queries []string
}

// Options configures a Pipeline.
type Options struct {
	QueryLimit int
	Logger     *zap.Logger
	// OnProgress receives progress for the "research" and "dispatch" stages.
	OnProgress func(stage string, p models.Progress)
}

// Pipeline orchestrates the scan steps.
type Pipeline struct {
	researcher Researcher
	dispatcher Dispatcher
	store      Store
	limit      int
	log        *zap.Logger
	onProgress func(string, models.Progress)
}

// New creates a new pipeline. store may be nil to skip persistence.
func New(researcher Researcher, dispatcher Dispatcher, store Store, opts Options) *Pipeline {
	return &Pipeline{
		researcher: researcher,
		dispatcher: dispatcher,
		store:      store,
		limit:      opts.QueryLimit,
		log:        logger.OrNop(opts.Logger),
		onProgress: opts.OnProgress,
	}
}

// Run executes a full scan.
func (p *Pipeline) Run(ctx context.Context, req Request) *Result {
	r := &Result{}
	domain := mention.Normalize(req.Domain)
	if domain == "" {
		r.Steps = append(r.Steps, StepResult{Name: "Validate", Err: errors.New("domain is required")})
		return r
	}

	if p.store != nil {
		id, err := p.store.CreateScan(domain, req.Profile, req.Location)
		if err != nil {
			r.Steps = append(r.Steps, StepResult{Name: "Store", Err: err})
			return r
		}
		r.ScanID = id
	}

	// Step 1: Research
	var queries []models.ResearchedQuery
	if len(req.Queries) > 0 {
		queries = ExplicitQueries(req.Queries)
		r.Steps = append(r.Steps, StepResult{
			Name:    "Research",
			Summary: fmt.Sprintf("Skipped; using %d supplied queries", len(queries)),
		})
	} else {
		step, ranked := p.runResearch(ctx, req)
		r.Steps = append(r.Steps, step)
		if step.Err != nil {
			p.fail(r, step.Err)
			return r
		}
		queries = ranked
	}
	r.Queries = queries

	// Step 2: Dispatch
	step := p.runDispatch(ctx, domain, req.Location, r)
	r.Steps = append(r.Steps, step)

	// Step 3: Score
	step = p.runScore(r)
	r.Steps = append(r.Steps, step)

	// Step 4: Store
	if p.store != nil {
		step = p.runStore(r)
		r.Steps = append(r.Steps, step)
	}

	return r
}

// Research runs research and ranking only.
func (p *Pipeline) Research(ctx context.Context, req Request) ([]models.ResearchedQuery, error) {
	step, queries := p.runResearch(ctx, req)
	return queries, step.Err
}

// DryRun shows what would be done without calling any platform.
func (p *Pipeline) DryRun(req Request) *Result {
	r := &Result{}
	limit := p.queryLimit(req)

	if len(req.Queries) > 0 {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Research",
			Summary: fmt.Sprintf("[dry-run] %d supplied queries, research skipped", len(req.Queries)),
		})
		limit = len(req.Queries)
	} else {
		configured := p.researcher.Configured()
		names := make([]string, len(configured))
		for i, pl := range configured {
			names[i] = string(pl)
		}
		summary := fmt.Sprintf("[dry-run] would ask %d platforms for suggestions: %s", len(configured), strings.Join(names, ", "))
		if len(configured) == 0 {
			summary = "[dry-run] no research platform is configured"
		}
		r.Steps = append(r.Steps, StepResult{Name: "Research", Summary: summary})
	}

	units := "every"
	if limit > 0 {
		units = fmt.Sprintf("%d", limit*len(models.Platforms))
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Dispatch",
		Summary: fmt.Sprintf("[dry-run] would dispatch up to %s query/platform units for %s", units, mention.Normalize(req.Domain)),
	})
	return r
}

func (p *Pipeline) queryLimit(req Request) int {
	if req.Limit > 0 {
		return req.Limit
	}
	return p.limit
}

func (p *Pipeline) runResearch(ctx context.Context, req Request) (StepResult, []models.ResearchedQuery) {
	p.log.Info("Step 1/4: Researching queries...")

	var suggestions []models.RawQuerySuggestion
	var err error
	p.withProgress("research", func(ch chan<- models.Progress) {
		suggestions, err = p.researcher.Research(ctx, req.Profile, ch)
	})
	if err != nil {
		return StepResult{Name: "Research", Err: err}, nil
	}

	queries := research.Rank(suggestions, p.queryLimit(req), req.Profile.KeyPhrases)
	if len(queries) == 0 {
		return StepResult{Name: "Research", Err: ErrNoQueries}, nil
	}
	return StepResult{
		Name:    "Research",
		Summary: fmt.Sprintf("Shortlisted %d queries from %d suggestions", len(queries), len(suggestions)),
	}, queries
}

func (p *Pipeline) runDispatch(ctx context.Context, domain string, loc *models.LocationContext, r *Result) StepResult {
	p.log.Info("Step 2/4: Dispatching queries...", zap.Int("queries", len(r.Queries)))

	p.withProgress("dispatch", func(ch chan<- models.Progress) {
		r.Results = p.dispatcher.DispatchAll(ctx, r.Queries, domain, loc, ch)
	})

	var units, failed, mentioned int
	for _, qr := range r.Results {
		for _, res := range qr.Results {
			units++
			if res.Error != "" {
				failed++
			}
			if res.DomainMentioned {
				mentioned++
			}
		}
	}
	return StepResult{
		Name:    "Dispatch",
		Summary: fmt.Sprintf("%d responses, %d mentions, %d errors", units, mentioned, failed),
	}
}

func (p *Pipeline) runScore(r *Result) StepResult {
	p.log.Info("Step 3/4: Scoring...")
	s := score.Score(score.Flatten(r.Results))
	r.Score = &s
	metrics.ObserveScore(s)
	return StepResult{
		Name:    "Score",
		Summary: fmt.Sprintf("Overall visibility %d/100", s.Overall),
	}
}

func (p *Pipeline) runStore(r *Result) StepResult {
	p.log.Info("Step 4/4: Storing scan...", zap.String("scan_id", r.ScanID))
	if err := p.store.SaveQueries(r.ScanID, r.Queries); err != nil {
		p.fail(r, err)
		return StepResult{Name: "Store", Err: err}
	}
	if err := p.store.SaveResults(r.ScanID, r.Results); err != nil {
		p.fail(r, err)
		return StepResult{Name: "Store", Err: err}
	}
	if err := p.store.CompleteScan(r.ScanID, *r.Score); err != nil {
		p.fail(r, err)
		return StepResult{Name: "Store", Err: err}
	}
	return StepResult{Name: "Store", Summary: "Saved scan " + r.ScanID}
}

// fail marks a stored scan as failed. Store errors are only logged.
func (p *Pipeline) fail(r *Result, cause error) {
	if p.store == nil || r.ScanID == "" {
		return
	}
	if err := p.store.FailScan(r.ScanID, cause.Error()); err != nil {
		p.log.Warn("marking scan failed", zap.String("scan_id", r.ScanID), zap.Error(err))
	}
}

// withProgress runs fn with a progress channel that fn's callee closes, and
// forwards every event to OnProgress until then.
func (p *Pipeline) withProgress(stage string, fn func(chan<- models.Progress)) {
	ch := make(chan models.Progress, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range ch {
			if p.onProgress != nil {
				p.onProgress(stage, ev)
			}
		}
	}()
	fn(ch)
	wg.Wait()
}

// ExplicitQueries turns user-supplied query strings into researched queries,
// dropping blanks and case-insensitive duplicates.
func ExplicitQueries(texts []string) []models.ResearchedQuery {
	seen := make(map[string]bool)
	var out []models.ResearchedQuery
	for _, t := range texts {
		t = strings.Join(strings.Fields(t), " ")
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.ResearchedQuery{
			ID:       research.QueryID(t),
			Query:    t,
			Category: models.CategoryGeneral,
		})
	}
	return out
}
