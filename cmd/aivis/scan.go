package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/AIVisibility/internal/database"
	"github.com/TobiSchelling/AIVisibility/internal/metrics"
	"github.com/TobiSchelling/AIVisibility/internal/models"
	"github.com/TobiSchelling/AIVisibility/internal/pipeline"
	"github.com/TobiSchelling/AIVisibility/internal/report"
)

// profileFile is the YAML file accepted by --profile.
type profileFile struct {
	Domain                 string                  `yaml:"domain"`
	models.BusinessProfile `yaml:",inline"`
	LocationContext        *models.LocationContext `yaml:"location_context"`
}

var (
	profilePath  string
	businessType string
	services     []string
	products     []string
	location     string
	keyPhrases   []string
	city         string
	country      string
	countryCode  string
	queryLimit   int
)

// addProfileFlags registers the business profile flags shared by research and scan.
func addProfileFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&profilePath, "profile", "p", "", "YAML file with the business profile")
	f.StringVar(&businessType, "business-type", "", "Business type, e.g. \"plumbing services\"")
	f.StringSliceVar(&services, "service", nil, "Service offered (repeatable)")
	f.StringSliceVar(&products, "product", nil, "Product sold (repeatable)")
	f.StringVar(&location, "location", "", "Where the business operates")
	f.StringSliceVar(&keyPhrases, "key-phrase", nil, "Key phrase from the business's site (repeatable)")
	f.StringVar(&city, "city", "", "City used to localize answers")
	f.StringVar(&country, "country", "", "Country used to localize answers")
	f.StringVar(&countryCode, "country-code", "", "Two-letter country code used to localize answers")
	f.IntVarP(&queryLimit, "limit", "n", 0, "Maximum queries to shortlist (default from config)")
}

// loadRequest merges the profile file with flags; flags win.
func loadRequest(domainArg string) (pipeline.Request, error) {
	var pf profileFile
	if profilePath != "" {
		data, err := os.ReadFile(profilePath)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("reading profile: %w", err)
		}
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return pipeline.Request{}, fmt.Errorf("parsing profile: %w", err)
		}
	}

	p := pf.BusinessProfile
	if businessType != "" {
		p.BusinessType = businessType
	}
	if len(services) > 0 {
		p.Services = services
	}
	if len(products) > 0 {
		p.Products = products
	}
	if location != "" {
		p.Location = location
	}
	if len(keyPhrases) > 0 {
		p.KeyPhrases = keyPhrases
	}

	loc := pf.LocationContext
	if city != "" || country != "" || countryCode != "" {
		loc = &models.LocationContext{City: city, Country: country, CountryCode: strings.ToUpper(countryCode)}
	}
	if loc == nil && p.Location != "" {
		loc = &models.LocationContext{Location: p.Location}
	}
	if loc != nil && loc.Location == "" {
		loc.Location = p.Location
	}

	domain := pf.Domain
	if domainArg != "" {
		domain = domainArg
	}

	return pipeline.Request{
		Domain:   domain,
		Profile:  p,
		Location: loc,
		Limit:    queryLimit,
	}, nil
}

func printProgress(stage string, p models.Progress) {
	fmt.Fprintf(os.Stderr, "\r  %s: %d/%d", stage, p.Completed, p.Total)
	if p.Completed == p.Total {
		fmt.Fprintln(os.Stderr)
	}
}

// --- research command ---

var researchJSON bool

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research and rank the queries customers would ask AI assistants",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := loadRequest("")
		if err != nil {
			return err
		}
		if req.Profile.BusinessType == "" {
			return errors.New("a business type is required (--business-type or --profile)")
		}

		comps, err := pipeline.Build(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer comps.Close()

		pipe := pipeline.New(comps.Researcher, comps.Orchestrator, nil, pipeline.Options{
			QueryLimit: cfg.Research.QueryLimit,
			Logger:     log,
			OnProgress: printProgress,
		})
		queries, err := pipe.Research(cmd.Context(), req)
		if err != nil {
			return err
		}

		if researchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(queries)
		}

		fmt.Printf("\n%d queries:\n", len(queries))
		for i, q := range queries {
			by := make([]string, len(q.SuggestedBy))
			for j, p := range q.SuggestedBy {
				by[j] = string(p)
			}
			fmt.Printf("  %2d. %s\n      %s, score %d, suggested by %s\n",
				i+1, q.Query, q.Category, q.RelevanceScore, strings.Join(by, ", "))
		}
		return nil
	},
}

func init() {
	addProfileFlags(researchCmd)
	researchCmd.Flags().BoolVar(&researchJSON, "json", false, "Print queries as JSON")
}

// --- scan command ---

var (
	dryRun      bool
	noSave      bool
	queries     []string
	metricsAddr string
)

var scanCmd = &cobra.Command{
	Use:   "scan [domain]",
	Short: "Run a full visibility scan: research -> dispatch -> score -> store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var domainArg string
		if len(args) == 1 {
			domainArg = args[0]
		}
		req, err := loadRequest(domainArg)
		if err != nil {
			return err
		}
		req.Queries = queries
		if req.Domain == "" {
			return errors.New("a domain is required (argument or 'domain:' in --profile)")
		}
		if len(req.Queries) == 0 && req.Profile.BusinessType == "" {
			return errors.New("a business type is required (--business-type or --profile) unless --query is given")
		}

		ctx := cmd.Context()
		comps, err := pipeline.Build(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer comps.Close()

		addr := metricsAddr
		if addr == "" {
			addr = cfg.Metrics.Addr
		}
		if addr != "" && !dryRun {
			go func() {
				if err := metrics.Serve(ctx, addr, log); err != nil {
					log.Warn("metrics server stopped", zap.Error(err))
				}
			}()
		}

		var store pipeline.Store
		var db *database.DB
		if !noSave && !dryRun {
			db, err = openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			store = db
		}

		pipe := pipeline.New(comps.Researcher, comps.Orchestrator, store, pipeline.Options{
			QueryLimit: cfg.Research.QueryLimit,
			Logger:     log,
			OnProgress: printProgress,
		})

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(req)
		} else {
			fmt.Printf("Scanning %s...\n", req.Domain)
			result = pipe.Run(ctx, req)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		if err := result.Err(); err != nil {
			return err
		}
		if result.Score == nil {
			return nil
		}

		printScore(*result.Score)
		if result.ScanID != "" {
			fmt.Printf("\nScan complete! Run 'aivis report %s' for the full report.\n", shortID(result.ScanID))
		}
		return nil
	},
}

func init() {
	addProfileFlags(scanCmd)
	scanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without calling any platform")
	scanCmd.Flags().BoolVar(&noSave, "no-save", false, "Do not store the scan")
	scanCmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "Dispatch this query instead of researching (repeatable)")
	scanCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address during the scan")
}

func printScore(s models.ScoreResult) {
	fmt.Printf("\nVisibility: %d/100 (%s)\n", s.Overall, report.Band(s.Overall))
	for _, p := range models.Platforms {
		ps := s.ByPlatform[p]
		fmt.Printf("  %-10s %3d  (%d/%d, weight %d)\n", p, ps.Score, ps.Mentioned, ps.Total, models.ReachWeight(p))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
