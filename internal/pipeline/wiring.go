package pipeline

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/competitor"
	"github.com/TobiSchelling/AIVisibility/internal/config"
	"github.com/TobiSchelling/AIVisibility/internal/dispatch"
	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/logger"
	"github.com/TobiSchelling/AIVisibility/internal/models"
	"github.com/TobiSchelling/AIVisibility/internal/providers"
	"github.com/TobiSchelling/AIVisibility/internal/research"
	"github.com/TobiSchelling/AIVisibility/internal/search"
)

// adapter is a providers adapter that can explain why it is degraded.
type adapter interface {
	providers.Adapter
	ConfigErr() error
}

// PlatformStatus summarizes what one platform can do with the current
// credentials.
type PlatformStatus struct {
	Platform models.Platform
	// Research is true when the platform can suggest queries.
	Research bool
	// Unavailable is why dispatch to this platform would fail, or nil.
	Unavailable error
}

// Components is everything a scan needs, built from config.
type Components struct {
	Researcher   *research.Researcher
	Orchestrator *dispatch.Orchestrator
	Platforms    []PlatformStatus
	// SearchReady reports whether the external search backend is configured.
	SearchReady bool
	// CacheEnabled reports whether search results are cached in Redis.
	CacheEnabled bool

	rdb *redis.Client
}

// Build creates the LLM clients, external search, adapters, researcher and
// orchestrator from cfg. Missing credentials degrade single platforms; they
// never fail Build.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Components, error) {
	log = logger.OrNop(log)
	pc := cfg.Providers

	openai := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:      pc.OpenAI.APIKey(),
		BaseURL:     pc.OpenAI.BaseURL,
		Model:       pc.OpenAI.Model,
		SearchModel: pc.OpenAI.SearchModel,
		Timeout:     pc.OpenAI.Timeout(),
	})
	anthropic := llm.NewAnthropicProvider(llm.AnthropicConfig{
		APIKey:  pc.Anthropic.APIKey(),
		BaseURL: pc.Anthropic.BaseURL,
		Model:   pc.Anthropic.Model,
		Timeout: pc.Anthropic.Timeout(),
	})
	gemini := llm.NewGeminiProvider(llm.GeminiConfig{
		APIKey:  pc.Gemini.APIKey(),
		BaseURL: pc.Gemini.BaseURL,
		Model:   pc.Gemini.Model,
		Timeout: pc.Gemini.Timeout(),
	})
	perplexity := llm.NewPerplexityProvider(llm.PerplexityConfig{
		APIKey:  pc.Perplexity.APIKey(),
		BaseURL: pc.Perplexity.BaseURL,
		Model:   pc.Perplexity.Model,
	})
	extraction := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:  pc.OpenAI.APIKey(),
		BaseURL: pc.OpenAI.BaseURL,
		Model:   cfg.Extraction.Model,
	})

	c := &Components{}

	searcher, err := c.buildSearcher(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	opts := providers.Options{
		Extractor:     competitor.NewExtractor(extraction, log),
		Logger:        log,
		MaxTokens:     cfg.Dispatch.MaxTokens,
		SearchResults: cfg.Search.Results,
	}
	perplexityOpts := opts
	perplexityOpts.Timeout = pc.Perplexity.Timeout()

	adapters := []adapter{
		providers.NewChatGPT(openai, opts),
		providers.NewClaude(anthropic, searcher, opts),
		providers.NewGemini(gemini, searcher, opts),
		providers.NewPerplexity(perplexity, perplexityOpts),
	}

	researchers := map[models.Platform]llm.Provider{
		models.ChatGPT:    openai,
		models.Claude:     anthropic,
		models.Gemini:     gemini,
		models.Perplexity: perplexity,
	}
	c.Researcher = research.NewResearcher(researchers, cfg.Research.Throttle(), log)

	dispatchAdapters := make([]providers.Adapter, len(adapters))
	for i, a := range adapters {
		dispatchAdapters[i] = a
		c.Platforms = append(c.Platforms, PlatformStatus{
			Platform:    a.Platform(),
			Research:    researchers[a.Platform()].IsConfigured(),
			Unavailable: a.ConfigErr(),
		})
	}
	c.Orchestrator = dispatch.NewOrchestrator(dispatchAdapters, dispatch.Options{
		PerPlatformLimit: cfg.Dispatch.PerPlatformLimit,
		Logger:           log,
	})

	return c, nil
}

// buildSearcher returns the Google searcher, wrapped in the Redis cache when
// one is configured. A missing credential yields an unconfigured searcher.
func (c *Components) buildSearcher(ctx context.Context, cfg *config.Config, log *zap.Logger) (search.Searcher, error) {
	apiKey, engineID := cfg.Search.Google.Credentials()
	google, err := search.NewGoogleSearcher(ctx, search.GoogleConfig{
		APIKey:            apiKey,
		EngineID:          engineID,
		Endpoint:          cfg.Search.Google.Endpoint,
		RequestsPerSecond: cfg.Search.Google.RequestsPerSecond,
		Burst:             cfg.Search.Google.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating search client: %w", err)
	}
	if !google.IsConfigured() {
		log.Debug("external search not configured")
		return google, nil
	}
	c.SearchReady = true

	if !cfg.Search.Cache.Enabled() {
		return google, nil
	}
	c.rdb = search.NewRedisClient(search.RedisConfig{
		Address:  cfg.Search.Cache.Address,
		Password: cfg.Search.Cache.Password(),
		DB:       cfg.Search.Cache.DB,
	})
	c.CacheEnabled = true
	return search.NewCachedSearcher(google, c.rdb, cfg.Search.Cache.TTL(), log), nil
}

// Close releases the Redis connection, if any.
func (c *Components) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
