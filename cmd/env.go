package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dataset-cli/internal/config"
	"github.com/sells-group/dataset-cli/internal/extract"
	"github.com/sells-group/dataset-cli/internal/pipeline"
	"github.com/sells-group/dataset-cli/internal/resilience"
	"github.com/sells-group/dataset-cli/internal/scrape"
	"github.com/sells-group/dataset-cli/internal/source"
	"github.com/sells-group/dataset-cli/internal/store"
	anthropicpkg "github.com/sells-group/dataset-cli/pkg/anthropic"
	"github.com/sells-group/dataset-cli/pkg/firecrawl"
	"github.com/sells-group/dataset-cli/pkg/jina"
)

// extractionEnv holds the store and the orchestrator used by the serve and
// extract commands.
type extractionEnv struct {
	Store        store.Store // may be nil
	Breakers     *resilience.Breakers
	Extractor    *extract.Extractor
	Orchestrator *pipeline.Orchestrator
}

// Close releases resources held by the environment.
func (e *extractionEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured backend. A nil Store with a nil error
// means the run log and page cache are disabled.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if st == nil {
		zap.L().Info("store disabled, run log and page cache are off")
	}
	return st, nil
}

// initExtraction builds every client and the orchestrator for mode.
// Callers should defer env.Close().
func initExtraction(ctx context.Context, mode string) (*extractionEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	return buildExtraction(cfg, st), nil
}

// buildExtraction wires clients and components from c. st may be nil.
func buildExtraction(c *config.Config, st store.Store) *extractionEnv {
	breakers := resilience.NewBreakers(resilience.DefaultBreakerConfig())

	var jinaClient jina.Client
	if c.Jina.Key != "" {
		jinaClient = jina.NewClient(c.Jina.Key,
			jina.WithBaseURL(c.Jina.BaseURL),
			jina.WithSearchBaseURL(c.Jina.SearchBaseURL),
			jina.WithTimeout(c.FetchTimeout()),
		)
	} else {
		zap.L().Debug("DATASET_JINA_KEY not set, jina search and reader disabled")
	}

	scrapers := []scrape.Scraper{
		scrape.NewLocalScraper(scrape.LocalOptions{
			UserAgent:    c.Fetch.UserAgent,
			Timeout:      c.FetchTimeout(),
			MaxBodyBytes: c.Fetch.MaxBodyBytes,
		}),
	}
	if jinaClient != nil {
		scrapers = append(scrapers, scrape.NewJinaAdapter(jinaClient, breakers.Get("jina_read")))
	}
	if c.Firecrawl.Key != "" {
		fc := firecrawl.NewClient(c.Firecrawl.Key,
			firecrawl.WithBaseURL(c.Firecrawl.BaseURL),
			firecrawl.WithTimeout(c.FetchTimeout()),
		)
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(fc))
	}
	patterns := append(append([]string{}, scrape.DefaultExcludePatterns...), c.Fetch.ExcludePaths...)
	chain := scrape.NewChain(scrape.NewPathMatcher(patterns), scrapers...)

	var searchers []source.Searcher
	for _, p := range c.Search.Providers {
		switch strings.ToLower(p) {
		case config.ProviderJina:
			if jinaClient == nil {
				zap.L().Info("jina search provider skipped, no key")
				continue
			}
			searchers = append(searchers, source.NewJinaSearcher(jinaClient))
		case config.ProviderDuckDuckGo:
			searchers = append(searchers, source.NewDuckDuckGoSearcher(c.Search.DuckDuckGoURL, c.Fetch.UserAgent, c.SearchTimeout()))
		}
	}

	opts := source.Options{
		Searchers:       searchers,
		Breakers:        breakers,
		FallbackBaseURL: c.Search.FallbackBaseURL,
		SearchTimeout:   c.SearchTimeout(),
		Scraper:         chain,
		CacheTTL:        c.CacheTTL(),
	}
	if st != nil {
		opts.Cache = st
	}
	gatherer := source.New(opts)

	var modelClient anthropicpkg.Client
	if c.Anthropic.Key != "" {
		modelClient = anthropicpkg.NewClient(c.Anthropic.Key, anthropicpkg.WithTimeout(c.ModelTimeout()))
	} else {
		zap.L().Warn("DATASET_ANTHROPIC_KEY not set, extraction requests will fail")
	}
	extractor := extract.New(modelClient, extract.Options{
		Model:             c.Anthropic.Model,
		MaxTokens:         c.Anthropic.MaxTokens,
		Timeout:           c.ModelTimeout(),
		PromptChunkLimit:  c.Extract.PromptChunkLimit,
		RequestsPerSecond: c.Anthropic.RequestsPerSecond,
	})

	var runs pipeline.RunLog
	if st != nil {
		runs = st
	}
	orch := pipeline.New(gatherer, extractor, runs, pipeline.Options{
		ChunkSize:        c.Extract.ChunkSize,
		ChunkConcurrency: c.Extract.ChunkConcurrency,
		MaxSearchResults: c.Extract.MaxSearchResults,
	})

	zap.L().Debug("extraction wired",
		zap.Strings("scrapers", chain.Names()),
		zap.Int("searchers", len(searchers)),
		zap.Bool("model_available", extractor.Available()),
		zap.Bool("store", st != nil),
	)

	return &extractionEnv{
		Store:        st,
		Breakers:     breakers,
		Extractor:    extractor,
		Orchestrator: orch,
	}
}
