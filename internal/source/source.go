// Package source turns a query into page text: it resolves candidate URLs
// through search providers, fetches and cleans each page, and cuts the text
// into windows the model can read.
package source

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dataset-cli/internal/resilience"
	"github.com/sells-group/dataset-cli/internal/scrape"
)

// Defaults for Gatherer.
const (
	DefaultFallbackBaseURL = "https://www.google.com/search?q="
	DefaultSearchTimeout   = 15 * time.Second
	DefaultCacheTTL        = 24 * time.Hour
	DefaultChunkSize       = 4000
	DefaultMaxResults      = 10
)

// PageScraper fetches one page as text.
type PageScraper interface {
	Scrape(ctx context.Context, url string) (*scrape.Result, error)
}

// PageCache stores page text by URL. store.Store satisfies it.
type PageCache interface {
	GetCachedPage(ctx context.Context, pageURL string) (string, bool, error)
	SetCachedPage(ctx context.Context, pageURL, text string, ttl time.Duration) error
}

// Options configures a Gatherer. Zero values take the defaults; a nil Cache
// disables caching.
type Options struct {
	Searchers       []Searcher
	Breakers        *resilience.Breakers
	FallbackBaseURL string
	SearchTimeout   time.Duration
	Scraper         PageScraper
	Cache           PageCache
	CacheTTL        time.Duration
}

// Gatherer resolves URLs and fetches page text. Failures never escape: a
// failed search falls back to a synthetic search URL and a failed fetch is
// reported as absent text.
type Gatherer struct {
	searchers     []Searcher
	breakers      *resilience.Breakers
	fallbackBase  string
	searchTimeout time.Duration
	scraper       PageScraper
	cache         PageCache
	cacheTTL      time.Duration
}

// New creates a Gatherer.
func New(opts Options) *Gatherer {
	if opts.Breakers == nil {
		opts.Breakers = resilience.NewBreakers(resilience.DefaultBreakerConfig())
	}
	if opts.FallbackBaseURL == "" {
		opts.FallbackBaseURL = DefaultFallbackBaseURL
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	var searchers []Searcher
	for _, s := range opts.Searchers {
		if s != nil {
			searchers = append(searchers, s)
		}
	}
	return &Gatherer{
		searchers:     searchers,
		breakers:      opts.Breakers,
		fallbackBase:  opts.FallbackBaseURL,
		searchTimeout: opts.SearchTimeout,
		scraper:       opts.Scraper,
		cache:         opts.Cache,
		cacheTTL:      opts.CacheTTL,
	}
}

// ResolveURLs returns up to max distinct candidate URLs for query. Providers
// are asked in order until max URLs are collected. When every provider fails
// or finds nothing, the result is the single fallback search URL.
func (g *Gatherer) ResolveURLs(ctx context.Context, query string, max int) []string {
	if max <= 0 {
		max = DefaultMaxResults
	}

	seen := make(map[string]bool)
	var urls []string
	for _, s := range g.searchers {
		if len(urls) >= max {
			break
		}
		found, err := resilience.ExecuteVal(ctx, g.breakers.Get(s.Name()), func(ctx context.Context) ([]string, error) {
			ctx, cancel := context.WithTimeout(ctx, g.searchTimeout)
			defer cancel()
			return s.Search(ctx, query, max)
		})
		if err != nil {
			zap.L().Warn("source: search provider failed",
				zap.String("provider", s.Name()),
				zap.String("query", query),
				zap.Error(err),
			)
			continue
		}
		for _, u := range found {
			u = strings.TrimSpace(u)
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
			if len(urls) >= max {
				break
			}
		}
		zap.L().Debug("source: search provider returned",
			zap.String("provider", s.Name()),
			zap.Int("urls", len(found)),
		)
	}

	if len(urls) == 0 {
		fallback := FallbackURL(g.fallbackBase, query)
		zap.L().Info("source: no search results, using fallback url", zap.String("url", fallback))
		return []string{fallback}
	}
	return urls
}

// FallbackURL builds the synthetic search URL used when no provider answers.
func FallbackURL(base, query string) string {
	if base == "" {
		base = DefaultFallbackBaseURL
	}
	return base + strings.ReplaceAll(strings.TrimSpace(query), " ", "+")
}

// FetchPageText returns the cleaned text of pageURL, or false when the page
// could not be fetched or has no text.
func (g *Gatherer) FetchPageText(ctx context.Context, pageURL string) (string, bool) {
	if g.cache != nil {
		text, ok, err := g.cache.GetCachedPage(ctx, pageURL)
		if err != nil {
			zap.L().Warn("source: page cache read failed", zap.String("url", pageURL), zap.Error(err))
		} else if ok {
			zap.L().Debug("source: page cache hit", zap.String("url", pageURL))
			return text, true
		}
	}

	if g.scraper == nil {
		return "", false
	}
	res, err := g.scraper.Scrape(ctx, pageURL)
	if err != nil {
		zap.L().Debug("source: fetch failed", zap.String("url", pageURL), zap.Error(err))
		return "", false
	}
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return "", false
	}

	if g.cache != nil {
		if err := g.cache.SetCachedPage(ctx, pageURL, res.Text, g.cacheTTL); err != nil {
			zap.L().Warn("source: page cache write failed", zap.String("url", pageURL), zap.Error(err))
		}
	}
	zap.L().Debug("source: fetched page",
		zap.String("url", pageURL),
		zap.String("scraper", res.Source),
		zap.Int("chars", len(res.Text)),
	)
	return res.Text, true
}

// Chunk splits text into contiguous windows of at most size runes, in order.
// A size of zero or less uses DefaultChunkSize.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
