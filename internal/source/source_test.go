package source

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dataset-cli/internal/resilience"
	"github.com/sells-group/dataset-cli/internal/scrape"
)

type stubSearcher struct {
	name  string
	urls  []string
	err   error
	calls int
}

func (s *stubSearcher) Name() string { return s.name }
func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]string, error) {
	s.calls++
	return s.urls, s.err
}

type stubScraper struct {
	results map[string]*scrape.Result
	calls   int
}

func (s *stubScraper) Scrape(_ context.Context, url string) (*scrape.Result, error) {
	s.calls++
	if r, ok := s.results[url]; ok {
		return r, nil
	}
	return nil, errors.New("scrape: all scrapers failed")
}

type memCache struct {
	pages  map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemCache() *memCache {
	return &memCache{pages: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) GetCachedPage(_ context.Context, pageURL string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	text, ok := c.pages[pageURL]
	return text, ok, nil
}

func (c *memCache) SetCachedPage(_ context.Context, pageURL, text string, ttl time.Duration) error {
	c.pages[pageURL] = text
	c.ttls[pageURL] = ttl
	return nil
}

func TestResolveURLs_DedupsAndCaps(t *testing.T) {
	t.Parallel()

	first := &stubSearcher{name: "jina_search", urls: []string{"https://a.example", "https://b.example", "https://a.example"}}
	second := &stubSearcher{name: "duckduckgo", urls: []string{"https://b.example", " https://c.example ", "https://d.example"}}
	g := New(Options{Searchers: []Searcher{first, nil, second}})

	urls := g.ResolveURLs(context.Background(), "laptop", 3)
	assert.Equal(t, []string{"https://a.example", "https://b.example", "https://c.example"}, urls)
}

func TestResolveURLs_StopsWhenFull(t *testing.T) {
	t.Parallel()

	first := &stubSearcher{name: "jina_search", urls: []string{"https://a.example", "https://b.example"}}
	second := &stubSearcher{name: "duckduckgo", urls: []string{"https://c.example"}}
	g := New(Options{Searchers: []Searcher{first, second}})

	urls := g.ResolveURLs(context.Background(), "laptop", 2)
	assert.Len(t, urls, 2)
	assert.Equal(t, 0, second.calls)
}

func TestResolveURLs_FallsBackOnFailure(t *testing.T) {
	t.Parallel()

	failing := &stubSearcher{name: "jina_search", err: errors.New("jina: search unexpected status 500")}
	empty := &stubSearcher{name: "duckduckgo"}
	g := New(Options{Searchers: []Searcher{failing, empty}})

	urls := g.ResolveURLs(context.Background(), "gaming laptops 2025", 10)
	assert.Equal(t, []string{"https://www.google.com/search?q=gaming+laptops+2025"}, urls)
}

func TestResolveURLs_NoSearchers(t *testing.T) {
	t.Parallel()

	g := New(Options{FallbackBaseURL: "https://search.example/?q="})
	assert.Equal(t, []string{"https://search.example/?q=laptop"}, g.ResolveURLs(context.Background(), "laptop", 0))
}

func TestResolveURLs_BreakerSkipsProvider(t *testing.T) {
	t.Parallel()

	failing := &stubSearcher{name: "jina_search", err: errors.New("down")}
	breakers := resilience.NewBreakers(resilience.BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour})
	g := New(Options{Searchers: []Searcher{failing}, Breakers: breakers})

	for range 4 {
		_ = g.ResolveURLs(context.Background(), "laptop", 5)
	}
	assert.Equal(t, 2, failing.calls)
	assert.Equal(t, resilience.CircuitOpen, breakers.States()["jina_search"])
}

func TestFallbackURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://www.google.com/search?q=best+budget+phones", FallbackURL("", " best budget phones "))
}

func TestFetchPageText_CachesSuccess(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{results: map[string]*scrape.Result{
		"https://a.example": {Text: "Dell XPS 13\n$999", Source: "local_http"},
	}}
	cache := newMemCache()
	g := New(Options{Scraper: scraper, Cache: cache, CacheTTL: 2 * time.Hour})

	text, ok := g.FetchPageText(context.Background(), "https://a.example")
	require.True(t, ok)
	assert.Equal(t, "Dell XPS 13\n$999", text)
	assert.Equal(t, 2*time.Hour, cache.ttls["https://a.example"])

	text, ok = g.FetchPageText(context.Background(), "https://a.example")
	require.True(t, ok)
	assert.Equal(t, "Dell XPS 13\n$999", text)
	assert.Equal(t, 1, scraper.calls)
}

func TestFetchPageText_Failures(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{results: map[string]*scrape.Result{
		"https://blank.example": {Text: "  \n "},
	}}
	cache := newMemCache()
	g := New(Options{Scraper: scraper, Cache: cache})

	_, ok := g.FetchPageText(context.Background(), "https://down.example")
	assert.False(t, ok)

	_, ok = g.FetchPageText(context.Background(), "https://blank.example")
	assert.False(t, ok)
	assert.Empty(t, cache.pages)

	_, ok = New(Options{}).FetchPageText(context.Background(), "https://a.example")
	assert.False(t, ok)
}

func TestFetchPageText_CacheErrorFallsThrough(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{results: map[string]*scrape.Result{"https://a.example": {Text: "fresh"}}}
	cache := newMemCache()
	cache.getErr = errors.New("sqlite: database is locked")

	text, ok := New(Options{Scraper: scraper, Cache: cache}).FetchPageText(context.Background(), "https://a.example")
	require.True(t, ok)
	assert.Equal(t, "fresh", text)
}

func TestChunk(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Chunk("", 10))
	assert.Equal(t, []string{"abc", "def", "g"}, Chunk("abcdefg", 3))
	assert.Equal(t, []string{"ab"}, Chunk("ab", 3))
	assert.Equal(t, []string{"éé", "é"}, Chunk("ééé", 2))

	long := strings.Repeat("x", 9000)
	chunks := Chunk(long, 0)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], DefaultChunkSize)
	assert.Len(t, chunks[2], 1000)
	assert.Equal(t, long, strings.Join(chunks, ""))
}
