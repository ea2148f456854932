// Package scrape fetches a web page and reduces it to plain text, trying a
// chain of fetchers from cheapest to most capable.
package scrape

import "context"

// Result holds the text of one fetched page.
type Result struct {
	URL        string
	Title      string
	Text       string
	StatusCode int
	Source     string // e.g. "local_http", "jina", "firecrawl"
}

// Scraper fetches a single URL and returns its text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
