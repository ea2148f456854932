package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dataset-cli/pkg/jina"
)

// Searcher resolves a query to candidate page URLs, best first.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, max int) ([]string, error)
}

// JinaSearcher searches through the Jina search API.
type JinaSearcher struct {
	client jina.Client
}

// NewJinaSearcher wraps a Jina client as a Searcher.
func NewJinaSearcher(client jina.Client) *JinaSearcher {
	return &JinaSearcher{client: client}
}

func (s *JinaSearcher) Name() string { return "jina_search" }

func (s *JinaSearcher) Search(ctx context.Context, query string, max int) ([]string, error) {
	resp, err := s.client.Search(ctx, query, jina.WithCount(max))
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(resp.Data))
	for _, r := range resp.Data {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	return urls, nil
}

// DefaultDuckDuckGoURL is the keyless HTML endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoSearcher scrapes the DuckDuckGo HTML results page.
type DuckDuckGoSearcher struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewDuckDuckGoSearcher creates a DuckDuckGoSearcher. Empty arguments take
// the defaults.
func NewDuckDuckGoSearcher(baseURL, userAgent string, timeout time.Duration) *DuckDuckGoSearcher {
	if baseURL == "" {
		baseURL = DefaultDuckDuckGoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DuckDuckGoSearcher{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

func (s *DuckDuckGoSearcher) Name() string { return "duckduckgo" }

func (s *DuckDuckGoSearcher) Search(ctx context.Context, query string, max int) ([]string, error) {
	reqURL := s.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: create request")
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("duckduckgo: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: parse results")
	}

	var urls []string
	doc.Find(".result").Not(".result--ad").Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		if target := resultTarget(href); target != "" {
			urls = append(urls, target)
		}
		return max <= 0 || len(urls) < max
	})
	return urls, nil
}

// resultTarget unwraps a DuckDuckGo redirect link to the page it points at.
func resultTarget(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		if u, err = url.Parse(target); err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
