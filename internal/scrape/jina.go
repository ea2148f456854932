package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dataset-cli/internal/resilience"
	"github.com/sells-group/dataset-cli/pkg/jina"
)

// minJinaContent is the shortest reader output treated as a real page.
const minJinaContent = 100

// JinaAdapter wraps the Jina reader as a Scraper behind a circuit breaker.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaAdapter creates a JinaAdapter. A nil breaker gets the default
// config: three consecutive failures open the circuit for 60s, during which
// the chain moves straight to the next scraper.
func NewJinaAdapter(client jina.Client, breaker *resilience.CircuitBreaker) *JinaAdapter {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("jina_read", resilience.DefaultBreakerConfig())
	}
	return &JinaAdapter{client: client, breaker: breaker}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return j.breaker.Allows()
}

// Scrape fetches a URL via the Jina reader. Challenge pages and near-empty
// output count as failures.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*Result, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if needsFallback(resp) {
			return nil, eris.New("jina: response needs fallback")
		}

		pageURL := resp.Data.URL
		if pageURL == "" {
			pageURL = targetURL
		}
		return &Result{
			URL:        pageURL,
			Title:      resp.Data.Title,
			Text:       CleanText(resp.Data.Content),
			StatusCode: resp.Code,
			Source:     "jina",
		}, nil
	})
}

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// needsFallback reports whether a reader response is unusable.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < minJinaContent {
		return true
	}
	if len(content) >= 1000 {
		return false
	}

	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
