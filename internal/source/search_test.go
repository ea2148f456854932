package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dataset-cli/pkg/jina"
)

type mockJina struct {
	mock.Mock
}

func (m *mockJina) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

func (m *mockJina) Search(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.SearchResponse), args.Error(1)
}

func TestJinaSearcher(t *testing.T) {
	t.Parallel()

	client := &mockJina{}
	client.On("Search", mock.Anything, "gaming laptops").Return(&jina.SearchResponse{
		Code: 200,
		Data: []jina.SearchResult{
			{Title: "A", URL: "https://a.example/top"},
			{Title: "no url"},
			{Title: "B", URL: "https://b.example/reviews"},
		},
	}, nil)

	s := NewJinaSearcher(client)
	assert.Equal(t, "jina_search", s.Name())

	urls, err := s.Search(context.Background(), "gaming laptops", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/top", "https://b.example/reviews"}, urls)
}

const ddgPage = `<html><body>
<div class="result results_links result--ad"><h2 class="result__title">
  <a class="result__a" href="https://ads.example/buy">Ad</a></h2></div>
<div class="result results_links"><h2 class="result__title">
  <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.example.com%2Flaptops%3Fpage%3D2&amp;rut=abc">Laptops</a></h2></div>
<div class="result results_links"><h2 class="result__title">
  <a class="result__a" href="https://shop.example/deals">Deals</a></h2></div>
<div class="result results_links"><h2 class="result__title">
  <a class="result__a" href="javascript:void(0)">Broken</a></h2></div>
<div class="result results_links"><h2 class="result__title">
  <a class="result__a" href="https://third.example/">Third</a></h2></div>
</body></html>`

func TestDuckDuckGoSearcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gaming laptops", r.URL.Query().Get("q"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer srv.Close()

	s := NewDuckDuckGoSearcher(srv.URL+"/html/", "test-agent", time.Second)
	assert.Equal(t, "duckduckgo", s.Name())

	urls, err := s.Search(context.Background(), "gaming laptops", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.example.com/laptops?page=2",
		"https://shop.example/deals",
		"https://third.example/",
	}, urls)

	capped, err := s.Search(context.Background(), "gaming laptops", 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestDuckDuckGoSearcher_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewDuckDuckGoSearcher(srv.URL, "", time.Second).Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

func TestResultTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href string
		want string
	}{
		{"https://example.com/a", "https://example.com/a"},
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fb", "https://example.com/b"},
		{"https://duckduckgo.com/l/?kh=-1", ""},
		{"/relative/path", ""},
		{"mailto:x@example.com", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resultTarget(tt.href), tt.href)
	}
}
