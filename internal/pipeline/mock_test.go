package pipeline

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/dataset-cli/internal/model"
)

// --- Gatherer fake ---

type fakeGatherer struct {
	mu       sync.Mutex
	urls     []string
	pages    map[string]string
	resolved []int
	fetched  []string
}

func (g *fakeGatherer) ResolveURLs(_ context.Context, _ string, max int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolved = append(g.resolved, max)
	return g.urls
}

func (g *fakeGatherer) FetchPageText(_ context.Context, pageURL string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetched = append(g.fetched, pageURL)
	text, ok := g.pages[pageURL]
	return text, ok
}

func (g *fakeGatherer) Fetched() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.fetched...)
}

// --- Extractor fake ---

type fakeExtractor struct {
	mu          sync.Mutex
	byChunk     map[string][]model.Record
	errByChunk  map[string]error
	unavailable bool
	calls       []string
}

func (x *fakeExtractor) Available() bool { return !x.unavailable }

func (x *fakeExtractor) ExtractFromChunk(_ context.Context, chunk string, _ *model.ExtractionRequest) ([]model.Record, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls = append(x.calls, chunk)
	if err := x.errByChunk[chunk]; err != nil {
		return nil, err
	}
	return x.byChunk[chunk], nil
}

func (x *fakeExtractor) Calls() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.calls...)
}

// --- RunLog mock ---

type mockRunLog struct {
	mock.Mock
}

func (m *mockRunLog) CreateRun(ctx context.Context, query string, fields []string, target int) (*model.Run, error) {
	args := m.Called(ctx, query, fields, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockRunLog) FinishRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error {
	args := m.Called(ctx, runID, status, stats, runErr)
	return args.Error(0)
}
