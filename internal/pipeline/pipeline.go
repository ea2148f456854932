// Package pipeline drives one extraction request from query to records:
// search, fetch, relevance gate, per-chunk model extraction, admission under
// category quotas, dedup and truncation.
package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dataset-cli/internal/filter"
	"github.com/sells-group/dataset-cli/internal/model"
	"github.com/sells-group/dataset-cli/internal/source"
)

// Defaults for Options.
const (
	DefaultMaxSearchResults = 20
	DefaultChunkConcurrency = 1
)

// Gatherer resolves and fetches web pages. *source.Gatherer satisfies it.
type Gatherer interface {
	ResolveURLs(ctx context.Context, query string, max int) []string
	FetchPageText(ctx context.Context, pageURL string) (string, bool)
}

// ChunkExtractor turns one chunk of page text into candidate records.
// *extract.Extractor satisfies it.
type ChunkExtractor interface {
	ExtractFromChunk(ctx context.Context, chunk string, req *model.ExtractionRequest) ([]model.Record, error)
}

// availability is implemented by extractors that can report up front that
// the model cannot be called.
type availability interface {
	Available() bool
}

// RunLog records run metadata. store.Store satisfies it.
type RunLog interface {
	CreateRun(ctx context.Context, query string, fields []string, target int) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error
}

// Options tunes the orchestrator.
type Options struct {
	// ChunkSize is the rune window fed to the model. Default: 4000.
	ChunkSize int
	// ChunkConcurrency is how many chunks of one page are extracted at once.
	// Admission still runs in chunk order. Default: 1.
	ChunkConcurrency int
	// MaxSearchResults caps the search size. Default: 20.
	MaxSearchResults int
}

// Result is the outcome of a successful run.
type Result struct {
	RunID   string
	Records []model.Record
	Stats   model.RunStats
}

// Orchestrator runs extraction requests. It holds no per-request state and
// is safe for concurrent use.
type Orchestrator struct {
	gatherer  Gatherer
	extractor ChunkExtractor
	runs      RunLog
	opts      Options
}

// New creates an Orchestrator. runs may be nil to disable the run log.
func New(gatherer Gatherer, extractor ChunkExtractor, runs RunLog, opts Options) *Orchestrator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = source.DefaultChunkSize
	}
	if opts.ChunkConcurrency <= 0 {
		opts.ChunkConcurrency = DefaultChunkConcurrency
	}
	if opts.MaxSearchResults <= 0 {
		opts.MaxSearchResults = DefaultMaxSearchResults
	}
	return &Orchestrator{
		gatherer:  gatherer,
		extractor: extractor,
		runs:      runs,
		opts:      opts,
	}
}

// SearchSize is how many URLs to request for a target record count.
func (o *Orchestrator) SearchSize(target int) int {
	return max(1, min(o.opts.MaxSearchResults, 2*target))
}

// run is the mutable state of one request.
type run struct {
	req      *model.ExtractionRequest
	tracker  *model.CategoryTracker
	admitted []model.Record
	stats    model.RunStats
	log      *zap.Logger
}

func (r *run) enter(s State) {
	r.log.Debug("pipeline: state", zap.Stringer("state", s), zap.Int("admitted", len(r.admitted)))
}

func (r *run) full() bool {
	return len(r.admitted) >= r.req.TargetRecordCount
}

// Run executes one extraction request. It returns model.ErrModelUnavailable
// when the model cannot be called and model.ErrNoData when nothing survives
// filtering. Per-URL and per-chunk failures are logged and skipped.
func (o *Orchestrator) Run(ctx context.Context, req *model.ExtractionRequest) (*Result, error) {
	if req == nil || req.Query == "" || req.TargetRecordCount <= 0 {
		return nil, eris.Wrap(model.ErrInput, "pipeline: incomplete extraction request")
	}
	if a, ok := o.extractor.(availability); ok && !a.Available() {
		return nil, eris.Wrap(model.ErrModelUnavailable, "pipeline: no model client configured")
	}

	r := &run{
		req:     req,
		tracker: model.NewCategoryTracker(req.Fields),
		log:     zap.L().With(zap.String("query", req.Query), zap.Int("target", req.TargetRecordCount)),
	}
	r.enter(StateInit)

	runID := o.startRun(ctx, r)
	if runID != "" {
		r.log = r.log.With(zap.String("run_id", runID))
	}

	records, err := o.collect(ctx, r)
	if err != nil {
		o.finishRun(ctx, r, runID, model.RunStatusFailed, err)
		return nil, err
	}

	r.enter(StateDeduping)
	kept, dropped := model.Dedup(records)
	r.stats.Duplicates = dropped

	r.enter(StateDone)
	if len(kept) > req.TargetRecordCount {
		kept = kept[:req.TargetRecordCount]
	}
	r.stats.Records = len(kept)

	if len(kept) == 0 {
		o.finishRun(ctx, r, runID, model.RunStatusNoData, nil)
		return nil, eris.Wrapf(model.ErrNoData, "pipeline: no records for %q", req.Query)
	}

	o.finishRun(ctx, r, runID, model.RunStatusComplete, nil)
	r.log.Info("pipeline: extraction complete",
		zap.Int("records", len(kept)),
		zap.Int("urls_fetched", r.stats.URLsFetched),
		zap.Int("duplicates", dropped),
	)
	return &Result{RunID: runID, Records: kept, Stats: r.stats}, nil
}

// collect runs SEARCHING and the URL/chunk loop, returning admitted records
// in admission order.
func (o *Orchestrator) collect(ctx context.Context, r *run) ([]model.Record, error) {
	r.enter(StateSearching)
	urls := o.gatherer.ResolveURLs(ctx, r.req.Query, o.SearchSize(r.req.TargetRecordCount))
	if len(urls) == 0 {
		urls = []string{source.FallbackURL("", r.req.Query)}
	}
	r.stats.URLsResolved = len(urls)

	visited := make(map[string]bool, len(urls))
	for _, u := range urls {
		if r.full() {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pipeline: canceled")
		}
		if visited[u] {
			r.stats.URLsSkipped++
			continue
		}
		visited[u] = true

		r.enter(StateProcessingURL)
		text, ok := o.gatherer.FetchPageText(ctx, u)
		if !ok {
			r.stats.URLsSkipped++
			r.log.Debug("pipeline: no text, skipping url", zap.String("url", u))
			continue
		}
		r.stats.URLsFetched++

		if !filter.IsRelevant(text, r.req.Query) {
			r.stats.URLsIrrelevant++
			r.log.Debug("pipeline: irrelevant content, skipping url", zap.String("url", u))
			continue
		}

		if err := o.processChunks(ctx, r, u, source.Chunk(text, o.opts.ChunkSize)); err != nil {
			return nil, err
		}
	}
	return r.admitted, nil
}

// processChunks extracts chunks in windows of ChunkConcurrency and admits
// their records in chunk order, stopping once the target is reached.
func (o *Orchestrator) processChunks(ctx context.Context, r *run, pageURL string, chunks []string) error {
	width := o.opts.ChunkConcurrency
	for start := 0; start < len(chunks) && !r.full(); start += width {
		window := chunks[start:min(start+width, len(chunks))]
		extracted := make([][]model.Record, len(window))

		g, gctx := errgroup.WithContext(ctx)
		for i, chunk := range window {
			g.Go(func() error {
				recs, err := o.extractor.ExtractFromChunk(gctx, chunk, r.req)
				if err != nil {
					if errors.Is(err, model.ErrModelUnavailable) {
						return err
					}
					r.log.Warn("pipeline: chunk extraction failed",
						zap.String("url", pageURL),
						zap.Int("chunk", start+i),
						zap.Error(err),
					)
					return nil
				}
				extracted[i] = recs
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "pipeline: extract chunk")
		}
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "pipeline: canceled")
		}

		for i, recs := range extracted {
			r.enter(StateProcessingChunk)
			r.stats.Chunks++
			added := o.admit(r, recs)
			r.log.Debug("pipeline: chunk processed",
				zap.String("url", pageURL),
				zap.Int("chunk", start+i),
				zap.Int("candidates", len(recs)),
				zap.Int("admitted", added),
			)
			if r.full() {
				return nil
			}
		}
	}
	return nil
}

// admit runs the validity filter and quota increment for each candidate.
func (o *Orchestrator) admit(r *run, recs []model.Record) int {
	added := 0
	for _, rec := range recs {
		r.stats.Candidates++
		if filter.Admit(rec, r.req.Fields, r.tracker) {
			r.admitted = append(r.admitted, rec)
			r.stats.Admitted++
			added++
		} else {
			r.stats.Rejected++
		}
	}
	return added
}

func (o *Orchestrator) startRun(ctx context.Context, r *run) string {
	if o.runs == nil {
		return ""
	}
	fields := make([]string, len(r.req.Fields))
	for i, f := range r.req.Fields {
		fields[i] = f.Name
	}
	rec, err := o.runs.CreateRun(ctx, r.req.Query, fields, r.req.TargetRecordCount)
	if err != nil {
		r.log.Warn("pipeline: failed to create run log entry", zap.Error(err))
		return ""
	}
	return rec.ID
}

func (o *Orchestrator) finishRun(ctx context.Context, r *run, runID string, status model.RunStatus, runErr error) {
	if o.runs == nil || runID == "" {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	// Finish the entry even when the request was canceled.
	if err := o.runs.FinishRun(context.WithoutCancel(ctx), runID, status, r.stats, msg); err != nil {
		r.log.Warn("pipeline: failed to finish run log entry", zap.Error(err))
	}
}
