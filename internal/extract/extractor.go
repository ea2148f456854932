// Package extract turns page chunks into candidate records with a language
// model.
package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/dataset-cli/internal/model"
	"github.com/sells-group/dataset-cli/pkg/anthropic"
)

// Options tunes model calls.
type Options struct {
	Model             string
	MaxTokens         int64
	Timeout           time.Duration
	PromptChunkLimit  int
	RequestsPerSecond float64
}

// Extractor calls the model once per chunk. A nil client puts it in the
// unavailable state: every call fails with model.ErrModelUnavailable.
type Extractor struct {
	client  anthropic.Client
	opts    Options
	limiter *rate.Limiter
}

// New builds an Extractor. Pass a nil client when no credentials exist.
func New(client anthropic.Client, opts Options) *Extractor {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	e := &Extractor{client: client, opts: opts}
	if opts.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return e
}

// Available reports whether the model can be invoked at all.
func (e *Extractor) Available() bool {
	return e != nil && e.client != nil
}

// ExtractFromChunk asks the model for records in chunk. Failures local to
// the chunk are logged and yield no records with a nil error. The only
// errors returned are model.ErrModelUnavailable and context cancellation.
func (e *Extractor) ExtractFromChunk(ctx context.Context, chunk string, req *model.ExtractionRequest) ([]model.Record, error) {
	if !e.Available() {
		return nil, eris.Wrap(model.ErrModelUnavailable, "extract: no model client configured")
	}

	log := zap.L().With(zap.String("query", req.Query), zap.Int("chunk_len", len(chunk)))

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: wait for rate limiter")
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	temp := 0.0
	resp, err := e.client.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:       e.opts.Model,
		MaxTokens:   e.opts.MaxTokens,
		System:      SystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: BuildPrompt(req.Fields, chunk, req.Query, e.opts.PromptChunkLimit)}},
		Temperature: &temp,
	})
	if err != nil {
		if anthropic.IsAuthError(err) {
			return nil, eris.Wrapf(model.ErrModelUnavailable, "extract: model rejected credentials: %v", err)
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "extract: request canceled")
		}
		log.Warn("extract: model call failed", zap.Error(err))
		return nil, nil
	}
	resp.Usage.LogCost(e.opts.Model, "extract")

	records, err := ParseResponse(resp.Text(), req.Fields)
	if err != nil {
		log.Debug("extract: unparsable model output", zap.Error(err))
		return nil, nil
	}

	log.Debug("extract: chunk processed", zap.Int("records", len(records)))
	return records, nil
}
