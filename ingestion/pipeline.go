package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/crawl"
	"github.com/poiesic/lorekeep/normalize"
)

// PageFetcher retrieves normalized web page content.
// *crawl.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*crawl.Page, error)
}

// Pipeline turns raw inputs into assembled knowledge sources.
// It never persists or processes what it produces.
type Pipeline struct {
	fetcher    PageFetcher
	aggregator *Aggregator
	logger     *slog.Logger
}

// Result is a successful ingestion. Skipped lists the files of a partially
// successful batch that were left out, with their reasons.
type Result struct {
	Source  *core.KnowledgeSource
	Skipped []*core.IngestError
}

// Option configures a Pipeline.
type Option func(*pipelineOptions) error

type pipelineOptions struct {
	poolSize int
	logger   *slog.Logger
}

// WithPoolSize sets the number of files extracted concurrently.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *pipelineOptions) error {
		if size < 1 {
			size = 1
		}
		o.poolSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *pipelineOptions) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(fetcher PageFetcher, extractor FileExtractor, opts ...Option) (*Pipeline, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	o := &pipelineOptions{
		poolSize: max(runtime.NumCPU(), 1),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	aggregator, err := NewAggregator(extractor,
		WithAggregatorPoolSize(o.poolSize),
		WithAggregatorLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		fetcher:    fetcher,
		aggregator: aggregator,
		logger:     o.logger.With("component", "ingestion"),
	}, nil
}

// Ingest dispatches input to its strategy, validates the resulting text and
// assembles the knowledge source for agentID.
//
// URL failures are returned as the fetcher reports them. A file batch in
// which no file yields text fails with a *BatchError wrapping an EmptyContent
// error; a partially failed batch succeeds and lists the skipped files.
// Pasted text is never extracted, only normalized, so it can fail only as
// empty content.
func (p *Pipeline) Ingest(ctx context.Context, agentID uuid.UUID, input Input) (*Result, error) {
	if agentID == uuid.Nil {
		return nil, ErrAgentRequired
	}
	if input == nil {
		return nil, ErrInputRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		text    string
		skipped []*core.IngestError
		origin  = Origin{AgentID: agentID}
	)

	switch in := input.(type) {
	case URLInput:
		page, err := p.fetcher.FetchPage(ctx, in.URL)
		if err != nil {
			p.logger.Error("url ingestion failed", "url", in.URL, "err", err)
			return nil, err
		}
		text = page.Content
		origin.URL = in.URL
		origin.Title = page.Title
		origin.Description = in.Description
		if origin.Description == "" {
			origin.Description = page.Description
		}

	case FilesInput:
		if len(in.Files) == 0 {
			return nil, core.NewIngestError(core.KindEmptyContent, "", "no files submitted", nil)
		}
		outcome := p.aggregator.RunBatch(ctx, in.Files)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		skipped = outcome.Failed
		text = outcome.Text()
		if outcome.HardFailure() || text == "" {
			p.logger.Error("file batch produced no content", "files", len(in.Files), "failed", len(outcome.Failed))
			return nil, &BatchError{
				Err:     core.NewIngestError(core.KindEmptyContent, "", fmt.Sprintf("none of %d files could be used", len(in.Files)), nil),
				Skipped: outcome.Failed,
			}
		}
		if outcome.Partial() {
			p.logger.Warn("file batch partially succeeded", "files", len(in.Files), "skipped", len(outcome.Failed))
		}
		origin.FileNames = outcome.FileNames()
		origin.Description = in.Description

	case TextInput:
		text = normalize.Normalize(in.Text)
		origin.Name = in.Name
		origin.Description = in.Description

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedInput, input)
	}

	source, err := Assemble(input.Kind(), text, origin)
	if err != nil {
		p.logger.Error("assembly failed", "kind", input.Kind(), "err", err)
		return nil, err
	}

	p.logger.Info("ingested source",
		"kind", source.Kind, "name", source.Name, "words", source.WordCount, "skipped", len(skipped))
	return &Result{Source: source, Skipped: skipped}, nil
}

// Release releases the extraction worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.aggregator != nil {
		p.aggregator.Release()
	}
}
