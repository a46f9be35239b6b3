// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lorekeep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/lorekeep/ai"
	"github.com/poiesic/lorekeep/ai/openai"
	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/crawl"
	"github.com/poiesic/lorekeep/extract"
	"github.com/poiesic/lorekeep/ingestion"
	"github.com/poiesic/lorekeep/normalize"
	"github.com/poiesic/lorekeep/processing"
	"github.com/poiesic/lorekeep/retry"
	"github.com/poiesic/lorekeep/storage"
	"github.com/poiesic/lorekeep/storage/badger"
)

// ErrNotTextSource is returned when editing the text of a URL or file source.
var ErrNotTextSource = errors.New("only text sources can be edited")

// AddResult is the outcome of adding a source. A source that was stored but
// failed processing has ProcessingError set and status failed.
type AddResult struct {
	Source          *core.KnowledgeSource
	Skipped         []*core.IngestError
	Processing      *processing.Result
	ProcessingError string
	Queued          bool // Processing runs in the background
}

// Database ties ingestion, storage and processing together.
type Database struct {
	repos       *badger.Repositories
	provider    ai.AIProvider
	pipeline    *ingestion.Pipeline
	processor   *processing.Processor
	procConfig  *processing.Config
	processPool *ants.Pool
	pending     sync.WaitGroup
	logger      *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig         *ai.Config
	provider         ai.AIProvider
	crawlConfig      *crawl.Config
	fetcher          ingestion.PageFetcher
	processingConfig *processing.Config
	maxFileSize      int64
	poolSize         int
	backgroundPool   int
	fetchAttempts    int
	fetchRetryDelay  time.Duration
	inMemory         bool
	logger           *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithAIProvider uses provider instead of building one from the AI config.
// The Database closes it on Close.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithCrawlConfig sets the crawl service configuration.
func WithCrawlConfig(cfg *crawl.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.crawlConfig = cfg
	}
}

// WithPageFetcher uses fetcher instead of a crawl client.
func WithPageFetcher(fetcher ingestion.PageFetcher) DatabaseOption {
	return func(o *databaseOptions) {
		o.fetcher = fetcher
	}
}

// WithProcessingConfig sets chunking, retry and reprocessing tunables.
func WithProcessingConfig(cfg *processing.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.processingConfig = cfg
	}
}

// WithMaxFileSize sets the per-file size limit for uploads.
func WithMaxFileSize(size int64) DatabaseOption {
	return func(o *databaseOptions) {
		o.maxFileSize = size
	}
}

// WithPoolSize sets the number of files extracted concurrently.
func WithPoolSize(size int) DatabaseOption {
	return func(o *databaseOptions) {
		o.poolSize = size
	}
}

// WithBackgroundProcessing makes AddSource return once the source is stored
// and process it on a pool of size workers. Close waits for queued work.
func WithBackgroundProcessing(size int) DatabaseOption {
	return func(o *databaseOptions) {
		o.backgroundPool = size
	}
}

// WithFetchRetries sets how often a page fetch is attempted when it times
// out or the crawl service fails with a 5xx status.
func WithFetchRetries(attempts int, baseDelay time.Duration) DatabaseOption {
	return func(o *databaseOptions) {
		o.fetchAttempts = attempts
		o.fetchRetryDelay = baseDelay
	}
}

// WithInMemory keeps all data in memory; filePath is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the database at filePath and wires every component.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig:         ai.DefaultConfig(),
		crawlConfig:      crawl.DefaultConfig(),
		processingConfig: processing.DefaultConfig(),
		maxFileSize:      extract.DefaultMaxSize,
		fetchAttempts:    3,
		fetchRetryDelay:  time.Second,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	fetcher := options.fetcher
	if fetcher == nil {
		client, err := crawl.NewClient(options.crawlConfig, crawl.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if !client.HasCredential() {
			logger.Warn("no crawl API key configured; URL sources will fail")
		}
		fetcher = client
	}
	if options.fetchAttempts > 1 {
		fetcher = &retryingFetcher{
			fetcher:   fetcher,
			attempts:  options.fetchAttempts,
			baseDelay: options.fetchRetryDelay,
		}
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory, badger.WithBackendLogger(logger))
	if err != nil {
		return nil, err
	}
	repos, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	db := &Database{
		repos:      repos,
		procConfig: options.processingConfig,
		logger:     logger.With("component", "database"),
	}

	if err := db.init(options, fetcher); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) init(options *databaseOptions, fetcher ingestion.PageFetcher) error {
	provider := options.provider
	if provider == nil {
		var err error
		if provider, err = openai.NewProvider(options.aiConfig); err != nil {
			return err
		}
	}
	db.provider = provider

	pipelineOpts := []ingestion.Option{ingestion.WithLogger(options.logger)}
	if options.poolSize > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(options.poolSize))
	}
	extractor := extract.New(extract.WithMaxSize(options.maxFileSize), extract.WithLogger(options.logger))
	pipeline, err := ingestion.NewPipeline(fetcher, extractor, pipelineOpts...)
	if err != nil {
		return err
	}
	db.pipeline = pipeline

	processor, err := processing.NewProcessor(db.repos.Sources, db.repos.Chunks, provider.Embedder(),
		processing.WithConfig(options.processingConfig),
		processing.WithLogger(options.logger),
	)
	if err != nil {
		return err
	}
	db.processor = processor

	if options.backgroundPool > 0 {
		pool, err := ants.NewPool(options.backgroundPool)
		if err != nil {
			return err
		}
		db.processPool = pool
	}
	return nil
}

// Close waits for background processing and releases all resources.
func (db *Database) Close() error {
	db.pending.Wait()
	if db.processPool != nil {
		db.processPool.Release()
	}
	if db.pipeline != nil {
		db.pipeline.Release()
	}
	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
		}
	}
	if err := db.repos.Close(); err != nil {
		db.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}

// SourceRepository exposes the underlying source store.
func (db *Database) SourceRepository() storage.SourceRepository {
	return db.repos.Sources
}

// ChunkRepository exposes the underlying chunk store.
func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.repos.Chunks
}

// AddSource ingests input for agentID, stores the resulting source and
// processes it. Nothing is stored when ingestion fails.
func (db *Database) AddSource(ctx context.Context, agentID uuid.UUID, input ingestion.Input) (*AddResult, error) {
	res, err := db.pipeline.Ingest(ctx, agentID, input)
	if err != nil {
		return nil, err
	}

	added, err := db.repos.Sources.AddSources(ctx, res.Source)
	if err != nil {
		return nil, fmt.Errorf("store source: %w", err)
	}
	source := added[0]
	db.logger.Info("source added", "source", source.Id, "agent", agentID, "kind", source.Kind, "words", source.WordCount, "skipped", len(res.Skipped))

	result := &AddResult{Source: source, Skipped: res.Skipped}
	if db.processPool != nil {
		if db.queue(source.Id) {
			result.Queued = true
			return result, nil
		}
	}
	db.process(ctx, result)
	return result, nil
}

// queue submits background processing and reports whether it was accepted.
func (db *Database) queue(id core.ID) bool {
	db.pending.Add(1)
	err := db.processPool.Submit(func() {
		defer db.pending.Done()
		if _, err := db.processor.Process(context.Background(), id); err != nil {
			db.logger.Warn("background processing failed", "source", id, "err", err)
		}
	})
	if err != nil {
		db.pending.Done()
		db.logger.Warn("processing pool rejected source, processing inline", "source", id, "err", err)
		return false
	}
	return true
}

func (db *Database) process(ctx context.Context, result *AddResult) {
	processed, err := db.processor.Process(ctx, result.Source.Id)
	if err != nil {
		result.ProcessingError = err.Error()
	} else {
		result.Processing = processed
	}
	if stored, getErr := db.repos.Sources.GetSource(ctx, result.Source.Id); getErr == nil {
		result.Source = stored
	}
}

// Sources lists the sources of agentID, or every source for uuid.Nil.
func (db *Database) Sources(ctx context.Context, agentID uuid.UUID) ([]*core.KnowledgeSource, error) {
	if agentID == uuid.Nil {
		return db.repos.Sources.ListSources(ctx, 0, 0)
	}
	return db.repos.Sources.GetSourcesByAgent(ctx, agentID)
}

// Source returns one source.
func (db *Database) Source(ctx context.Context, id core.ID) (*core.KnowledgeSource, error) {
	return db.repos.Sources.GetSource(ctx, id)
}

// Chunks returns the stored chunks of a source.
func (db *Database) Chunks(ctx context.Context, id core.ID) ([]*core.Chunk, error) {
	return db.repos.Chunks.GetChunks(ctx, id)
}

// DeleteSource removes a source and its chunks.
func (db *Database) DeleteSource(ctx context.Context, id core.ID) error {
	if err := db.repos.Sources.DeleteSources(ctx, id); err != nil {
		return err
	}
	db.logger.Info("source deleted", "source", id)
	return nil
}

// EditText replaces the content of a text source, renaming it when name is
// not blank, and reprocesses it.
func (db *Database) EditText(ctx context.Context, id core.ID, text, name string) (*AddResult, error) {
	source, err := db.repos.Sources.GetSource(ctx, id)
	if err != nil {
		return nil, err
	}
	if source.Kind != core.SourceKindText {
		return nil, fmt.Errorf("%w: source %d is a %s source", ErrNotTextSource, id, source.Kind)
	}

	if name = strings.TrimSpace(name); name != "" {
		source.Name = name
	}
	content := normalize.Normalize(text)
	if strings.TrimSpace(content) == "" {
		return nil, core.NewIngestError(core.KindEmptyContent, source.Name, "", nil)
	}
	source.Content = content
	source.WordCount = core.CountWords(content)

	updated, err := db.repos.Sources.UpdateSources(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("update source: %w", err)
	}

	result := &AddResult{Source: updated[0]}
	db.process(ctx, result)
	return result, nil
}

// Retrain reprocesses one source.
func (db *Database) Retrain(ctx context.Context, id core.ID) (*processing.Result, error) {
	return db.processor.Process(ctx, id)
}

// Reprocess reprocesses every source, writing progress to progress.
// An interrupted run resumes from its checkpoint on the next call.
func (db *Database) Reprocess(ctx context.Context, progress io.Writer) (*processing.Summary, error) {
	r, err := processing.NewReprocessor(db.repos.Sources, db.repos.Checkpoints, db.processor, db.procConfig, progress, db.logger)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

// retryingFetcher retries page fetches that time out or hit a 5xx status.
type retryingFetcher struct {
	fetcher   ingestion.PageFetcher
	attempts  int
	baseDelay time.Duration
}

func (f *retryingFetcher) FetchPage(ctx context.Context, url string) (*crawl.Page, error) {
	var page *crawl.Page
	err := retry.WithBackoffIf(ctx, func() error {
		var err error
		page, err = f.fetcher.FetchPage(ctx, url)
		return err
	}, f.attempts, f.baseDelay, retryableFetch)
	return page, err
}

// retryableFetch reports whether a fetch failure is transient.
func retryableFetch(err error) bool {
	var ingestErr *core.IngestError
	if !errors.As(err, &ingestErr) {
		return false
	}
	switch ingestErr.Kind {
	case core.KindTimeout:
		return true
	case core.KindUpstreamError:
		return ingestErr.Status >= 500
	}
	return false
}
