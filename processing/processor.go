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

package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/lorekeep/ai"
	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/retry"
	"github.com/poiesic/lorekeep/storage"
)

// Result reports the outcome of processing one source.
type Result struct {
	ChunksCreated int `json:"chunksCreated"`
}

// Processor chunks and embeds a single knowledge source.
type Processor struct {
	sources  storage.SourceRepository
	chunks   storage.ChunkRepository
	embedder ai.Embedder
	chunker  Chunker
	config   *Config
	logger   *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor) error

// WithConfig replaces the default Config.
func WithConfig(cfg *Config) Option {
	return func(p *Processor) error {
		if cfg == nil {
			return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		p.config = cfg
		return nil
	}
}

// WithChunker replaces the default text splitter.
func WithChunker(chunker Chunker) Option {
	return func(p *Processor) error {
		p.chunker = chunker
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) error {
		p.logger = logger
		return nil
	}
}

// NewProcessor creates a Processor over the given repositories and embedder.
func NewProcessor(sources storage.SourceRepository, chunks storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Processor, error) {
	if sources == nil {
		return nil, ErrSourceRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Processor{
		sources:  sources,
		chunks:   chunks,
		embedder: embedder,
		config:   DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.chunker == nil {
		p.chunker = NewTextChunker(p.config.ChunkSize, p.config.ChunkOverlap)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "processor")
	return p, nil
}

// Process chunks and embeds the source, replaces its stored chunks and
// records the chunk count. On failure the source is marked failed with the
// error message and the previous chunks are left in place.
func (p *Processor) Process(ctx context.Context, sourceID core.ID) (*Result, error) {
	source, err := p.sources.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	logger := p.logger.With("source", sourceID)
	logger.Info("processing source", "kind", source.Kind, "words", source.WordCount)

	chunks, err := p.buildChunks(ctx, source)
	if err != nil {
		return nil, p.markFailed(ctx, logger, source, err)
	}

	if err := p.chunks.ReplaceChunks(ctx, source.Id, chunks...); err != nil {
		return nil, p.markFailed(ctx, logger, source, fmt.Errorf("store chunks: %w", err))
	}

	source.ChunkCount = len(chunks)
	source.Status = core.SourceStatusCompleted
	source.ProcessingError = ""
	if _, err := p.sources.UpdateSources(ctx, source); err != nil {
		return nil, fmt.Errorf("update source %d: %w", source.Id, err)
	}

	logger.Info("source processed", "chunks", len(chunks))
	return &Result{ChunksCreated: len(chunks)}, nil
}

func (p *Processor) buildChunks(ctx context.Context, source *core.KnowledgeSource) ([]*core.Chunk, error) {
	texts, err := p.chunker.Split(source.Content)
	if err != nil {
		return nil, fmt.Errorf("split content: %w", err)
	}
	if len(texts) == 0 {
		return nil, ErrNoChunks
	}

	var vectors [][]float32
	err = retry.WithBackoffIf(ctx, func() error {
		var err error
		vectors, err = p.embedder.EmbedTexts(ctx, texts)
		return err
	}, p.config.MaxRetries, p.config.RetryDelay, retryableEmbedding)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings after %d attempts: %w", p.config.MaxRetries, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(texts), len(vectors))
	}

	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			Id:       core.ChunkID(source.Id, i, text),
			SourceID: source.Id,
			Index:    i,
			Text:     text,
			Vector:   NormalizeVector(vectors[i]),
		}
	}
	return chunks, nil
}

// markFailed records cause on the source and returns the wrapped error.
// Cancellation is returned as is and leaves the source untouched.
func (p *Processor) markFailed(ctx context.Context, logger *slog.Logger, source *core.KnowledgeSource, cause error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	logger.Error("processing failed", "err", cause)
	source.Status = core.SourceStatusFailed
	source.ProcessingError = cause.Error()
	if _, err := p.sources.UpdateSources(ctx, source); err != nil {
		logger.Error("failed to record processing error", "err", err)
	}
	return fmt.Errorf("%w: source %d: %w", ErrProcessingFailed, source.Id, cause)
}

func retryableEmbedding(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
