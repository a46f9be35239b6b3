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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/storage"
)

// ReprocessCheckpoint is the checkpoint name used by Reprocessor.
const ReprocessCheckpoint = "reprocess"

// Summary reports the outcome of a reprocessing run.
type Summary struct {
	Processed     int
	Failed        int
	ChunksCreated int
	ResumedAfter  core.ID
}

// SourceProcessor processes one source. *Processor implements it.
type SourceProcessor interface {
	Process(ctx context.Context, sourceID core.ID) (*Result, error)
}

// Reprocessor re-runs processing for every stored source.
type Reprocessor struct {
	sources     storage.SourceRepository
	checkpoints storage.CheckpointRepository
	processor   SourceProcessor
	config      *Config
	progress    io.Writer
	logger      *slog.Logger
}

// NewReprocessor creates a new reprocessor.
// progress: where to write progress output (typically os.Stderr, io.Discard to silence)
func NewReprocessor(sources storage.SourceRepository, checkpoints storage.CheckpointRepository, processor SourceProcessor, config *Config, progress io.Writer, logger *slog.Logger) (*Reprocessor, error) {
	if sources == nil {
		return nil, ErrSourceRepositoryRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if processor == nil {
		return nil, ErrProcessorRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reprocessor{
		sources:     sources,
		checkpoints: checkpoints,
		processor:   processor,
		config:      config,
		progress:    progress,
		logger:      logger.With("component", "reprocessor"),
	}, nil
}

// Run processes every source, resuming after the saved checkpoint if a
// previous run was interrupted. Per-source failures are counted and do not
// stop the run. The checkpoint is saved after each page and cleared when the
// run completes.
func (r *Reprocessor) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, ReprocessCheckpoint)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if checkpoint != nil {
		summary.ResumedAfter = checkpoint.LastID
		r.logger.Info("resuming reprocessing", "after", checkpoint.LastID)
	}

	total, err := r.sources.CountSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sources: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No sources found in database (0 sources)\n")
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Starting reprocessing of %d sources (batch size: %d)\n", total, r.config.BatchSize)
	progress := NewProgress(r.progress, total, r.config.ReportInterval)
	progress.Start()

	iterator := NewSourceIterator(r.sources, r.config.BatchSize)
	err = iterator.ForEach(ctx, summary.ResumedAfter, func(page []*core.KnowledgeSource) error {
		for _, source := range page {
			result, err := r.processor.Process(ctx, source.Id)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				summary.Failed++
				r.logger.Warn("source failed during reprocessing", "source", source.Id, "err", err)
			} else {
				summary.Processed++
				summary.ChunksCreated += result.ChunksCreated
			}
			progress.Record(err != nil)
		}

		return r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
			ProcessorType: ReprocessCheckpoint,
			LastID:        page[len(page)-1].Id,
		})
	})
	if err != nil {
		return summary, err
	}

	if err := r.checkpoints.ClearCheckpoint(ctx, ReprocessCheckpoint); err != nil {
		return summary, fmt.Errorf("clear checkpoint: %w", err)
	}

	progress.Finish()
	elapsed := progress.Elapsed()
	fmt.Fprintf(r.progress, "Reprocessing complete. %d processed, %d failed, %d chunks in %v\n",
		summary.Processed, summary.Failed, summary.ChunksCreated, elapsed.Round(time.Millisecond))

	return summary, nil
}
