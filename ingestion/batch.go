package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/extract"
	"github.com/poiesic/lorekeep/normalize"
)

// Extracted is the text of one successfully extracted file.
type Extracted struct {
	Index int // Position in the submitted batch
	Name  string
	Text  string // Normalized on its own, never blank
}

// BatchOutcome partitions the results of one batch.
// len(Succeeded)+len(Failed) always equals the number of submitted files,
// and both slices keep submission order.
type BatchOutcome struct {
	Succeeded []Extracted
	Failed    []*core.IngestError
}

// HardFailure reports whether no file produced text.
func (b *BatchOutcome) HardFailure() bool {
	return len(b.Succeeded) == 0
}

// Partial reports whether some, but not all, files failed.
func (b *BatchOutcome) Partial() bool {
	return len(b.Succeeded) > 0 && len(b.Failed) > 0
}

// Text joins the successful extractions in submission order, separated by a
// blank line. Blank extractions are skipped.
func (b *BatchOutcome) Text() string {
	parts := make([]string, 0, len(b.Succeeded))
	for _, s := range b.Succeeded {
		if strings.TrimSpace(s.Text) != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// FileNames returns the names of the successfully extracted files.
func (b *BatchOutcome) FileNames() []string {
	names := make([]string, len(b.Succeeded))
	for i, s := range b.Succeeded {
		names[i] = s.Name
	}
	return names
}

// FileExtractor is the per-file extraction the aggregator fans out.
// *extract.Extractor implements it.
type FileExtractor interface {
	Extract(ctx context.Context, f extract.File) (string, error)
}

// Aggregator extracts batches of files concurrently on a bounded worker pool.
type Aggregator struct {
	extractor FileExtractor
	pool      *ants.Pool
	logger    *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator) error

// WithAggregatorPoolSize sets the number of concurrent extractions.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithAggregatorPoolSize(size int) AggregatorOption {
	return func(a *Aggregator) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if a.pool != nil {
			a.pool.Release()
		}
		a.pool = pool
		return nil
	}
}

// WithAggregatorLogger sets a custom logger.
// Default is slog.Default().
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAggregator creates an Aggregator over the given extractor.
func NewAggregator(ex FileExtractor, opts ...AggregatorOption) (*Aggregator, error) {
	if ex == nil {
		return nil, ErrExtractorRequired
	}

	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		extractor: ex,
		pool:      pool,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			a.Release()
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "batch")
	return a, nil
}

// slot holds the result of one attempt. Each worker writes only its own slot.
type slot struct {
	text string
	err  error
}

// RunBatch extracts and normalizes every file and partitions the results.
// One file's failure never affects another's. A file whose normalized text is
// empty fails with EmptyContent. If ctx is cancelled, files not yet extracted
// fail with the context error attached to an ExtractionError.
func (a *Aggregator) RunBatch(ctx context.Context, files []extract.File) *BatchOutcome {
	slots := make([]slot, len(files))

	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			slots[i] = a.attempt(ctx, files[i])
		}
		if err := a.pool.Submit(task); err != nil {
			// The pool is closed or overloaded; run inline so the slot is still filled.
			a.logger.Debug("pool submit failed, extracting inline", "file", files[i].Name, "err", err)
			task()
		}
	}
	wg.Wait()

	outcome := &BatchOutcome{}
	for i, s := range slots {
		if s.err != nil {
			outcome.Failed = append(outcome.Failed, asIngestError(files[i].Name, s.err))
			continue
		}
		text := normalize.Normalize(s.text)
		if text == "" {
			outcome.Failed = append(outcome.Failed,
				core.NewIngestError(core.KindEmptyContent, files[i].Name, "file contains no text", nil))
			continue
		}
		outcome.Succeeded = append(outcome.Succeeded, Extracted{Index: i, Name: files[i].Name, Text: text})
	}

	for _, f := range outcome.Failed {
		a.logger.Warn("file skipped", "file", f.Source, "kind", f.Kind, "err", f)
	}
	a.logger.Debug("batch complete", "files", len(files), "succeeded", len(outcome.Succeeded), "failed", len(outcome.Failed))
	return outcome
}

func (a *Aggregator) attempt(ctx context.Context, f extract.File) (s slot) {
	defer func() {
		if r := recover(); r != nil {
			s = slot{err: core.NewIngestError(core.KindExtractionError, f.Name, fmt.Sprintf("extractor panicked: %v", r), nil)}
		}
	}()
	if err := ctx.Err(); err != nil {
		return slot{err: err}
	}
	text, err := a.extractor.Extract(ctx, f)
	return slot{text: text, err: err}
}

// Release stops the worker pool. The Aggregator must not be used afterwards.
func (a *Aggregator) Release() {
	if a.pool != nil {
		a.pool.Release()
	}
}

// asIngestError keeps typed failures and classifies anything else as an
// extraction error for the named file.
func asIngestError(name string, err error) *core.IngestError {
	var ie *core.IngestError
	if errors.As(err, &ie) {
		return ie
	}
	return core.NewIngestError(core.KindExtractionError, name, "", err)
}
