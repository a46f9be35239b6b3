package ingestion

import (
	"errors"
	"strings"

	"github.com/poiesic/lorekeep/core"
)

var (
	// ErrFetcherRequired is returned when a page fetcher is not provided.
	ErrFetcherRequired = errors.New("page fetcher required")

	// ErrExtractorRequired is returned when a file extractor is not provided.
	ErrExtractorRequired = errors.New("file extractor required")

	// ErrAgentRequired is returned when ingestion is attempted without an agent.
	ErrAgentRequired = errors.New("agent id required")

	// ErrInputRequired is returned when Ingest is called with a nil input.
	ErrInputRequired = errors.New("ingestion input required")

	// ErrUnsupportedInput is returned for an Input implementation the pipeline
	// does not know.
	ErrUnsupportedInput = errors.New("unsupported ingestion input")
)

// BatchError reports a file batch that produced no usable content.
// It unwraps to an EmptyContent *core.IngestError and carries the reason
// each file was skipped.
type BatchError struct {
	Err     *core.IngestError
	Skipped []*core.IngestError
}

func (e *BatchError) Error() string {
	if len(e.Skipped) == 0 {
		return e.Err.Error()
	}
	reasons := make([]string, len(e.Skipped))
	for i, s := range e.Skipped {
		reasons[i] = s.Error()
	}
	return e.Err.Error() + ": " + strings.Join(reasons, "; ")
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
