package processing

import "errors"

var (
	// ErrSourceRepositoryRequired is returned when no source repository is given
	ErrSourceRepositoryRequired = errors.New("source repository required")

	// ErrChunkRepositoryRequired is returned when no chunk repository is given
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrCheckpointRepositoryRequired is returned when no checkpoint repository is given
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrEmbedderRequired is returned when no embedder is given
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrProcessorRequired is returned when no processor is given
	ErrProcessorRequired = errors.New("processor required")

	// ErrInvalidConfig is returned when a Config fails validation
	ErrInvalidConfig = errors.New("invalid processing config")

	// ErrNoChunks is returned when splitting produced nothing to embed
	ErrNoChunks = errors.New("content produced no chunks")

	// ErrEmbeddingMismatch is returned when the embedder returns the wrong number of vectors
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrProcessingFailed wraps every failure recorded on a source
	ErrProcessingFailed = errors.New("processing failed")
)
