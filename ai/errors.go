package ai

import "errors"

var (
	// ErrEmbeddingFailed wraps failures reported by the embedding service.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrEmbeddingCount indicates the service returned a different number of
	// vectors than texts sent.
	ErrEmbeddingCount = errors.New("embedding count mismatch")
)
