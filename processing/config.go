package processing

import (
	"fmt"
	"time"
)

const (
	// DefaultChunkSize is the default maximum chunk length in characters
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the default number of characters shared by neighbouring chunks
	DefaultChunkOverlap = 100

	// DefaultBatchSize is the default number of sources fetched per reprocessing page
	DefaultBatchSize = 100
)

// Config holds the tunables for processing and reprocessing.
type Config struct {
	// ChunkSize is the maximum chunk length in characters
	ChunkSize int

	// ChunkOverlap is how many characters neighbouring chunks share
	ChunkOverlap int

	// MaxRetries is the maximum number of attempts for embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// BatchSize is the number of sources fetched per page when reprocessing
	BatchSize int

	// ReportInterval is how often to report reprocessing progress (number of sources)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:      DefaultChunkSize,
		ChunkOverlap:   DefaultChunkOverlap,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		BatchSize:      DefaultBatchSize,
		ReportInterval: 10,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.ChunkSize < 1:
		return fmt.Errorf("%w: ChunkSize must be at least 1", ErrInvalidConfig)
	case c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize:
		return fmt.Errorf("%w: ChunkOverlap must be in [0, ChunkSize)", ErrInvalidConfig)
	case c.MaxRetries < 1:
		return fmt.Errorf("%w: MaxRetries must be at least 1", ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: RetryDelay must not be negative", ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: BatchSize must be at least 1", ErrInvalidConfig)
	case c.ReportInterval < 1:
		return fmt.Errorf("%w: ReportInterval must be at least 1", ErrInvalidConfig)
	}
	return nil
}
