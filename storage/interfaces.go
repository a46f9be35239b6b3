package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeep/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

// SourceRepository provides operations for managing knowledge sources.
type SourceRepository interface {
	Repository

	// AddSources stores new knowledge sources.
	// Every source is validated first; nothing is written if any fails.
	// IDs are generated from a sequence and InsertedAt/UpdatedAt are set.
	AddSources(ctx context.Context, sources ...*core.KnowledgeSource) ([]*core.KnowledgeSource, error)

	// UpdateSources replaces existing knowledge sources.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any source doesn't exist.
	UpdateSources(ctx context.Context, sources ...*core.KnowledgeSource) ([]*core.KnowledgeSource, error)

	// DeleteSources removes knowledge sources and their chunks.
	// Returns ErrNotFound if any source doesn't exist.
	DeleteSources(ctx context.Context, ids ...core.ID) error

	// GetSource retrieves a single knowledge source by ID.
	// Returns ErrNotFound if the source doesn't exist.
	GetSource(ctx context.Context, id core.ID) (*core.KnowledgeSource, error)

	// GetSourcesByAgent retrieves every source owned by an agent, ordered by ID.
	GetSourcesByAgent(ctx context.Context, agentID uuid.UUID) ([]*core.KnowledgeSource, error)

	// ListSources returns up to limit sources with IDs greater than afterID,
	// ordered by ID. A limit <= 0 returns all remaining sources.
	ListSources(ctx context.Context, afterID core.ID, limit int) ([]*core.KnowledgeSource, error)

	// CountSources returns the number of stored sources.
	CountSources(ctx context.Context) (int, error)
}

// ChunkRepository provides operations for the chunks of a knowledge source.
type ChunkRepository interface {
	Repository

	// ReplaceChunks atomically replaces all chunks of a source.
	// Chunks are stored with SourceID set to sourceID.
	ReplaceChunks(ctx context.Context, sourceID core.ID, chunks ...*core.Chunk) error

	// GetChunks returns the chunks of a source ordered by Index.
	GetChunks(ctx context.Context, sourceID core.ID) ([]*core.Chunk, error)

	// DeleteChunks removes all chunks of a source. Deleting none is not an error.
	DeleteChunks(ctx context.Context, sourceID core.ID) error
}

// CheckpointRepository persists the resume points of bulk processors.
type CheckpointRepository interface {
	// SaveCheckpoint stores a checkpoint, setting UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint for a processor type,
	// or nil, nil if none exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)

	// ClearCheckpoint removes the checkpoint for a processor type.
	ClearCheckpoint(ctx context.Context, processorType string) error
}
