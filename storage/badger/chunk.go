package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend owns all resources.
func (r *ChunkRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// ReplaceChunks atomically replaces all chunks of sourceID.
// Chunks with a zero ID get the deterministic core.ChunkID.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, sourceID core.ID, chunks ...*core.Chunk) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	for _, chunk := range chunks {
		if chunk == nil {
			return fmt.Errorf("%w: chunk is nil", core.ErrInvalidChunk)
		}
		chunk.SourceID = sourceID
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
		if chunk.Id == 0 {
			chunk.Id = core.ChunkID(sourceID, chunk.Index, chunk.Text)
		}
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = now
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := deletePrefix(tx, makePartialChunkKey(sourceID)); err != nil {
			return err
		}
		for _, chunk := range chunks {
			if err := tx.Set(makeChunkKey(sourceID, chunk.Index), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunks returns the chunks of sourceID ordered by Index.
func (r *ChunkRepository) GetChunks(ctx context.Context, sourceID core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkKey(sourceID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			}); err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	}, false)
	return chunks, err
}

// DeleteChunks removes all chunks of sourceID.
func (r *ChunkRepository) DeleteChunks(ctx context.Context, sourceID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := deletePrefix(tx, makePartialChunkKey(sourceID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
