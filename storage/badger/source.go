package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/storage"
)

// SourceRepository implements storage.SourceRepository for BadgerDB.
type SourceRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(backend *Backend) (*SourceRepository, error) {
	idSeq, err := backend.GetSequence(sourceIDSeq)
	if err != nil {
		return nil, err
	}

	return &SourceRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *SourceRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *SourceRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSources adds one or more knowledge sources to storage.
func (r *SourceRepository) AddSources(ctx context.Context, sources ...*core.KnowledgeSource) ([]*core.KnowledgeSource, error) {
	for _, source := range sources {
		if err := core.ValidateKnowledgeSource(source); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrInvalidSource, err)
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, source := range sources {
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			source.Id = core.ID(nextID)

			source.InsertedAt = time.Now().UTC().Truncate(time.Microsecond)
			source.UpdatedAt = source.InsertedAt

			if err := tx.Set(makeSourceKey(source.Id), storage.MarshalKnowledgeSource(source)); err != nil {
				return err
			}
			if err := tx.Set(makeSourceAgentKey(source.AgentID, source.Id), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// UpdateSources updates existing knowledge sources.
func (r *SourceRepository) UpdateSources(ctx context.Context, sources ...*core.KnowledgeSource) ([]*core.KnowledgeSource, error) {
	for _, source := range sources {
		if err := core.ValidateKnowledgeSource(source); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrInvalidSource, err)
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, source := range sources {
			key := makeSourceKey(source.Id)
			old, err := readSource(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			source.InsertedAt = old.InsertedAt
			source.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

			if err := tx.Set(key, storage.MarshalKnowledgeSource(source)); err != nil {
				return err
			}

			if old.AgentID != source.AgentID {
				if err := tx.Delete(makeSourceAgentKey(old.AgentID, old.Id)); err != nil {
					return err
				}
				if err := tx.Set(makeSourceAgentKey(source.AgentID, source.Id), nil); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// DeleteSources removes knowledge sources, their index entries and chunks.
func (r *SourceRepository) DeleteSources(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeSourceKey(id)
			source, err := readSource(tx, key)
			if err != nil {
				return err
			}
			if source == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeSourceAgentKey(source.AgentID, id)); err != nil {
				return err
			}
			if _, err := deletePrefix(tx, makePartialChunkKey(id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetSource retrieves a single knowledge source by ID.
func (r *SourceRepository) GetSource(ctx context.Context, id core.ID) (*core.KnowledgeSource, error) {
	var result *core.KnowledgeSource
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSource(tx, makeSourceKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetSourcesByAgent retrieves every source owned by agentID, ordered by ID.
func (r *SourceRepository) GetSourcesByAgent(ctx context.Context, agentID uuid.UUID) ([]*core.KnowledgeSource, error) {
	var results []*core.KnowledgeSource
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, indexKey := range prefixKeys(tx, makePartialSourceAgentKey(agentID)) {
			source, err := readSource(tx, makeSourceKey(sourceIDFromKey(indexKey)))
			if err != nil {
				return err
			}
			if source != nil {
				results = append(results, source)
			}
		}
		return nil
	}, false)
	return results, err
}

// ListSources returns up to limit sources with IDs greater than afterID.
func (r *SourceRepository) ListSources(ctx context.Context, afterID core.ID, limit int) ([]*core.KnowledgeSource, error) {
	var results []*core.KnowledgeSource
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sourcePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeSourceKey(afterID)); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			item := iter.Item()
			if sourceIDFromKey(item.Key()) <= afterID {
				continue
			}

			var source *core.KnowledgeSource
			if err := item.Value(func(val []byte) error {
				var err error
				source, err = storage.UnmarshalKnowledgeSource(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, source)
		}
		return nil
	}, false)
	return results, err
}

// CountSources returns the number of stored sources.
func (r *SourceRepository) CountSources(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = len(prefixKeys(tx, []byte(sourcePrefix+":")))
		return nil
	}, false)
	return count, err
}

// readSource reads a source by key, returning nil if it doesn't exist.
func readSource(tx *badger.Txn, key []byte) (*core.KnowledgeSource, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var source *core.KnowledgeSource
	err = item.Value(func(val []byte) error {
		var err error
		source, err = storage.UnmarshalKnowledgeSource(val)
		return err
	})
	return source, err
}
