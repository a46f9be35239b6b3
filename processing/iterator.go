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

	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/storage"
)

// SourceIterator pages through stored sources in ID order.
type SourceIterator struct {
	repo      storage.SourceRepository
	batchSize int
}

// NewSourceIterator creates a new source iterator.
// batchSize: number of sources to fetch per page (DefaultBatchSize if <= 0)
func NewSourceIterator(repo storage.SourceRepository, batchSize int) *SourceIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &SourceIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with each page of sources whose IDs are greater than
// afterID. Iteration stops on the first error from fn or when all sources
// are visited. Context cancellation is checked between pages.
func (it *SourceIterator) ForEach(ctx context.Context, afterID core.ID, fn func([]*core.KnowledgeSource) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := it.repo.ListSources(ctx, afterID, it.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		if err := fn(page); err != nil {
			return err
		}

		if len(page) < it.batchSize {
			return nil
		}
		afterID = page[len(page)-1].Id
	}
}
