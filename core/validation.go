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


package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateKnowledgeSource validates a KnowledgeSource according to domain rules.
//
// Validation rules:
//   - AgentID must not be the nil UUID
//   - Kind and Status must be valid
//   - Content must not be empty or whitespace-only
//   - WordCount must equal CountWords(Content)
//
// NOT validated:
//   - ChunkCount (populated by processors)
//   - ID (0 is valid from database sequences)
func ValidateKnowledgeSource(source *KnowledgeSource) error {
	if source == nil {
		return fmt.Errorf("%w: source is nil", ErrInvalidKnowledgeSource)
	}

	if source.AgentID == uuid.Nil {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeSource, ErrMissingAgent)
	}

	if err := ValidateSourceKind(source.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeSource, err)
	}

	if err := ValidateSourceStatus(source.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeSource, err)
	}

	if strings.TrimSpace(source.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeSource, ErrEmptyContent)
	}

	if source.WordCount != CountWords(source.Content) {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeSource, ErrWordCountMismatch)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.SourceID == 0 {
		return fmt.Errorf("%w: source id is zero", ErrInvalidChunk)
	}
	if chunk.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidChunk, chunk.Index)
	}
	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	return nil
}

// ValidateSourceKind validates that a SourceKind has a valid value.
func ValidateSourceKind(kind SourceKind) error {
	switch kind {
	case SourceKindURL, SourceKindFile, SourceKindText:
		return nil
	}
	return fmt.Errorf("%w: value %d", ErrInvalidSourceKind, kind)
}

// ValidateSourceStatus validates that a SourceStatus has a valid value.
func ValidateSourceStatus(status SourceStatus) error {
	switch status {
	case SourceStatusPending, SourceStatusCompleted, SourceStatusFailed:
		return nil
	}
	return fmt.Errorf("%w: value %d", ErrInvalidSourceStatus, status)
}
