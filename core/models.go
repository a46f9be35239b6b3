package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceKind identifies where the content of a knowledge source came from.
type SourceKind int

const (
	// SourceKindURL is a crawled web page.
	SourceKindURL SourceKind = iota + 1
	// SourceKindFile is one or more uploaded documents.
	SourceKindFile
	// SourceKindText is pasted text.
	SourceKindText
)

// String returns the persisted type tag ("url", "file" or "text").
func (k SourceKind) String() string {
	switch k {
	case SourceKindURL:
		return "url"
	case SourceKindFile:
		return "file"
	case SourceKindText:
		return "text"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// ParseSourceKind is the inverse of SourceKind.String.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "url":
		return SourceKindURL, nil
	case "file":
		return SourceKindFile, nil
	case "text":
		return SourceKindText, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSourceKind, s)
}

// SourceStatus is the lifecycle state of a knowledge source.
type SourceStatus int

const (
	SourceStatusPending SourceStatus = iota + 1
	SourceStatusCompleted
	SourceStatusFailed
)

func (s SourceStatus) String() string {
	switch s {
	case SourceStatusPending:
		return "pending"
	case SourceStatusCompleted:
		return "completed"
	case SourceStatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("SourceStatus(%d)", int(s))
	}
}

// KnowledgeSource is a unit of ingested content attached to an agent.
// Content always holds normalized text and WordCount is derived from it.
type KnowledgeSource struct {
	Id              ID
	AgentID         uuid.UUID
	Kind            SourceKind
	Name            string    // Display name
	URL             string    // Origin URL (SourceKindURL only)
	FileName        string    // Origin file names (SourceKindFile only)
	Description     string    // Page description reported by the crawler, if any
	Content         string    // Normalized text
	WordCount       int       // Whitespace-delimited token count of Content
	Status          SourceStatus
	ChunkCount      int       // Chunks created by the last processing run
	ProcessingError string    // Error from the last processing run, if it failed
	InsertedAt      time.Time // When the source was inserted into the database
	UpdatedAt       time.Time // When the source was last updated
}

// SourceRecord is the record shape handed to persistence collaborators.
type SourceRecord struct {
	AgentID     string `json:"agent_id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Content     string `json:"content"`
	TokensCount int    `json:"tokens_count"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	FileName    string `json:"file_name,omitempty"`
}

// Record returns the persistence view of the source.
func (ks *KnowledgeSource) Record() SourceRecord {
	return SourceRecord{
		AgentID:     ks.AgentID.String(),
		Type:        ks.Kind.String(),
		Status:      ks.Status.String(),
		Content:     ks.Content,
		TokensCount: ks.WordCount,
		Name:        ks.Name,
		URL:         ks.URL,
		FileName:    ks.FileName,
	}
}

// CountWords counts the non-empty whitespace-delimited tokens in text.
// It approximates, and is not, a language-model token count.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Chunk is a piece of a knowledge source prepared for retrieval.
type Chunk struct {
	Id         ID
	SourceID   ID
	Index      int
	Text       string
	Vector     []float32 // Embedding vector (populated by processors)
	InsertedAt time.Time
}

// ChunkID returns the deterministic ID for the chunk at index within a source.
func ChunkID(sourceID ID, index int, text string) ID {
	return IDFromContent(fmt.Sprintf("%d:%d:%s", sourceID, index, text))
}

// Checkpoint records how far a bulk processor has progressed.
type Checkpoint struct {
	ProcessorType string
	LastID        ID
	UpdatedAt     time.Time
}
