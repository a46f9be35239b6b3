package ingestion

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeep/core"
)

// DefaultTextName names pasted text submitted without a name.
const DefaultTextName = "Pasted text"

// Origin carries the metadata a source was produced from.
type Origin struct {
	AgentID     uuid.UUID
	URL         string   // Requested URL (SourceKindURL)
	Title       string   // Page title reported by the crawler, if any
	FileNames   []string // Successfully extracted files (SourceKindFile)
	Name        string   // Caller-supplied name (SourceKindText)
	Description string
}

// Assemble builds the knowledge source for already-normalized text.
// It fails with an EmptyContent error when text is blank, so it never returns
// a source without content. WordCount is always recomputed from the text.
func Assemble(kind core.SourceKind, text string, origin Origin) (*core.KnowledgeSource, error) {
	if err := core.ValidateSourceKind(kind); err != nil {
		return nil, err
	}

	name := displayName(kind, origin)
	if strings.TrimSpace(text) == "" {
		return nil, core.NewIngestError(core.KindEmptyContent, name, "", nil)
	}

	now := time.Now().UTC()
	source := &core.KnowledgeSource{
		AgentID:     origin.AgentID,
		Kind:        kind,
		Name:        name,
		Description: strings.TrimSpace(origin.Description),
		Content:     text,
		WordCount:   core.CountWords(text),
		Status:      core.SourceStatusCompleted,
		InsertedAt:  now,
		UpdatedAt:   now,
	}
	switch kind {
	case core.SourceKindURL:
		source.URL = strings.TrimSpace(origin.URL)
	case core.SourceKindFile:
		source.FileName = strings.Join(origin.FileNames, ", ")
	}
	return source, nil
}

// displayName picks the name shown for a source: the page title or URL, the
// joined file names, or the caller's name for pasted text.
func displayName(kind core.SourceKind, origin Origin) string {
	switch kind {
	case core.SourceKindURL:
		if title := strings.TrimSpace(origin.Title); title != "" {
			return title
		}
		return strings.TrimSpace(origin.URL)
	case core.SourceKindFile:
		return strings.Join(origin.FileNames, ", ")
	default:
		if name := strings.TrimSpace(origin.Name); name != "" {
			return name
		}
		return DefaultTextName
	}
}
