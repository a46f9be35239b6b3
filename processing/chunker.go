package processing

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker splits source content into pieces for embedding.
type Chunker interface {
	Split(text string) ([]string, error)
}

// TextChunker splits on paragraph, line and word boundaries using
// langchaingo's recursive character splitter.
type TextChunker struct {
	splitter textsplitter.RecursiveCharacter
}

var _ Chunker = (*TextChunker)(nil)

// NewTextChunker creates a chunker producing pieces of at most size
// characters, with overlap characters repeated between neighbours.
func NewTextChunker(size, overlap int) *TextChunker {
	return &TextChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

// Split returns the non-blank chunks of text in order.
func (c *TextChunker) Split(text string) ([]string, error) {
	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	chunks := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			chunks = append(chunks, part)
		}
	}
	return chunks, nil
}
