package ingestion

import (
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeep/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_DisplayName(t *testing.T) {
	agent := uuid.New()

	tests := []struct {
		name   string
		kind   core.SourceKind
		origin Origin
		want   string
	}{
		{"url with title", core.SourceKindURL, Origin{URL: "https://x.com", Title: "Pricing"}, "Pricing"},
		{"url without title", core.SourceKindURL, Origin{URL: "https://x.com"}, "https://x.com"},
		{"files", core.SourceKindFile, Origin{FileNames: []string{"a.txt", "b.docx"}}, "a.txt, b.docx"},
		{"named text", core.SourceKindText, Origin{Name: " FAQ "}, "FAQ"},
		{"unnamed text", core.SourceKindText, Origin{}, DefaultTextName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.origin.AgentID = agent
			source, err := Assemble(tt.kind, "some text", tt.origin)
			require.NoError(t, err)
			assert.Equal(t, tt.want, source.Name)
		})
	}
}

func TestAssemble_Fields(t *testing.T) {
	agent := uuid.New()

	source, err := Assemble(core.SourceKindURL, "Pricing\n\nPlans start at $10.", Origin{
		AgentID:     agent,
		URL:         "https://x.com/pricing",
		Title:       "Pricing",
		Description: "Plans",
	})
	require.NoError(t, err)

	assert.Equal(t, agent, source.AgentID)
	assert.Equal(t, core.SourceKindURL, source.Kind)
	assert.Equal(t, "https://x.com/pricing", source.URL)
	assert.Empty(t, source.FileName)
	assert.Equal(t, "Plans", source.Description)
	assert.Equal(t, 5, source.WordCount)
	assert.Equal(t, core.SourceStatusCompleted, source.Status)
	assert.False(t, source.InsertedAt.IsZero())
	require.NoError(t, core.ValidateKnowledgeSource(source))

	files, err := Assemble(core.SourceKindFile, "text", Origin{AgentID: agent, FileNames: []string{"a.txt", "c.txt"}})
	require.NoError(t, err)
	assert.Equal(t, "a.txt, c.txt", files.FileName)
	assert.Empty(t, files.URL)
}

func TestAssemble_EmptyContent(t *testing.T) {
	for _, text := range []string{"", " ", "\n\t\n"} {
		source, err := Assemble(core.SourceKindText, text, Origin{AgentID: uuid.New()})
		assert.Nil(t, source)
		assert.ErrorIs(t, err, core.ErrEmptyContent)
	}
}

func TestAssemble_WordCount(t *testing.T) {
	tests := []string{
		"one",
		"one two  three",
		"tabs\tand\nnewlines\r\nmixed",
		"  leading and trailing  ",
		"unicode space é",
	}
	for _, text := range tests {
		source, err := Assemble(core.SourceKindText, text, Origin{AgentID: uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, core.CountWords(text), source.WordCount, "text %q", text)
	}
}

func TestAssemble_InvalidKind(t *testing.T) {
	_, err := Assemble(core.SourceKind(99), "text", Origin{AgentID: uuid.New()})
	assert.ErrorIs(t, err, core.ErrInvalidSourceKind)
}
