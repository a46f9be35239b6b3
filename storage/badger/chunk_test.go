package badger

import (
	"context"
	"testing"

	"github.com/poiesic/lorekeep/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceChunks(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	added, err := repos.Sources.AddSources(ctx, newTextSource("alpha beta gamma"))
	require.NoError(t, err)
	sourceID := added[0].Id

	err = repos.Chunks.ReplaceChunks(ctx, sourceID,
		&core.Chunk{Index: 1, Text: "beta", Vector: []float32{0, 1}},
		&core.Chunk{Index: 0, Text: "alpha", Vector: []float32{1, 0}},
	)
	require.NoError(t, err)

	chunks, err := repos.Chunks.GetChunks(ctx, sourceID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "alpha", chunks[0].Text)
	assert.Equal(t, "beta", chunks[1].Text)
	assert.Equal(t, sourceID, chunks[0].SourceID)
	assert.Equal(t, core.ChunkID(sourceID, 0, "alpha"), chunks[0].Id)
	assert.Equal(t, []float32{1, 0}, chunks[0].Vector)
	assert.False(t, chunks[0].InsertedAt.IsZero())

	err = repos.Chunks.ReplaceChunks(ctx, sourceID, &core.Chunk{Index: 0, Text: "gamma"})
	require.NoError(t, err)

	chunks, err = repos.Chunks.GetChunks(ctx, sourceID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "gamma", chunks[0].Text)
}

func TestReplaceChunks_Invalid(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Chunks.ReplaceChunks(ctx, 5, &core.Chunk{Index: 0, Text: "kept"}))

	err := repos.Chunks.ReplaceChunks(ctx, 5, &core.Chunk{Index: 0, Text: "ok"}, &core.Chunk{Index: 1, Text: "  "})
	assert.ErrorIs(t, err, core.ErrInvalidChunk)

	err = repos.Chunks.ReplaceChunks(ctx, 5, nil)
	assert.ErrorIs(t, err, core.ErrInvalidChunk)

	// Failed replacements leave existing chunks untouched
	chunks, err := repos.Chunks.GetChunks(ctx, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "kept", chunks[0].Text)
}

func TestReplaceChunks_ManyKeepOrder(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	var chunks []*core.Chunk
	for i := 0; i < 300; i++ {
		chunks = append(chunks, &core.Chunk{Index: i, Text: "chunk"})
	}
	require.NoError(t, repos.Chunks.ReplaceChunks(ctx, 9, chunks...))

	got, err := repos.Chunks.GetChunks(ctx, 9)
	require.NoError(t, err)
	require.Len(t, got, 300)
	for i, c := range got {
		assert.Equal(t, i, c.Index)
	}
}

func TestDeleteChunks(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Chunks.ReplaceChunks(ctx, 1, &core.Chunk{Index: 0, Text: "one"}))
	require.NoError(t, repos.Chunks.ReplaceChunks(ctx, 2, &core.Chunk{Index: 0, Text: "two"}))

	require.NoError(t, repos.Chunks.DeleteChunks(ctx, 1))

	gone, err := repos.Chunks.GetChunks(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := repos.Chunks.GetChunks(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	// Deleting again is a no-op
	assert.NoError(t, repos.Chunks.DeleteChunks(ctx, 1))
}
