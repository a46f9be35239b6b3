package badger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func newTextSource(content string) *core.KnowledgeSource {
	return newAgentSource(uuid.New(), content)
}

func newAgentSource(agent uuid.UUID, content string) *core.KnowledgeSource {
	return &core.KnowledgeSource{
		AgentID:   agent,
		Kind:      core.SourceKindText,
		Name:      "Pasted text",
		Content:   content,
		WordCount: core.CountWords(content),
		Status:    core.SourceStatusCompleted,
	}
}

func TestAddSources(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	added, err := repos.Sources.AddSources(ctx, newTextSource("first one"), newTextSource("second one"))
	require.NoError(t, err)
	require.Len(t, added, 2)

	assert.NotZero(t, added[0].Id)
	assert.Greater(t, added[1].Id, added[0].Id)
	assert.False(t, added[0].InsertedAt.IsZero())
	assert.Equal(t, added[0].InsertedAt, added[0].UpdatedAt)

	got, err := repos.Sources.GetSource(ctx, added[1].Id)
	require.NoError(t, err)
	assert.Equal(t, "second one", got.Content)
	assert.Equal(t, added[1].AgentID, got.AgentID)
}

func TestAddSources_ValidatesAll(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	bad := newTextSource("three words here")
	bad.WordCount = 1

	_, err := repos.Sources.AddSources(ctx, newTextSource("fine"), bad)
	assert.ErrorIs(t, err, storage.ErrInvalidSource)
	assert.ErrorIs(t, err, core.ErrWordCountMismatch)

	count, err := repos.Sources.CountSources(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGetSource_NotFound(t *testing.T) {
	repos := newTestRepos(t)

	_, err := repos.Sources.GetSource(context.Background(), core.ID(404))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateSources(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	added, err := repos.Sources.AddSources(ctx, newTextSource("original text"))
	require.NoError(t, err)
	src := added[0]
	inserted := src.InsertedAt

	updated := *src
	updated.Content = "edited text body"
	updated.WordCount = 3
	updated.InsertedAt = inserted.Add(-1000)

	_, err = repos.Sources.UpdateSources(ctx, &updated)
	require.NoError(t, err)

	got, err := repos.Sources.GetSource(ctx, src.Id)
	require.NoError(t, err)
	assert.Equal(t, "edited text body", got.Content)
	assert.True(t, got.InsertedAt.Equal(inserted))
	assert.False(t, got.UpdatedAt.Before(got.InsertedAt))
}

func TestUpdateSources_NotFound(t *testing.T) {
	repos := newTestRepos(t)

	missing := newTextSource("ghost")
	missing.Id = 99
	_, err := repos.Sources.UpdateSources(context.Background(), missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateSources_MovesAgentIndex(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	oldAgent, newAgent := uuid.New(), uuid.New()

	added, err := repos.Sources.AddSources(ctx, newAgentSource(oldAgent, "moving source"))
	require.NoError(t, err)

	moved := *added[0]
	moved.AgentID = newAgent
	_, err = repos.Sources.UpdateSources(ctx, &moved)
	require.NoError(t, err)

	oldList, err := repos.Sources.GetSourcesByAgent(ctx, oldAgent)
	require.NoError(t, err)
	assert.Empty(t, oldList)

	newList, err := repos.Sources.GetSourcesByAgent(ctx, newAgent)
	require.NoError(t, err)
	require.Len(t, newList, 1)
	assert.Equal(t, added[0].Id, newList[0].Id)
}

func TestGetSourcesByAgent(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	agentA, agentB := uuid.New(), uuid.New()

	_, err := repos.Sources.AddSources(ctx,
		newAgentSource(agentA, "a one"),
		newAgentSource(agentB, "b one"),
		newAgentSource(agentA, "a two"),
	)
	require.NoError(t, err)

	list, err := repos.Sources.GetSourcesByAgent(ctx, agentA)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a one", list[0].Content)
	assert.Equal(t, "a two", list[1].Content)

	none, err := repos.Sources.GetSourcesByAgent(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteSources(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	agent := uuid.New()

	added, err := repos.Sources.AddSources(ctx, newAgentSource(agent, "keep me"), newAgentSource(agent, "drop me"))
	require.NoError(t, err)
	dropped := added[1].Id

	require.NoError(t, repos.Chunks.ReplaceChunks(ctx, dropped, &core.Chunk{Index: 0, Text: "drop me"}))

	require.NoError(t, repos.Sources.DeleteSources(ctx, dropped))

	_, err = repos.Sources.GetSource(ctx, dropped)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	chunks, err := repos.Chunks.GetChunks(ctx, dropped)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	list, err := repos.Sources.GetSourcesByAgent(ctx, agent)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, added[0].Id, list[0].Id)

	assert.ErrorIs(t, repos.Sources.DeleteSources(ctx, dropped), storage.ErrNotFound)
}

func TestListSources_Paging(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repos.Sources.AddSources(ctx, newTextSource("page item"))
		require.NoError(t, err)
	}

	first, err := repos.Sources.ListSources(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := repos.Sources.ListSources(ctx, first[1].Id, 2)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Greater(t, second[0].Id, first[1].Id)

	rest, err := repos.Sources.ListSources(ctx, second[1].Id, 0)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	count, err := repos.Sources.CountSources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
