package processing

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/lorekeep/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceIterator_Pages(t *testing.T) {
	repos := newTestRepos(t)
	var ids []core.ID
	for i := 0; i < 5; i++ {
		ids = append(ids, addSource(t, repos, "page content").Id)
	}

	var pages [][]core.ID
	err := NewSourceIterator(repos.Sources, 2).ForEach(context.Background(), 0, func(page []*core.KnowledgeSource) error {
		var pageIDs []core.ID
		for _, s := range page {
			pageIDs = append(pageIDs, s.Id)
		}
		pages = append(pages, pageIDs)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]core.ID{ids[0:2], ids[2:4], ids[4:5]}, pages)
}

func TestSourceIterator_AfterID(t *testing.T) {
	repos := newTestRepos(t)
	var ids []core.ID
	for i := 0; i < 3; i++ {
		ids = append(ids, addSource(t, repos, "content").Id)
	}

	var seen []core.ID
	err := NewSourceIterator(repos.Sources, 0).ForEach(context.Background(), ids[0], func(page []*core.KnowledgeSource) error {
		for _, s := range page {
			seen = append(seen, s.Id)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, ids[1:], seen)
}

func TestSourceIterator_StopsOnError(t *testing.T) {
	repos := newTestRepos(t)
	for i := 0; i < 4; i++ {
		addSource(t, repos, "content")
	}

	stop := errors.New("stop")
	calls := 0
	err := NewSourceIterator(repos.Sources, 1).ForEach(context.Background(), 0, func([]*core.KnowledgeSource) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestSourceIterator_Empty(t *testing.T) {
	repos := newTestRepos(t)
	calls := 0
	err := NewSourceIterator(repos.Sources, 10).ForEach(context.Background(), 0, func([]*core.KnowledgeSource) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, calls)
}
