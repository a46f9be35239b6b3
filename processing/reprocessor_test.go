package processing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/poiesic/lorekeep/ai/mock"
	"github.com/poiesic/lorekeep/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProcessor fails or cancels on chosen source IDs.
type scriptedProcessor struct {
	fail     map[core.ID]bool
	cancelAt core.ID
	cancel   context.CancelFunc
	seen     []core.ID
}

func (p *scriptedProcessor) Process(ctx context.Context, id core.ID) (*Result, error) {
	if id == p.cancelAt && p.cancel != nil {
		p.cancel()
		return nil, ctx.Err()
	}
	p.seen = append(p.seen, id)
	if p.fail[id] {
		return nil, errors.New("embedding failed")
	}
	return &Result{ChunksCreated: 2}, nil
}

func TestNewReprocessor_Validation(t *testing.T) {
	repos := newTestRepos(t)
	proc := &scriptedProcessor{}

	_, err := NewReprocessor(nil, repos.Checkpoints, proc, nil, nil, nil)
	assert.ErrorIs(t, err, ErrSourceRepositoryRequired)

	_, err = NewReprocessor(repos.Sources, nil, proc, nil, nil, nil)
	assert.ErrorIs(t, err, ErrCheckpointRepositoryRequired)

	_, err = NewReprocessor(repos.Sources, repos.Checkpoints, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrProcessorRequired)
}

func TestReprocessor_ProcessesAll(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	for _, content := range []string{"alpha one", "beta two", "gamma three"} {
		addSource(t, repos, content)
	}

	processor := newTestProcessor(t, repos, mock.NewMockEmbedder())
	var out bytes.Buffer
	r, err := NewReprocessor(repos.Sources, repos.Checkpoints, processor, testConfig(), &out, nil)
	require.NoError(t, err)

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 3, summary.ChunksCreated)
	assert.Contains(t, out.String(), "Starting reprocessing of 3 sources")
	assert.Contains(t, out.String(), "Reprocessing complete")

	cp, err := repos.Checkpoints.LoadCheckpoint(ctx, ReprocessCheckpoint)
	require.NoError(t, err)
	assert.Nil(t, cp, "checkpoint cleared after a complete run")
}

func TestReprocessor_CountsFailures(t *testing.T) {
	repos := newTestRepos(t)
	a := addSource(t, repos, "a")
	b := addSource(t, repos, "b")
	c := addSource(t, repos, "c")

	proc := &scriptedProcessor{fail: map[core.ID]bool{b.Id: true}}
	var out bytes.Buffer
	r, err := NewReprocessor(repos.Sources, repos.Checkpoints, proc, testConfig(), &out, nil)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, out.String(), "Progress: 3/3 (100.0%), 1 failed")
	assert.Equal(t, 4, summary.ChunksCreated)
	assert.Equal(t, []core.ID{a.Id, b.Id, c.Id}, proc.seen)
}

func TestReprocessor_ResumesFromCheckpoint(t *testing.T) {
	repos := newTestRepos(t)
	var ids []core.ID
	for i := 0; i < 5; i++ {
		ids = append(ids, addSource(t, repos, "content").Id)
	}

	// Batch size 2: the run is cancelled on the first source of the second page
	ctx, cancel := context.WithCancel(context.Background())
	first := &scriptedProcessor{cancelAt: ids[2], cancel: cancel}
	r, err := NewReprocessor(repos.Sources, repos.Checkpoints, first, testConfig(), io.Discard, nil)
	require.NoError(t, err)

	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ids[:2], first.seen)

	cp, err := repos.Checkpoints.LoadCheckpoint(context.Background(), ReprocessCheckpoint)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, ids[1], cp.LastID)

	second := &scriptedProcessor{}
	r, err = NewReprocessor(repos.Sources, repos.Checkpoints, second, testConfig(), io.Discard, nil)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ids[1], summary.ResumedAfter)
	assert.Equal(t, ids[2:], second.seen)
	assert.Equal(t, 3, summary.Processed)
}

func TestReprocessor_NoSources(t *testing.T) {
	repos := newTestRepos(t)
	var out bytes.Buffer
	r, err := NewReprocessor(repos.Sources, repos.Checkpoints, &scriptedProcessor{}, nil, &out, nil)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Contains(t, out.String(), "No sources found")
}
