package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/crawl"
	"github.com/poiesic/lorekeep/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFetcher returns a canned page or error.
type testFetcher struct {
	page  *crawl.Page
	err   error
	calls int
}

func (f *testFetcher) FetchPage(ctx context.Context, url string) (*crawl.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

// unknownInput satisfies Input from inside the package only.
type unknownInput struct{}

func (unknownInput) Kind() core.SourceKind { return core.SourceKindText }
func (unknownInput) sealed()               {}

func newTestPipeline(t *testing.T, fetcher PageFetcher) *Pipeline {
	t.Helper()
	p, err := NewPipeline(fetcher, extract.New(), WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline_Validation(t *testing.T) {
	_, err := NewPipeline(nil, extract.New())
	assert.ErrorIs(t, err, ErrFetcherRequired)

	_, err = NewPipeline(&testFetcher{}, nil)
	assert.ErrorIs(t, err, ErrExtractorRequired)
}

func TestIngest_RequiresAgentAndInput(t *testing.T) {
	p := newTestPipeline(t, &testFetcher{})
	ctx := context.Background()

	_, err := p.Ingest(ctx, uuid.Nil, TextInput{Text: "hello"})
	assert.ErrorIs(t, err, ErrAgentRequired)

	_, err = p.Ingest(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrInputRequired)

	_, err = p.Ingest(ctx, uuid.New(), unknownInput{})
	assert.ErrorIs(t, err, ErrUnsupportedInput)
}

func TestIngest_URL(t *testing.T) {
	fetcher := &testFetcher{page: &crawl.Page{
		Content:     "Pricing\n\nPlans start at $10.",
		Title:       "Pricing",
		Description: "All plans",
		SourceURL:   "https://x.com/pricing",
	}}
	p := newTestPipeline(t, fetcher)
	agent := uuid.New()

	res, err := p.Ingest(context.Background(), agent, URLInput{URL: "https://x.com/pricing"})
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)

	src := res.Source
	assert.Equal(t, agent, src.AgentID)
	assert.Equal(t, core.SourceKindURL, src.Kind)
	assert.Equal(t, "Pricing", src.Name)
	assert.Equal(t, "https://x.com/pricing", src.URL)
	assert.Equal(t, "All plans", src.Description)
	assert.Equal(t, 5, src.WordCount)
	assert.Equal(t, 1, fetcher.calls)
}

func TestIngest_URLFailurePassesThrough(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind core.ErrorKind
	}{
		{"missing credential", core.NewIngestError(core.KindMissingCredential, "https://x.com", "", nil), core.KindMissingCredential},
		{"forbidden", &core.IngestError{Kind: core.KindUpstreamError, Source: "https://x.com", Status: 403}, core.KindUpstreamError},
		{"empty page", core.NewIngestError(core.KindEmptyContent, "https://x.com", "", nil), core.KindEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, &testFetcher{err: tt.err})
			res, err := p.Ingest(context.Background(), uuid.New(), URLInput{URL: "https://x.com"})
			assert.Nil(t, res)
			assert.Equal(t, tt.kind, core.KindOf(err))
		})
	}
}

func TestIngest_Text(t *testing.T) {
	p := newTestPipeline(t, &testFetcher{})

	t.Run("normalized and named", func(t *testing.T) {
		res, err := p.Ingest(context.Background(), uuid.New(), TextInput{
			Text: "# Title\n\nSome **bold** text with a [link](http://x.com).",
		})
		require.NoError(t, err)
		assert.Equal(t, "Title\n\nSome bold text with a link.", res.Source.Content)
		assert.Equal(t, DefaultTextName, res.Source.Name)
		assert.Equal(t, core.SourceKindText, res.Source.Kind)
		assert.Equal(t, 7, res.Source.WordCount)
	})

	t.Run("caller name kept", func(t *testing.T) {
		res, err := p.Ingest(context.Background(), uuid.New(), TextInput{Text: "Hours: 9-5", Name: "Opening hours"})
		require.NoError(t, err)
		assert.Equal(t, "Opening hours", res.Source.Name)
	})

	t.Run("markup only is empty", func(t *testing.T) {
		_, err := p.Ingest(context.Background(), uuid.New(), TextInput{Text: "![img](a.png)\n\n---"})
		assert.ErrorIs(t, err, core.ErrEmptyContent)
	})
}

func TestIngest_PartialBatch(t *testing.T) {
	p := newTestPipeline(t, &testFetcher{})

	res, err := p.Ingest(context.Background(), uuid.New(), FilesInput{Files: []extract.File{
		textFile("one.txt", "Alpha text"),
		{Name: "two.docx", MediaType: extract.MediaTypeDOCX, Content: []byte("this is not a zip archive")},
		textFile("three.txt", "Gamma text"),
	}})
	require.NoError(t, err)

	assert.Equal(t, "Alpha text\n\nGamma text", res.Source.Content)
	assert.Equal(t, "one.txt, three.txt", res.Source.FileName)
	assert.Equal(t, "one.txt, three.txt", res.Source.Name)
	assert.Equal(t, 4, res.Source.WordCount)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "two.docx", res.Skipped[0].Source)
	assert.Equal(t, core.KindExtractionError, res.Skipped[0].Kind)
}

func TestIngest_BatchKeepsEveryFileText(t *testing.T) {
	p := newTestPipeline(t, &testFetcher{})

	res, err := p.Ingest(context.Background(), uuid.New(), FilesInput{Files: []extract.File{
		textFile("a.txt", "Type ``` to start a code block in chat."),
		textFile("b.txt", "   "),
		textFile("c.txt", "Closing ``` ends it.\n\nPricing starts at $10."),
	}})
	require.NoError(t, err)

	assert.Equal(t,
		"Type ``` to start a code block in chat.\n\nClosing ``` ends it.\n\nPricing starts at $10.",
		res.Source.Content)
	assert.Equal(t, "a.txt, c.txt", res.Source.FileName)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "b.txt", res.Skipped[0].Source)
	assert.Equal(t, core.KindEmptyContent, res.Skipped[0].Kind)
}

func TestIngest_HardFailureBatch(t *testing.T) {
	p := newTestPipeline(t, &testFetcher{})

	res, err := p.Ingest(context.Background(), uuid.New(), FilesInput{Files: []extract.File{
		{Name: "report.pdf", MediaType: extract.MediaTypePDF, Content: []byte("%PDF-1.4")},
		{Name: "broken.docx", MediaType: extract.MediaTypeDOCX, Content: []byte("garbage")},
		{Name: "latin1.txt", MediaType: extract.MediaTypeText, Content: []byte{0xE9, 't', 0xE9}},
	}})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptyContent)
	assert.Equal(t, core.KindEmptyContent, core.KindOf(err))

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	require.Len(t, batchErr.Skipped, 3)
	assert.Equal(t, core.KindUnsupportedFormat, batchErr.Skipped[0].Kind)
	assert.Equal(t, core.KindExtractionError, batchErr.Skipped[1].Kind)
	assert.Equal(t, core.KindInvalidEncoding, batchErr.Skipped[2].Kind)
	assert.Contains(t, err.Error(), "report.pdf")
}

func TestIngest_EmptyBatch(t *testing.T) {
	p := newTestPipeline(t, &testFetcher{})

	_, err := p.Ingest(context.Background(), uuid.New(), FilesInput{})
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestIngest_CancelledContext(t *testing.T) {
	fetcher := &testFetcher{}
	p := newTestPipeline(t, fetcher)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Ingest(ctx, uuid.New(), URLInput{URL: "https://x.com"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fetcher.calls)

	_, err = p.Ingest(ctx, uuid.New(), FilesInput{Files: []extract.File{textFile("a.txt", "x")}})
	assert.ErrorIs(t, err, context.Canceled)
}
