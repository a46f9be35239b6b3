package processing

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every reading.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestProgress(buf *bytes.Buffer, total, every int) *Progress {
	p := NewProgress(buf, total, every)
	p.now = (&fakeClock{t: time.Unix(0, 0), step: time.Second}).now
	return p
}

// lastLine returns the most recent status line written.
func lastLine(buf *bytes.Buffer) string {
	out := strings.TrimRight(buf.String(), "\n")
	return out[strings.LastIndex(out, "\r")+1:]
}

func TestProgress_Lines(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		outcomes []bool // true marks a failed source
		finish   bool
		want     string
	}{
		{
			name:     "half way",
			total:    4,
			outcomes: []bool{false, false},
			want:     "Progress: 2/4 (50.0%), 1.0 sources/s, 2s left",
		},
		{
			name:     "failures shown",
			total:    4,
			outcomes: []bool{false, true, false, true},
			finish:   true,
			want:     "Progress: 4/4 (100.0%), 2 failed, 0.8 sources/s",
		},
		{
			name:     "stopped early is not complete",
			total:    10,
			outcomes: []bool{false},
			finish:   true,
			want:     "Progress: 1/10 (10.0%), 0.5 sources/s, 18s left",
		},
		{
			name:   "empty run",
			total:  0,
			finish: true,
			want:   "Progress: 0/0 (100.0%)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := newTestProgress(&buf, tt.total, 1)
			p.Start()
			for _, failed := range tt.outcomes {
				p.Record(failed)
			}
			if tt.finish {
				p.Finish()
				assert.True(t, strings.HasSuffix(buf.String(), "\n"))
			}
			assert.Equal(t, tt.want, lastLine(&buf))
		})
	}
}

func TestProgress_ReportEvery(t *testing.T) {
	var buf bytes.Buffer
	p := newTestProgress(&buf, 100, 10)
	p.Start()

	for range 9 {
		p.Record(false)
	}
	assert.Empty(t, buf.String(), "no line before the interval")

	p.Record(false)
	assert.Equal(t, 1, strings.Count(buf.String(), "\r"))
	assert.True(t, strings.HasPrefix(lastLine(&buf), "Progress: 10/100 (10.0%)"))

	for range 10 {
		p.Record(true)
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "\r"))
	assert.Contains(t, lastLine(&buf), "10 failed")
}

func TestProgress_CappedAtTotal(t *testing.T) {
	var buf bytes.Buffer
	p := newTestProgress(&buf, 2, 1)
	p.Start()

	for range 5 {
		p.Record(true)
	}
	done, failed := p.Counts()
	assert.Equal(t, 2, done)
	assert.Equal(t, 2, failed)
}

func TestProgress_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 10, 1)

	p.Record(false)
	p.Finish()

	assert.Empty(t, buf.String())
	assert.Zero(t, p.Elapsed())
	done, _ := p.Counts()
	assert.Zero(t, done)
}

func TestProgress_RestartResetsCounts(t *testing.T) {
	var buf bytes.Buffer
	p := newTestProgress(&buf, 10, 1)

	p.Start()
	p.Record(true)
	p.Finish()

	p.Start()
	done, failed := p.Counts()
	assert.Zero(t, done)
	assert.Zero(t, failed)
	assert.Greater(t, p.Elapsed(), time.Duration(0))
}

func TestProgress_Concurrent(t *testing.T) {
	p := NewProgress(nil, 1000, 100)
	p.Start()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				p.Record((i+j)%4 == 0)
			}
		}()
	}
	wg.Wait()
	p.Finish()

	done, failed := p.Counts()
	require.Equal(t, 1000, done)
	assert.Equal(t, 250, failed)
}
