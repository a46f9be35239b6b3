package processing

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress reports how far a reprocessing run has got. Each processed source
// is recorded as done or failed; a status line is rewritten in place every
// reportEvery sources and once more by Finish.
//
// Progress is safe for concurrent use.
type Progress struct {
	mu sync.Mutex

	w           io.Writer
	total       int
	reportEvery int

	done       int
	failed     int
	lastReport int
	start      time.Time
	running    bool
	now        func() time.Time
}

// NewProgress creates a Progress for total sources writing to w.
// A reportEvery below 1 reports after every source.
func NewProgress(w io.Writer, total, reportEvery int) *Progress {
	if w == nil {
		w = io.Discard
	}
	return &Progress{
		w:           w,
		total:       max(total, 0),
		reportEvery: max(reportEvery, 1),
		now:         time.Now,
	}
}

// Start resets the counters and the clock. Record and Finish are no-ops
// until Start is called.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.start = p.now()
	p.running = true
	p.done, p.failed, p.lastReport = 0, 0, 0
}

// Record counts one processed source. Sources beyond total are ignored.
func (p *Progress) Record(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running || p.done >= p.total {
		return
	}
	p.done++
	if failed {
		p.failed++
	}
	if p.done-p.lastReport >= p.reportEvery {
		p.writeLine()
		p.lastReport = p.done
	}
}

// Finish writes the final status line and ends it with a newline. The
// counters are left as recorded; a run stopped early does not show as
// complete.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.writeLine()
	fmt.Fprintln(p.w)
	p.running = false
}

// Counts returns the number of recorded and failed sources.
func (p *Progress) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

// Elapsed returns the time since Start, or zero before it.
func (p *Progress) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.start.IsZero() {
		return 0
	}
	return p.now().Sub(p.start)
}

// writeLine renders the status line. Must be called with mu held.
//
//	Progress: 40/100 (40.0%), 2 failed, 8.0 sources/s, 8s left
func (p *Progress) writeLine() {
	percent := 100.0
	if p.total > 0 {
		percent = float64(p.done) / float64(p.total) * 100
	}

	line := fmt.Sprintf("\rProgress: %d/%d (%.1f%%)", p.done, p.total, percent)
	if p.failed > 0 {
		line += fmt.Sprintf(", %d failed", p.failed)
	}

	elapsed := p.now().Sub(p.start).Seconds()
	if elapsed > 0 && p.done > 0 {
		rate := float64(p.done) / elapsed
		line += fmt.Sprintf(", %.1f sources/s", rate)
		if remaining := p.total - p.done; remaining > 0 {
			left := time.Duration(float64(remaining) / rate * float64(time.Second))
			line += fmt.Sprintf(", %v left", left.Round(time.Second))
		}
	}
	fmt.Fprint(p.w, line)
}
