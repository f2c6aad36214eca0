package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Progress renders a single-line progress bar for batch commands.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	total   int64
	current int64
	started time.Time

	// now is replaced in tests.
	now func() time.Time
}

// NewProgress starts a progress bar for total items. A zero total renders
// nothing.
func NewProgress(w io.Writer, label string, total int64) *Progress {
	p := &Progress{w: w, label: label, total: total, now: time.Now}
	p.started = p.now()
	return p
}

// Add records n more completed items.
func (p *Progress) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current += n
	if p.current > p.total {
		p.current = p.total
	}
	p.render()
}

// Done completes the bar and ends the line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		return
	}
	p.current = p.total
	p.render()
	fmt.Fprintln(p.w)
}

func (p *Progress) render() {
	if p.total == 0 {
		return
	}

	filled := int(int64(barWidth) * p.current / p.total)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)

	rate := 0.0
	if elapsed := p.now().Sub(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}

	fmt.Fprintf(p.w, "\r%s [%s] %d/%d %.1f/s", p.label, bar, p.current, p.total, rate)
}
