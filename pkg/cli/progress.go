package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

const barWidth = 24

// Progress draws a single-line progress bar for a batch of items. A nil
// *Progress is valid and draws nothing, so callers can disable it by not
// constructing one.
type Progress struct {
	mu     sync.Mutex
	w      io.Writer
	unit   string
	total  int
	done   int
	failed int
}

// NewProgress returns a bar counting unit (e.g. "files") on w.
func NewProgress(w io.Writer, unit string) *Progress {
	return &Progress{w: w, unit: unit}
}

// Start resets the bar for total items.
func (p *Progress) Start(total int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total, p.done, p.failed = total, 0, 0
	p.draw("")
}

// Advance counts one finished item; ok=false counts it as failed.
func (p *Progress) Advance(item string, ok bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if !ok {
		p.failed++
	}
	p.draw(filepath.Base(item))
}

// Finish ends the line.
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total > 0 {
		fmt.Fprintln(p.w)
	}
}

func (p *Progress) draw(last string) {
	if p.total <= 0 {
		return
	}
	filled := barWidth * p.done / p.total
	line := fmt.Sprintf("\r[%s%s] %d/%d %s",
		strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled),
		p.done, p.total, p.unit)
	if p.failed > 0 {
		line += fmt.Sprintf(", %d failed", p.failed)
	}
	if last != "" {
		line += " " + last
	}
	// Clear leftovers from a longer previous line.
	fmt.Fprintf(p.w, "%-80s", line)
}
