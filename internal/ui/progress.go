package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar redraws a single line with the fraction of work done. On a
// non-terminal writer it prints a line per whole ten percent instead.
type ProgressBar struct {
	mu       sync.Mutex
	writer   io.Writer
	label    string
	width    int
	terminal bool
	lastStep int
	done     bool
}

// NewProgressBar creates a new progress bar
func NewProgressBar(w io.Writer, label string) *ProgressBar {
	return &ProgressBar{
		writer:   w,
		label:    label,
		width:    40,
		terminal: IsTerminalWriter(w),
		lastStep: -1,
	}
}

// Update draws fraction, clamped to [0, 1]. Safe to pass as an organize
// progress callback.
func (p *ProgressBar) Update(fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	percent := fraction * 100

	if !p.terminal {
		step := int(percent) / 10
		if step == p.lastStep {
			return
		}
		p.lastStep = step
		fmt.Fprintf(p.writer, "%s: %.0f%%\n", p.label, percent)
		p.done = fraction >= 1
		return
	}

	filled := int(float64(p.width) * fraction)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
	fmt.Fprintf(p.writer, "\r%s [%s] %5.1f%%", p.label, bar, percent)
	if fraction >= 1 {
		fmt.Fprintln(p.writer)
		p.done = true
	}
}

// Finish terminates the line if the bar never reached 100%.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done && p.terminal {
		fmt.Fprintln(p.writer)
	}
	p.done = true
}
