package output

import (
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"
)

// ProgressBar draws a pb progress bar for batch work
type ProgressBar struct {
	w   io.Writer
	bar *pb.ProgressBar
}

// NewProgressBar creates a bar writing to w
func NewProgressBar(w io.Writer) *ProgressBar {
	return &ProgressBar{w: w}
}

// Start draws an empty bar for total items
func (p *ProgressBar) Start(total int) {
	p.bar = pb.New(total).SetTemplate(pb.Full).SetWriter(p.w).Start()
}

// Increment advances the bar by one item
func (p *ProgressBar) Increment() {
	if p.bar != nil {
		p.bar.Increment()
	}
}

// Finish completes and releases the bar
func (p *ProgressBar) Finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
