package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	"datainsight/internal/batch"
)

// DefaultProgressEvery is how many batches pass between two running counts.
const DefaultProgressEvery = 20

// Progress prints a dot per batch and the running count every few batches.
type Progress struct {
	mu    sync.Mutex
	w     io.Writer
	every int
	kind  string
}

func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w, every: DefaultProgressEvery}
}

// Tick is a batch.ProgressFunc.
func (p *Progress) Tick(ev batch.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Kind != p.kind {
		if p.kind != "" {
			fmt.Fprintln(p.w)
		}
		p.kind = ev.Kind
		fmt.Fprintf(p.w, "Generating %s ", ev.Kind)
	}
	fmt.Fprint(p.w, ".")
	if ev.Batch%p.every == 0 {
		fmt.Fprintf(p.w, " %s/%s\n", humanize.Comma(int64(ev.Done)), humanize.Comma(int64(ev.Total)))
	}
}

// Done terminates the current progress line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.kind != "" {
		fmt.Fprintln(p.w)
		p.kind = ""
	}
}
