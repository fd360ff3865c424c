package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

// Progress tracks and displays scan progress on stderr.
type Progress struct {
	total      int
	completed  atomic.Int64
	vulnerable atomic.Int64
	errors     atomic.Int64
	start      time.Time
	paused     func() time.Duration
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex // serializes writes to w
	w          io.Writer
	enabled    bool
}

// NewProgress creates a progress tracker for total hosts. The display is
// enabled only when stderr is a terminal and quiet is false. paused, when
// not nil, reports time to exclude from the rate and ETA.
func NewProgress(total int, quiet bool, paused func() time.Duration) *Progress {
	return newProgress(os.Stderr, total, !quiet && term.IsTerminal(int(os.Stderr.Fd())), paused)
}

func newProgress(w io.Writer, total int, enabled bool, paused func() time.Duration) *Progress {
	if paused == nil {
		paused = func() time.Duration { return 0 }
	}
	return &Progress{
		total:   total,
		start:   time.Now(),
		paused:  paused,
		done:    make(chan struct{}),
		w:       w,
		enabled: enabled,
	}
}

// Start begins periodically printing progress.
func (p *Progress) Start() {
	if !p.enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Redraw()
			case <-p.done:
				return
			}
		}
	}()
}

// Record counts a finished host.
func (p *Progress) Record(vulnerable, failed bool) {
	p.completed.Add(1)
	if vulnerable {
		p.vulnerable.Add(1)
	}
	if failed {
		p.errors.Add(1)
	}
}

// ClearLine erases the progress line so a result can be printed. Pair it
// with Redraw.
func (p *Progress) ClearLine() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	fmt.Fprint(p.w, "\r\033[K")
	p.mu.Unlock()
}

// Redraw prints the current progress line.
func (p *Progress) Redraw() {
	if !p.enabled {
		return
	}
	line := p.line()
	p.mu.Lock()
	fmt.Fprint(p.w, "\r\033[K"+line)
	p.mu.Unlock()
}

// Stop ends the progress display and clears the line.
func (p *Progress) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.ClearLine()
	})
}

func (p *Progress) line() string {
	completed := p.completed.Load()
	elapsed := (time.Since(p.start) - p.paused()).Seconds()
	rate := float64(0)
	if elapsed > 0 {
		rate = float64(completed) / elapsed
	}

	pct := float64(0)
	if p.total > 0 {
		pct = float64(completed) / float64(p.total) * 100
	}

	eta := ""
	if rate > 0 && completed < int64(p.total) {
		remaining := float64(int64(p.total)-completed) / rate
		eta = fmt.Sprintf(" | ETA: %s", time.Duration(remaining*float64(time.Second)).Round(time.Second))
	}

	return fmt.Sprintf("[%3.0f%%] %d/%d | %.1f hosts/s | Vulnerable: %d | Errors: %d%s",
		pct, completed, p.total, rate,
		p.vulnerable.Load(), p.errors.Load(), eta)
}
