package scanner

import (
	"context"
	"sync"
	"time"
)

// Pauser gates workers between hosts. While paused, Wait blocks on a
// channel that is closed on resume. In-flight probes are never interrupted.
type Pauser struct {
	mu       sync.Mutex
	gate     chan struct{} // nil while running
	since    time.Time
	idleTime time.Duration
}

// NewPauser returns a Pauser in the running state.
func NewPauser() *Pauser {
	return &Pauser{}
}

// Wait returns once the pauser is running or ctx is done.
func (p *Pauser) Wait(ctx context.Context) {
	if p == nil {
		return
	}
	p.mu.Lock()
	gate := p.gate
	p.mu.Unlock()
	if gate == nil {
		return
	}
	select {
	case <-gate:
	case <-ctx.Done():
	}
}

// Toggle flips between paused and running and reports whether the pauser
// is now paused.
func (p *Pauser) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gate != nil {
		close(p.gate)
		p.gate = nil
		p.idleTime += time.Since(p.since)
		return false
	}
	p.gate = make(chan struct{})
	p.since = time.Now()
	return true
}

// isPaused reports whether workers are currently held.
func (p *Pauser) isPaused() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gate != nil
}

// PausedDuration is the total time spent paused, including a pause that is
// still ongoing.
func (p *Pauser) PausedDuration() time.Duration {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.idleTime
	if p.gate != nil {
		d += time.Since(p.since)
	}
	return d
}
