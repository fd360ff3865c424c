package scanner

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// Throttler caps the request rate shared by all workers. When a target
// answers 429 or 503 the rate is halved; healthy responses recover it
// step by step to the configured rate. A nil *Throttler never waits.
type Throttler struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	base    rate.Limit
	floor   rate.Limit
	logger  *slog.Logger
}

// NewThrottler returns a throttler allowing rps requests per second, or
// nil when rps is not positive.
func NewThrottler(rps float64, logger *slog.Logger) *Throttler {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	base := rate.Limit(rps)
	floor := base / 16
	return &Throttler{
		limiter: rate.NewLimiter(base, burst),
		base:    base,
		floor:   floor,
		logger:  orDefault(logger),
	}
}

// Wait blocks until a request may be sent.
func (t *Throttler) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}

// limit reports the current rate in requests per second.
func (t *Throttler) limit() float64 {
	if t == nil {
		return 0
	}
	return float64(t.limiter.Limit())
}

// RecordStatus adjusts the rate after a response.
func (t *Throttler) RecordStatus(statusCode int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.limiter.Limit()
	next := cur
	if statusCode == 429 || statusCode == 503 {
		next = cur / 2
		if next < t.floor {
			next = t.floor
		}
	} else if cur < t.base {
		next = cur * 2
		if next > t.base {
			next = t.base
		}
	}
	if next != cur {
		t.limiter.SetLimit(next)
		t.logger.Debug("rate adjusted", slog.Int("status", statusCode), slog.Float64("rps", float64(next)))
	}
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
