package scanner

import (
	"context"
	"sync"
)

// HostScanner scans a single host. *Scanner implements it.
type HostScanner interface {
	Scan(ctx context.Context, host string) ScanResult
}

// PoolConfig holds options for the worker pool.
type PoolConfig struct {
	Threads int
	Pauser  *Pauser // nil = no pause support
}

// RunPool scans hosts with cfg.Threads workers and returns a channel of
// results in completion order. Every host yields exactly one result; the
// channel is closed once all workers are done. A finding never stops the
// pool. Cancelling ctx stops feeding new hosts and queued hosts are
// skipped; scans already running finish under the request timeout, so the
// channel then holds one complete result per host that was started.
func RunPool(ctx context.Context, s HostScanner, hosts []string, cfg PoolConfig) <-chan ScanResult {
	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}
	hostsCh := make(chan string, threads)
	resultsCh := make(chan ScanResult, threads)

	// Producer: feed hosts into the queue.
	go func() {
		defer close(hostsCh)
		for _, h := range hosts {
			select {
			case hostsCh <- h:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for h := range hostsCh {
				cfg.Pauser.Wait(ctx)
				if ctx.Err() != nil {
					continue
				}
				resultsCh <- s.Scan(context.WithoutCancel(ctx), h)
			}
		}()
	}

	// Closer: when all workers finish, close the results channel.
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	return resultsCh
}
