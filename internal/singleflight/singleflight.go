// Package singleflight provides a single-slot gate that coalesces concurrent
// invocations of one operation into a single shared in-flight call.
package singleflight

import (
	"context"
	"sync"
)

// call is one in-flight execution shared between the owner and its waiters.
type call struct {
	done chan struct{}
	err  error
}

// Gate guards a single operation: the first caller runs it, every concurrent
// caller waits on the same call and receives the same error. The slot is
// cleared when the call finishes, success or failure, so a later caller
// starts a fresh execution. The zero value is ready to use.
type Gate struct {
	mu       sync.Mutex
	inflight *call
}

// Do runs fn unless another execution is already in flight, in which case it
// waits for that execution and returns its error. Waiters give up when ctx is
// done; the owner always runs fn to completion so joiners never observe a
// half-finished call.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	g.mu.Lock()
	if c := g.inflight; c != nil {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c := &call{done: make(chan struct{})}
	g.inflight = c
	g.mu.Unlock()

	c.err = fn()

	g.mu.Lock()
	g.inflight = nil
	g.mu.Unlock()
	close(c.done)

	return c.err
}

// InFlight reports whether an execution is currently running.
func (g *Gate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight != nil
}
