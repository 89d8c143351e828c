package kliento

import (
	"context"
	"net/http"
	"sync"
)

// dedupEntry is one in-flight request shared between the owner and waiters.
// Waiters receive the owner's raw response bytes and decode independently.
type dedupEntry struct {
	res  *rawResponse
	err  error
	done chan struct{}
}

// deduplicationTracker coalesces identical concurrent requests so a burst of
// the same GET hits the backend once.
type deduplicationTracker struct {
	mu      sync.Mutex
	entries map[string]*dedupEntry
}

func newDeduplicationTracker() *deduplicationTracker {
	return &deduplicationTracker{entries: make(map[string]*dedupEntry)}
}

// getOrCreate returns the in-flight entry for key, reporting whether the
// caller is the owner responsible for executing and completing it.
func (dt *deduplicationTracker) getOrCreate(key string) (*dedupEntry, bool) {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	if entry, ok := dt.entries[key]; ok {
		return entry, false
	}
	entry := &dedupEntry{done: make(chan struct{})}
	dt.entries[key] = entry
	return entry, true
}

// complete publishes the owner's result and releases all waiters.
func (dt *deduplicationTracker) complete(key string, res *rawResponse, err error) {
	dt.mu.Lock()
	entry, ok := dt.entries[key]
	if ok {
		delete(dt.entries, key)
	}
	dt.mu.Unlock()

	if !ok {
		return
	}
	entry.res = res
	entry.err = err
	close(entry.done)
}

// wait blocks until the owning request completes or ctx is done.
func (e *dedupEntry) wait(ctx context.Context) (*rawResponse, error) {
	select {
	case <-e.done:
		return e.res, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DeduplicationCondition decides whether a request may be coalesced with an
// identical in-flight one.
type DeduplicationCondition func(*Request) bool

// DefaultDeduplicationCondition coalesces only safe read methods.
func DefaultDeduplicationCondition(r *Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// dedupKey identifies a request for coalescing. Tenant is part of the key so
// identical paths for different orgs never share a response.
func (c *Client) dedupKey(r *Request, fullURL string) string {
	org := r.OrgID
	if org == "" {
		org = c.defaultOrg
	}
	return r.Method + " " + fullURL + " " + org
}
