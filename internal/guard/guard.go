// Package guard serializes assessment runs per (tenant, version) key.
// Runs for different keys proceed fully in parallel; two runs for the same
// key never overlap. No ordering is promised among waiters beyond eventual
// admission.
package guard

import (
	"context"
	"sync"
)

// Guard is a per-key mutual-exclusion primitive. Entries are created lazily
// on first acquisition and kept for the process lifetime; the map is bounded
// by the number of distinct (tenant, version) pairs ever assessed.
type Guard struct {
	mu    sync.Mutex // guards slots map only
	slots map[string]chan struct{}
}

// New creates an empty guard.
func New() *Guard {
	return &Guard{slots: make(map[string]chan struct{})}
}

// Acquire blocks until the (tenantID, versionID) slot is free or ctx is
// cancelled. On success it returns a release function that must be called on
// every exit path; calling it more than once is safe. Cancellation while
// waiting leaves the slot state intact for other waiters.
func (g *Guard) Acquire(ctx context.Context, tenantID, versionID string) (release func(), err error) {
	slot := g.slot(tenantID + ":" + versionID)

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}

func (g *Guard) slot(key string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot, ok := g.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		g.slots[key] = slot
	}
	return slot
}
