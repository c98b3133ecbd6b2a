// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"sync"
)

// =============================================================================
// IN-FLIGHT CALL TRACKING (THREAD-SAFE)
// =============================================================================

// callTracker holds the cancel functions of every in-flight request so the
// Client can abort them all at once.
type callTracker struct {
	mu     sync.Mutex
	nextID uint64
	calls  map[uint64]context.CancelFunc
}

func newCallTracker() *callTracker {
	return &callTracker{calls: make(map[uint64]context.CancelFunc)}
}

// track derives a cancellable context from ctx and registers it. The
// returned release function cancels the context and forgets it; it is safe
// to call more than once.
func (t *callTracker) track(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.calls[id] = cancel
	t.mu.Unlock()

	return callCtx, func() {
		t.mu.Lock()
		delete(t.calls, id)
		t.mu.Unlock()
		cancel()
	}
}

// cancelAll cancels every tracked call. Safe to call with nothing in flight.
func (t *callTracker) cancelAll() {
	t.mu.Lock()
	calls := t.calls
	t.calls = make(map[uint64]context.CancelFunc)
	t.mu.Unlock()

	for _, cancel := range calls {
		cancel()
	}
}

// inFlight returns the number of tracked calls.
func (t *callTracker) inFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
