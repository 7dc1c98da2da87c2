package observability

import (
	"sync"
	"time"
)

// RunTracker keeps live counts for a batch of concurrently running
// research tasks.
type RunTracker struct {
	mu        sync.RWMutex
	inflight  int
	succeeded int
	failed    int
	started   time.Time
}

func NewRunTracker() *RunTracker {
	return &RunTracker{started: time.Now()}
}

// Started records one more task in flight.
func (t *RunTracker) Started() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight++
}

// Finished settles one in-flight task into the succeeded or failed column.
func (t *RunTracker) Finished(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight--
	if err != nil {
		t.failed++
	} else {
		t.succeeded++
	}
}

// Snapshot retrieves a copy of the current counts.
func (t *RunTracker) Snapshot() (inflight, succeeded, failed int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.inflight, t.succeeded, t.failed
}

// Elapsed reports how long the batch has been running.
func (t *RunTracker) Elapsed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return time.Since(t.started)
}
