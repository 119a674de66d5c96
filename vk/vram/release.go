package vram

import "sync"

// ReleaseQueue defers destruction until every virtual frame that could
// reference the resource has drained (spec.md §4.2 "Deferred release",
// §5 "guarded by one mutex for its entire lifetime").
type ReleaseQueue struct {
	mu      sync.Mutex
	pending []pendingRelease
}

type pendingRelease struct {
	safeFrame uint64
	fn        func()
}

func newReleaseQueue() *ReleaseQueue {
	return &ReleaseQueue{}
}

// Enqueue schedules fn to run once currentFrame (as observed by
// Advance) reaches safeFrame.
func (q *ReleaseQueue) Enqueue(safeFrame uint64, fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, pendingRelease{safeFrame: safeFrame, fn: fn})
}

// Advance runs and removes every release whose safe frame has passed.
func (q *ReleaseQueue) Advance(currentFrame uint64) {
	q.mu.Lock()
	remaining := q.pending[:0]
	var ready []func()
	for _, p := range q.pending {
		if currentFrame >= p.safeFrame {
			ready = append(ready, p.fn)
		} else {
			remaining = append(remaining, p)
		}
	}
	q.pending = remaining
	q.mu.Unlock()

	for _, fn := range ready {
		fn()
	}
}

// DrainAll runs every pending release unconditionally, used at
// shutdown after the device has been waited idle.
func (q *ReleaseQueue) DrainAll() {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, p := range pending {
		p.fn()
	}
}

// Empty reports whether the queue has no pending releases, used by
// the "deferred-release queue is empty after a full device-idle
// drain" invariant (spec.md §8).
func (q *ReleaseQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0
}
