// Package blockedpool implements the unordered container of not-yet-ready
// tasks from spec.md §4.2 (C2): addTask inserts, getReadyTask linearly
// scans and removes the first task whose dependencies have all completed.
//
// The pool itself is a plain slice behind a spinlock-equivalent mutex
// (spec.md §5: "the blocked pool uses its own spinlock; it is never held
// across task-body execution"); Add batches its "a burst just arrived"
// signal the way go-utilpkg/microbatch's Batcher coalesces many Submit
// calls into one flush (a sibling module of
// github.com/joeycumines/go-eventloop): a burst of Adds within one
// coalesce window produces a single Changed signal. The worker package
// does not read Changed; its loop calls GetReadyTask on every iteration.
package blockedpool

import (
	"sync"
	"time"
)

// Task is the minimal view blockedpool needs: readiness and a retrieval
// of the underlying payload on removal.
type Task interface {
	IsReady() bool
}

// Pool holds tasks waiting on unmet dependencies, owned by a single
// worker (spec.md §4.2 "Called only from the owning worker").
type Pool[T Task] struct {
	mu    sync.Mutex
	tasks []T

	// coalesce batches wakeups: Add only signals `changed` once per
	// window, even under a burst of sibling-task completions, grounded
	// on microbatch's size/interval flush trigger.
	coalesceWindow time.Duration
	lastSignal     time.Time
	changed        chan struct{}
}

// New creates an empty pool. coalesceWindow of zero disables batching
// (every Add signals immediately).
func New[T Task](coalesceWindow time.Duration) *Pool[T] {
	return &Pool[T]{
		coalesceWindow: coalesceWindow,
		changed:        make(chan struct{}, 1),
	}
}

// Add inserts t into the pool (spec.md §4.2 addTask).
func (p *Pool[T]) Add(t T) {
	p.mu.Lock()
	p.tasks = append(p.tasks, t)
	now := time.Now()
	shouldSignal := p.coalesceWindow <= 0 || now.Sub(p.lastSignal) >= p.coalesceWindow
	if shouldSignal {
		p.lastSignal = now
	}
	p.mu.Unlock()

	if shouldSignal {
		select {
		case p.changed <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of tasks currently blocked.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// GetReadyTask linearly scans for (and removes) the first task whose
// dependencies have all completed, per spec.md §4.2. Returns the zero
// value and false if none are ready.
func (p *Pool[T]) GetReadyTask() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, t := range p.tasks {
		if t.IsReady() {
			p.tasks[i] = p.tasks[len(p.tasks)-1]
			var zero T
			p.tasks[len(p.tasks)-1] = zero
			p.tasks = p.tasks[:len(p.tasks)-1]
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Changed returns a channel that receives a value whenever the pool has
// gained a task since the last time this channel fired (coalesced per
// coalesceWindow). It is a hint, not a guarantee — the caller should
// still poll GetReadyTask on its own idle cadence (spec.md §4.7 worker
// loop step 2).
func (p *Pool[T]) Changed() <-chan struct{} {
	return p.changed
}
