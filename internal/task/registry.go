package task

import (
	"sort"
	"sync"
	"weak"
)

// Registry tracks live tasks via weak pointers so a diagnostic dump can
// enumerate the task graph without pinning anything that would otherwise
// be collected — grounded on github.com/joeycumines/go-eventloop's
// promise registry (eventloop/registry.go), which uses the same
// weak.Pointer + ring-buffer-scavenge strategy to track live Promises
// without preventing their collection.
//
// This is pure diagnostics (SPEC_FULL.md §12.4): nothing in the task
// lifecycle depends on it.
type Registry struct {
	mu   sync.Mutex
	data map[uint64]weak.Pointer[Task]
	ring []uint64
	head int
	next uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		data: make(map[uint64]weak.Pointer[Task]),
		ring: make([]uint64, 0, 256),
		next: 1,
	}
}

// Track registers t for diagnostics and returns a handle usable with
// Forget. Tracking does not affect t's ref-count or lifetime.
func (r *Registry) Track(t *Task) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.data[id] = weak.Make(t)
	r.ring = append(r.ring, id)
	return id
}

// Scavenge drops up to batchSize entries whose targets have been
// collected or completed, cycling through the ring the same way
// go-eventloop's registry.Scavenge amortises cleanup across ticks instead
// of doing a full-map sweep.
func (r *Registry) Scavenge(batchSize int) {
	if batchSize <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.ring)
	if n == 0 {
		return
	}
	end := min(r.head+batchSize, n)
	kept := r.ring[:0:0]
	kept = append(kept, r.ring[:r.head]...)
	for i := r.head; i < end; i++ {
		id := r.ring[i]
		wp, ok := r.data[id]
		if !ok {
			continue
		}
		tk := wp.Value()
		if tk == nil || tk.Done() {
			delete(r.data, id)
			continue
		}
		kept = append(kept, id)
	}
	kept = append(kept, r.ring[end:]...)
	r.ring = kept
	if end >= n {
		r.head = 0
	} else {
		r.head = len(kept) - (n - end)
	}
}

// Snapshot returns debug strings for every still-live tracked task,
// sorted by id for deterministic output (used by Pool.DumpState).
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	ids := make([]uint64, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]string, 0, len(ids))
	r.mu.Lock()
	for _, id := range ids {
		wp := r.data[id]
		r.mu.Unlock()
		if tk := wp.Value(); tk != nil {
			out = append(out, tk.DebugString())
		}
		r.mu.Lock()
	}
	r.mu.Unlock()
	return out
}
