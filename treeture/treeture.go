// Package treeture implements the typed, navigable handle to a (possibly
// still-future) task result described in spec.md §3.3 and §4.5 (C6).
//
// A Treeture[T] owns a reference on an internal/task.Task and carries a
// navigation path: a FIFO of left/right decisions recording which
// descendant of that task, once split deeply enough, is the real target.
// GetLeft/GetRight extend the path; narrow (§4.5.1) walks it down the
// actual task tree as splits materialize; Wait/Get resolve it fully.
//
// Per the REDESIGN note on integer-bit-packed navigation queues, the path
// is a (bits uint64, len uint8) pair rather than a slice, mirroring
// internal/taskid's own packed representation.
package treeture

import (
	"runtime"
	"sync"

	"github.com/allscale/allscale-api-sub001/internal/task"
	"github.com/allscale/allscale-api-sub001/internal/taskid"
)

// pathQueue is a FIFO of pending left/right decisions, packed into a
// fixed-width integer plus a length (spec.md §9 "a (bits: u64, len: u8)
// pair is enough").
type pathQueue struct {
	bits uint64
	len  uint8
}

func (q pathQueue) pushBack(side taskid.Side) pathQueue {
	bit := uint64(0)
	if side == taskid.Right {
		bit = 1
	}
	return pathQueue{bits: q.bits | (bit << q.len), len: q.len + 1}
}

func (q pathQueue) peekFront() (taskid.Side, bool) {
	if q.len == 0 {
		return 0, false
	}
	return taskid.Side(q.bits & 1), true
}

func (q pathQueue) popFront() pathQueue {
	return pathQueue{bits: q.bits >> 1, len: q.len - 1}
}

// scheduler hooks, installed by the worker package at pool construction
// time. Without one registered, a released task either runs inline
// immediately (if already Ready) or simply waits to be observed Done by
// narrow()/wait() spinning on runtime.Gosched — enough for tests and
// trivial no-pool programs that only ever use sequential composition.
var (
	schedulerMu sync.RWMutex
	enqueueFn   func(*task.Task)
	stepFn      func() bool
)

// SetScheduler installs the pool-wide hooks: enqueue places a Ready task
// onto the scheduler (a worker's deque), and step runs one unit of
// scheduling work on the calling goroutine, reporting whether it did
// anything. Called by worker.Pool.Start, and with nil hooks by
// worker.Pool.Shutdown.
func SetScheduler(enqueue func(*task.Task), step func() bool) {
	schedulerMu.Lock()
	defer schedulerMu.Unlock()
	enqueueFn = enqueue
	stepFn = step
}

func scheduleTask(t *task.Task) {
	schedulerMu.RLock()
	fn := enqueueFn
	schedulerMu.RUnlock()
	if fn != nil {
		fn(t)
		return
	}
	if t.State() == task.Ready {
		t.Run(nil)
	}
}

func schedulerStep() bool {
	schedulerMu.RLock()
	fn := stepFn
	schedulerMu.RUnlock()
	if fn == nil {
		return false
	}
	return fn()
}

// taskRef is the type-erased handle shared by Treeture[T] and
// UnreleasedTreeture[T]; each handle owns its own path so that
// GetLeft/GetRight can diverge independently while sharing the
// underlying task tree (spec.md §4.5 "the underlying task reference is
// shared").
type taskRef struct {
	mu   sync.Mutex
	task *task.Task
	path pathQueue
}

// narrow implements spec.md §4.5.1: while the path is non-empty, peek the
// next bit, ask the task for that child, and retarget if it already
// exists; stop as soon as the next child hasn't materialized yet. A task
// that finished without ever splitting (a plain leaf) naturally has no
// children, so this also covers "current task is Done and never split"
// without a separate check — a Done split task's children are themselves
// already Done and still worth narrowing into (getLeft/getRight remain
// meaningful after the whole has resolved).
func (r *taskRef) narrow() *task.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		side, ok := r.path.peekFront()
		if !ok {
			break
		}
		var child *task.Task
		if side == taskid.Left {
			child = r.task.Left()
		} else {
			child = r.task.Right()
		}
		if child == nil {
			break
		}
		r.task = child
		r.path = r.path.popFront()
	}
	return r.task
}

// wait alternates narrowing with running one scheduler step, so a caller
// blocked on a deep iteration waits only on the narrowest available
// sub-task (spec.md §4.5.1), and is a no-op once the target is already
// Done (idempotence of wait, spec.md §6 invariant 7).
func (r *taskRef) wait() *task.Task {
	for {
		t := r.narrow()
		if t.Done() {
			return t
		}
		if !schedulerStep() {
			runtime.Gosched()
		}
	}
}

func (r *taskRef) done() bool {
	return r.narrow().Done()
}

func (r *taskRef) derive(side taskid.Side) *taskRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.task.AddRef()
	return &taskRef{task: r.task, path: r.path.pushBack(side)}
}

// Treeture is a released, owning handle to the (possibly still pending)
// result of a task, narrowed to one sub-task by its navigation path
// (spec.md §3.3, §4.5).
type Treeture[T any] struct {
	ref *taskRef
}

// UnreleasedTreeture is a treeture over a task tree that has not yet been
// handed to the scheduler. Spawn/SpawnSplittable/Combine all return one;
// Release schedules the underlying task and returns the live handle
// (spec.md §4.5 release()).
type UnreleasedTreeture[T any] struct {
	ref *taskRef
}

// Release transitions the un-scheduled task tree to scheduled state,
// equivalent to first enqueue on the current worker, and returns the
// live handle.
func (u UnreleasedTreeture[T]) Release() Treeture[T] {
	scheduleTask(u.ref.task)
	return Treeture[T]{ref: u.ref}
}

// Done reports whether the referenced task has completed (implements
// internal/task.Dependency, so a Treeture can be used directly in an
// after(...) dependency set).
func (t Treeture[T]) Done() bool { return t.ref.done() }

// Wait blocks the calling worker until the referenced task is Done,
// participating in scheduling in the meantime rather than hard-blocking
// (spec.md §5 "Suspension points").
func (t Treeture[T]) Wait() { t.ref.wait() }

// Get waits for the target and returns its value.
func (t Treeture[T]) Get() T {
	target := t.ref.wait()
	v, _ := target.Value()
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// GetLeft / GetRight extend the navigation path by one decision,
// returning a new handle over the same underlying task tree (spec.md
// §4.5 getLeft()/getRight()).
func (t Treeture[T]) GetLeft() Treeture[T] {
	return Treeture[T]{ref: t.ref.derive(taskid.Left)}
}

func (t Treeture[T]) GetRight() Treeture[T] {
	return Treeture[T]{ref: t.ref.derive(taskid.Right)}
}

// Release drops this handle's reference to the underlying task. It does
// not free anything directly (Go's GC does that); it keeps the
// ref-count invariant observable, the same way internal/task.Release does.
func (t Treeture[T]) Release() { t.ref.task.Release() }

// underlying exposes the type-erased task for packages (dependency,
// worker, prec) that must build on plain Tasks. Not part of the public
// value-returning API.
func (t Treeture[T]) underlying() *task.Task { return t.ref.task }

// Done constructs an already-resolved treeture (spec.md §4.5 "a treeture
// whose underlying task has state Done ... is immediately resolvable").
func Done[T any](v T) Treeture[T] {
	t := task.NewDone(taskid.NewRoot(), v)
	return Treeture[T]{ref: &taskRef{task: t}}
}

// Spawn creates a leaf task running body with no dependencies and no
// splitter, returning it unreleased.
func Spawn[T any](body func() T) UnreleasedTreeture[T] {
	t := task.NewLeaf(taskid.NewRoot(), func() any { return body() })
	return UnreleasedTreeture[T]{ref: &taskRef{task: t}}
}

// SpawnAfter creates a leaf task that only becomes Ready once every dep
// has completed (spec.md §4.6 dependency binding).
func SpawnAfter[T any](body func() T, deps []task.Dependency) UnreleasedTreeture[T] {
	t := task.NewBlocked(taskid.NewRoot(), func() any { return body() }, deps)
	return UnreleasedTreeture[T]{ref: &taskRef{task: t}}
}

// SpawnSplittable creates a task that runs seq to completion unless the
// scheduler elects to split it, in which case splitter is invoked to
// produce the substitute subtree (spec.md §4.4 split(), used by package
// prec's recursive combinator). splitter must return a tree that has not
// been released anywhere else: Split() installs it as the substitute and
// runs it only via the original task's own Run, the same ownership rule
// Combine's a/b enforce.
func SpawnSplittable[T any](seq func() T, splitter func() UnreleasedTreeture[T]) UnreleasedTreeture[T] {
	t := task.NewSplittable(taskid.NewRoot(), func() any { return seq() }, func() *task.Task {
		return splitter().ref.task
	})
	return UnreleasedTreeture[T]{ref: &taskRef{task: t}}
}

// Combine aggregates two sub-treetures with merge, either in parallel
// (both children may run on separate workers) or sequentially (spec.md
// §4.5 combine(a,b,merge,parallel)).
//
// a and b must each be unreleased: the returned tree's Run dispatches
// them itself (as fresh children, never touched by any other scheduler
// path), so an already-running or already-released handle here would
// race the parent-pointer wiring below. Use Lift for a trivially-Done
// value (e.g. Done(v)) on either side.
func Combine[A, B, R any](a UnreleasedTreeture[A], b UnreleasedTreeture[B], merge func(A, B) R, parallel bool) UnreleasedTreeture[R] {
	t := task.NewSplit(taskid.NewRoot(), a.ref.task, b.ref.task, func(l, r any) any {
		return merge(l.(A), r.(B))
	}, parallel)
	return UnreleasedTreeture[R]{ref: &taskRef{task: t}}
}

// Lift wraps an already-resolved handle (Done, or a GetLeft/GetRight
// narrowing of one) as unreleased, so it can be passed to Combine. Only
// safe when the handle was never independently scheduled — Done's result
// never runs, so there is nothing for a parent's dispatch to race.
func Lift[T any](t Treeture[T]) UnreleasedTreeture[T] {
	return UnreleasedTreeture[T]{ref: t.ref}
}

// Sequence folds ts into a single treeture via repeated sequential Combine
// (spec.md §6 combinator `sequence`): t1 runs, then t2, and so on in
// order, with the result of the last task as the combined value. An empty
// call resolves to the zero value of T immediately.
func Sequence[T any](ts ...UnreleasedTreeture[T]) UnreleasedTreeture[T] {
	return foldCombine(ts, false)
}

// Parallel folds ts into a single treeture via repeated parallel Combine
// (spec.md §6 combinator `parallel`): every ti may run on a separate
// worker, with the result of the last task as the combined value. An
// empty call resolves to the zero value of T immediately.
func Parallel[T any](ts ...UnreleasedTreeture[T]) UnreleasedTreeture[T] {
	return foldCombine(ts, true)
}

func foldCombine[T any](ts []UnreleasedTreeture[T], parallel bool) UnreleasedTreeture[T] {
	if len(ts) == 0 {
		var zero T
		return Lift(Done(zero))
	}
	acc := ts[0]
	for _, t := range ts[1:] {
		acc = Combine(acc, t, func(_, b T) T { return b }, parallel)
	}
	return acc
}

// FromTask wraps an already-constructed internal/task.Task as a released
// Treeture, for packages (dependency, worker, prec) that assemble task
// trees directly against the type-erased layer.
func FromTask[T any](t *task.Task) Treeture[T] {
	return Treeture[T]{ref: &taskRef{task: t}}
}

// UnderlyingTask exposes the type-erased task backing a Treeture, for the
// same cross-package assembly uses as FromTask.
func UnderlyingTask[T any](t Treeture[T]) *task.Task { return t.underlying() }
