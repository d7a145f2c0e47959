// Package task implements the task object and its six-state lifecycle
// from spec.md §3.2 and §4.4 (C5): New/Blocked/Ready/Running/Aggregating/
// Done, parent/child/substitute relationships, and reference-counted
// lifetime.
//
// Result values are type-erased (any) at this layer: the scheduler only
// ever moves opaque Tasks through the deque and blocked pool, the same way
// github.com/joeycumines/go-eventloop's Loop moves opaque
// Task{Runnable func()} values through its ingress queues
// (eventloop/loop.go) regardless of what a submitter's closure captures.
// The typed treeture package (package treeture) is the layer that knows T.
package task

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/allscale/allscale-api-sub001/internal/taskid"
)

// Dependency is anything a Task can wait on: a predecessor that is either
// Done or not yet. Both plain tasks and treeture handles (which may still
// need path-narrowing, see treeture.narrow) implement this.
type Dependency interface {
	// Done reports whether the predecessor has completed. Must be
	// monotone: once true, always true (spec.md §3.2 "a task's state is
	// monotone towards Done").
	Done() bool
}

// Kind tags which body variant a Task carries, per the "inheritance →
// tagged variants" design note in spec.md §9.
type Kind uint8

const (
	// KindLeaf runs a single function to completion; no children.
	KindLeaf Kind = iota
	// KindSplit has already been decomposed into left/right sub-tasks
	// whose results are combined by a merge function.
	KindSplit
	// KindSplittable carries both a sequential body and a splitter; the
	// scheduler decides at run time which to use (split() installs a
	// KindSplit substitute).
	KindSplittable
)

// Task is the runtime's scheduling unit. Exactly one of the invariants in
// spec.md §3.2 holds for its body depending on Kind and whether a
// substitute has been installed.
type Task struct {
	id    taskid.ID
	state *fastState

	kind Kind

	// KindLeaf / the "baseCase" fallback for a non-split KindSplittable.
	seq func() any

	// KindSplittable only: produces the substitute task tree when the
	// scheduler elects to split (spec.md §4.4 split()).
	splitter func() *Task

	// KindSplit only (also installed as the substitute of a split
	// KindSplittable): children and how to combine their results.
	left, right *Task
	merge       func(l, r any) any
	parallel    bool

	// substitute is installed by split(); once non-nil, every external
	// observation of this Task forwards to it (spec.md §3.2, §4.4).
	substitute atomic.Pointer[Task]

	// parent is a non-owning back-reference, set when this Task is
	// installed as a child (spec.md §3.5: "children's parent pointer is
	// a weak back-reference"). Go's tracing GC makes an owning pointer
	// here perfectly safe memory-wise; it is documented as non-owning
	// because the lifetime contract (parent always outlives a live
	// child, since it waits for it in Running→Aggregating) is what
	// matters, not reference counting.
	parent *Task

	aliveChildren atomic.Uint32

	// deps are cleared once observed Ready (spec.md §4.6 "Binding").
	depMu sync.Mutex
	deps  []Dependency

	// refCount: treeture handles own a reference; memory (here: the
	// Task's dependency/callback retention) is eligible for release once
	// it hits zero and state is Done (spec.md §3.5, §5).
	refCount atomic.Int32

	resultMu sync.Mutex
	result   any

	// onDone are callbacks registered through OnDone, fired exactly once
	// right after the CAS into Done. The parent is notified separately,
	// through notifyParent.
	onDone []func()
}

// NewLeaf constructs a leaf task (no splitter) with no dependencies
// (state starts Ready). body must not panic under normal operation;
// spec.md §7 treats a body panic as fatal.
func NewLeaf(id taskid.ID, body func() any) *Task {
	t := &Task{id: id, kind: KindLeaf, seq: body, state: newFastState(Ready)}
	t.refCount.Store(1)
	return t
}

// NewSplittable constructs a task carrying both a sequential body and a
// splitter (spec.md §4.8, the prec combinator's unit of work).
func NewSplittable(id taskid.ID, seq func() any, splitter func() *Task) *Task {
	t := &Task{id: id, kind: KindSplittable, seq: seq, splitter: splitter, state: newFastState(Ready)}
	t.refCount.Store(1)
	return t
}

// NewSplit constructs an already-decomposed task whose two children are
// combined by merge (spec.md §4.5 combine(a,b,merge,parallel)).
func NewSplit(id taskid.ID, left, right *Task, merge func(l, r any) any, parallel bool) *Task {
	t := &Task{
		id: id, kind: KindSplit, left: left, right: right, merge: merge, parallel: parallel,
		state: newFastState(Ready),
	}
	t.refCount.Store(1)
	left.setParent(t)
	right.setParent(t)
	t.aliveChildren.Store(2)
	return t
}

// NewDone constructs an already-completed task carrying v (treeture.Done(v)).
func NewDone(id taskid.ID, v any) *Task {
	t := &Task{id: id, kind: KindLeaf, state: newFastState(Done), result: v}
	t.refCount.Store(1)
	return t
}

// NewBlocked constructs a task that starts in Blocked, becoming Ready once
// every dependency is Done (spec.md §4.6 "a task created with deps starts
// in New"; here we skip the vacuous New state and enter Blocked/Ready
// directly since no external observer can see a Task before it is bound).
func NewBlocked(id taskid.ID, body func() any, deps []Dependency) *Task {
	t := &Task{id: id, kind: KindLeaf, seq: body, deps: deps}
	if allDone(deps) {
		t.state = newFastState(Ready)
		t.deps = nil
	} else {
		t.state = newFastState(Blocked)
	}
	t.refCount.Store(1)
	return t
}

func allDone(deps []Dependency) bool {
	for _, d := range deps {
		if !d.Done() {
			return false
		}
	}
	return true
}

// ID returns the task identifier.
func (t *Task) ID() taskid.ID { return t.id }

// resolved returns the task this Task forwards to: itself, unless a
// substitute has been installed, in which case the substitute's own
// resolved() (recursively, though in practice one hop suffices since
// splittable tasks only ever substitute once).
func (t *Task) resolved() *Task {
	cur := t
	for {
		sub := cur.substitute.Load()
		if sub == nil {
			return cur
		}
		cur = sub
	}
}

// State returns the current lifecycle state, following any substitute.
func (t *Task) State() State {
	return t.resolved().state.Load()
}

// Done reports whether the task (or its substitute chain) has completed.
// Implements Dependency.
func (t *Task) Done() bool {
	return t.State() == Done
}

// IsReady reports whether every dependency is Done, flipping Blocked→Ready
// on first observation (spec.md §4.4 isReady()).
func (t *Task) IsReady() bool {
	r := t.resolved()
	if r.state.Load() != Blocked {
		return r.state.Load() >= Ready
	}
	r.depMu.Lock()
	ready := allDone(r.deps)
	if ready {
		r.deps = nil
	}
	r.depMu.Unlock()
	if ready {
		r.state.TryTransition(Blocked, Ready)
	}
	return ready
}

func (t *Task) setParent(p *Task) { t.parent = p }

// Kind returns the body-variant tag, following substitution.
func (t *Task) Kind() Kind { return t.resolved().kind }

// Splittable reports whether this task (post-substitution) still carries
// a splitter that has not yet been exercised.
func (t *Task) Splittable() bool {
	r := t.resolved()
	return r.kind == KindSplittable
}

// Left / Right expose a split task's children once they exist — used by
// treeture path-narrowing (spec.md §4.5.1). They return nil if the task
// has not (yet) been split.
func (t *Task) Left() *Task {
	r := t.resolved()
	if r.kind == KindSplit {
		return r.left
	}
	return nil
}

func (t *Task) Right() *Task {
	r := t.resolved()
	if r.kind == KindSplit {
		return r.right
	}
	return nil
}

// Split invokes the splitter (only legal on a Ready KindSplittable task),
// installs the produced task tree as the substitute, and reparents it.
// Illegal calls (already split, running, or a leaf) panic — spec.md §4.4
// "Illegal if already running" / programming errors are fatal per §7.
func (t *Task) Split() {
	r := t.resolved()
	if r.state.Load() != Ready {
		panic(fmt.Sprintf("task: split() on non-Ready task %s (state=%s)", r.id, r.state.Load()))
	}
	if r.kind != KindSplittable {
		panic(fmt.Sprintf("task: split() on non-splittable task %s", r.id))
	}
	sub := r.splitter()
	if sub == nil {
		panic(fmt.Sprintf("task: splitter produced nil for task %s", r.id))
	}
	sub.setParent(r)
	if !r.substitute.CompareAndSwap(nil, sub) {
		panic(fmt.Sprintf("task: split() called twice on task %s", r.id))
	}
}

// Run executes the task exactly once: for a leaf (or a splittable task
// that was never split) it runs the sequential body; for a split task it
// transitions to Running and dispatches both children, and the task
// completes through aggregation once both have notified it via childDone
// (spec.md §4.4 run()).
//
// runChild is supplied by the scheduler (internal/deque + worker) to
// enqueue/execute a child task. Run hands children to it only when the
// split is parallel and runChild is non-nil; otherwise it runs each child
// inline on the calling goroutine, left before right.
func (t *Task) Run(runChild func(child *Task)) {
	r := t.resolved()
	if !r.state.TryTransition(Ready, Running) {
		panic(fmt.Sprintf("task: run() on non-Ready task %s (state=%s)", r.id, r.state.Load()))
	}

	switch r.kind {
	case KindLeaf, KindSplittable:
		v := r.seq()
		r.finish(v)

	case KindSplit:
		// A child that is already Done (e.g. treeture.Done(v) lifted into
		// a combine) never runs and so never calls notifyParent on its
		// own; dispatch always short-circuits that case regardless of
		// parallel/sequential mode, so runChild only ever receives
		// genuinely fresh (Ready or Blocked) children — never one that's
		// already mid-flight or finished elsewhere.
		dispatch := func(child *Task) {
			if child.Done() {
				child.notifyParent()
				return
			}
			if r.parallel && runChild != nil {
				runChild(child)
			} else {
				child.Run(nil)
			}
		}
		if r.parallel && runChild != nil {
			dispatch(r.right)
			dispatch(r.left)
		} else {
			dispatch(r.left)
			dispatch(r.right)
		}
		// Children notify us via childDone, and whichever notification
		// brings aliveChildren to zero runs aggregate; when both finished
		// synchronously (the sequential path, or an already-Done child)
		// that has already happened by this point.

	default:
		panic(fmt.Sprintf("task: run() unknown kind %d", r.kind))
	}
}

// runInline executes a child synchronously on the current goroutine,
// notifying the parent directly when the child is already Done. Run's own
// dispatch performs these steps inline for the sequential path and does
// not call this method.
func (t *Task) runInline(child *Task) {
	if child.State() == Done {
		child.notifyParent()
		return
	}
	child.Run(nil)
}

// finish transitions Running→Done, records the result, and notifies the
// parent exactly once (spec.md §4.4 finish()).
func (t *Task) finish(v any) {
	t.resultMu.Lock()
	t.result = v
	t.resultMu.Unlock()
	if !t.state.TryTransition(Running, Done) {
		panic(fmt.Sprintf("task: finish() on task %s not Running (state=%s)", t.id, t.state.Load()))
	}
	t.runCallbacks()
	t.notifyParent()
}

func (t *Task) notifyParent() {
	if t.parent != nil {
		t.parent.childDone(t)
	}
}

// childDone decrements aliveChildren; the child that brings it to zero
// triggers aggregation (spec.md §4.4 childDone()). Order of children
// completing does not affect correctness. A notification from this task's
// installed substitute means this task itself has completed, so it is
// passed on to this task's own parent instead.
func (t *Task) childDone(child *Task) {
	if child != nil && t.substitute.Load() == child {
		t.notifyParent()
		return
	}
	if t.aliveChildren.Add(^uint32(0)) == 0 { // atomic decrement
		t.aggregate()
	}
}

// aggregate runs the merge function — invoked only by the thread that
// observed the final child completion, so it runs without extra
// synchronization around its inputs (spec.md §4.4 aggregate()) — then
// transitions Aggregating→Done.
func (t *Task) aggregate() {
	if !t.state.TryTransition(Running, Aggregating) {
		// Two children may race to observe aliveChildren hitting zero
		// only once by construction (atomic decrement), so this must
		// always succeed; a failure means a lifecycle bug upstream.
		panic(fmt.Sprintf("task: aggregate() on task %s not Running (state=%s)", t.id, t.state.Load()))
	}
	lv, _ := t.left.Value()
	rv, _ := t.right.Value()
	v := t.merge(lv, rv)

	t.resultMu.Lock()
	t.result = v
	t.resultMu.Unlock()

	if !t.state.TryTransition(Aggregating, Done) {
		panic(fmt.Sprintf("task: aggregate() could not finalize task %s", t.id))
	}
	t.runCallbacks()
	t.notifyParent()
}

func (t *Task) runCallbacks() {
	t.resultMu.Lock()
	cbs := t.onDone
	t.onDone = nil
	t.resultMu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

// OnDone registers a callback to run once the task (following
// substitution) reaches Done. If it is already Done, cb runs immediately
// on the calling goroutine.
func (t *Task) OnDone(cb func()) {
	r := t.resolved()
	r.resultMu.Lock()
	if r.state.Load() == Done {
		r.resultMu.Unlock()
		cb()
		return
	}
	r.onDone = append(r.onDone, cb)
	r.resultMu.Unlock()
}

// Value returns the task's result and whether it is available (Done).
func (t *Task) Value() (any, bool) {
	r := t.resolved()
	if r.state.Load() != Done {
		return nil, false
	}
	r.resultMu.Lock()
	defer r.resultMu.Unlock()
	return r.result, true
}

// AddRef increments the external-handle reference count (spec.md §3.2
// ref_count, §3.5).
func (t *Task) AddRef() {
	t.refCount.Add(1)
}

// Release decrements the reference count. It does not itself free
// anything (Go's GC reclaims memory); it exists so the ref-count
// invariant from spec.md §3.2/§5 ("memory reclamation: freed when
// ref_count drops to zero and state is Done") is observable and testable.
func (t *Task) Release() int32 {
	return t.refCount.Add(-1)
}

// RefCount returns the current external reference count.
func (t *Task) RefCount() int32 {
	return t.refCount.Load()
}

// DebugString renders a short diagnostic line for a task, used by the
// pool-wide dump described in SPEC_FULL.md §12.4.
func (t *Task) DebugString() string {
	r := t.resolved()
	return fmt.Sprintf("%s kind=%d state=%s alive_children=%d", r.id, r.kind, r.state.Load(), r.aliveChildren.Load())
}
