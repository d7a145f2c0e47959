// Package dependency implements the dependency sets of spec.md §4.6 (C7):
// plain after(...)/no_dependencies binding, plus the one-on-one and
// neighborhood splitting algebra used to keep an adaptive pfor loop in
// sync with a predecessor loop as both recursively split.
//
// Both synchronization kinds piggyback on treeture's own path-narrowing
// (treeture.Treeture.GetLeft/GetRight): "retain the current dependency
// conservatively until the predecessor has split deeply enough" falls out
// for free, since a treeture handle whose path hasn't fully narrowed yet
// simply reports Done() once its narrowest-available ancestor is Done.
package dependency

import (
	"github.com/allscale/allscale-api-sub001/internal/task"
	"github.com/allscale/allscale-api-sub001/treeture"
)

// After builds a dependency set from a handful of treeture handles
// (spec.md §4.6 after(t1, t2, ...)). Treeture[T] already implements
// task.Dependency, so this is mostly a readability alias.
func After(deps ...task.Dependency) []task.Dependency { return deps }

// NoDependencies is the empty dependency set: a task bound to it is
// immediately Ready.
var NoDependencies []task.Dependency

// LoopReference names a sub-range of an adaptive loop's iteration space
// together with the treeture of its (root or sub-tree) loop task, per
// spec.md §4.5.2 / §4.6 ("A loop_reference<I> carries (range [a,b) over
// iterator type I, treeture to the root loop task)").
type LoopReference[I any] struct {
	From, To I
	Task     treeture.Treeture[any]
}

// OneOnOneDep makes iteration i of a successor loop wait for iteration i
// of a predecessor loop (spec.md §4.6.1). During recursive splitting of
// the successor, Split below follows the predecessor's own split in
// lock-step.
type OneOnOneDep[I any] struct {
	pred treeture.Treeture[any]
}

// OneOnOne builds a dependency pinned to the root of pred.
func OneOnOne[I any](pred LoopReference[I]) OneOnOneDep[I] {
	return OneOnOneDep[I]{pred: pred.Task}
}

// Done reports whether the (possibly not-yet-fully-narrowed) predecessor
// sub-task this dependency currently points at has completed.
func (d OneOnOneDep[I]) Done() bool { return d.pred.Done() }

// Split produces the left/right dependency for the successor's own two
// children: left follows the predecessor's left sub-task, right follows
// its right. If the predecessor hasn't split that deeply yet, the
// returned handle's path simply stays partially narrowed, over-
// approximating conservatively until it has (spec.md §4.6.1).
func (d OneOnOneDep[I]) Split() (left, right OneOnOneDep[I]) {
	return OneOnOneDep[I]{pred: d.pred.GetLeft()}, OneOnOneDep[I]{pred: d.pred.GetRight()}
}

// ref is one slot of a neighborhood triple: either a real predecessor
// sub-task reference, or an empty sentinel meaning "no iteration on that
// side" (spec.md §4.6.2).
type ref[I any] struct {
	present bool
	pred    treeture.Treeture[any]
}

func emptyRef[I any]() ref[I] { return ref[I]{} }

func (r ref[I]) done() bool {
	return !r.present || r.pred.Done()
}

func (r ref[I]) left() ref[I] {
	if !r.present {
		return r
	}
	return ref[I]{present: true, pred: r.pred.GetLeft()}
}

func (r ref[I]) right() ref[I] {
	if !r.present {
		return r
	}
	return ref[I]{present: true, pred: r.pred.GetRight()}
}

// NeighborhoodDep makes iteration i of a successor loop wait for
// iterations i-1, i, i+1 of a predecessor loop, represented as the triple
// (a, b, c) from spec.md §4.6.2.
type NeighborhoodDep[I any] struct {
	a, b, c ref[I]
}

// Neighborhood builds the root neighborhood dependency: a and c start as
// empty sentinels, b is the whole predecessor.
func Neighborhood[I any](pred LoopReference[I]) NeighborhoodDep[I] {
	return NeighborhoodDep[I]{
		a: emptyRef[I](),
		b: ref[I]{present: true, pred: pred.Task},
		c: emptyRef[I](),
	}
}

// Done reports whether every present slot of the triple has completed;
// empty sentinels are vacuously done.
func (d NeighborhoodDep[I]) Done() bool {
	return d.a.done() && d.b.done() && d.c.done()
}

// Split implements spec.md §4.6.2's splitting rule. Applying the interior
// formula unconditionally also reproduces the root case: a root triple
// has a and c already empty, and an empty ref's left()/right() are the
// identity, so left=(a.right, b.left, b.right) collapses to
// (empty, pred.left, pred.right) exactly as the root rule specifies.
func (d NeighborhoodDep[I]) Split() (left, right NeighborhoodDep[I]) {
	left = NeighborhoodDep[I]{a: d.a.right(), b: d.b.left(), c: d.b.right()}
	right = NeighborhoodDep[I]{a: d.b.left(), b: d.b.right(), c: d.c.left()}
	return
}
