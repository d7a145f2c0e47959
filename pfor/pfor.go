// Package pfor implements the adaptive-loop glue described in spec.md
// §3.4/§4.6.1/§4.6.2/C10: running body(i) for every i in a range,
// recursively splitting the range the same way a splittable task does, so
// that a dependency set built with package dependency can be split in
// lock-step with the loop itself.
//
// pfor follows the same three-way shape package prec uses (leaf / seq
// fallback / real split via Combine) but does not build on prec.Def
// directly: each leaf here must be bound to a per-range Dependency via
// treeture.SpawnAfter, and prec's baseCase signature (I -> O, invoked
// inside a dependency-free Spawn) has no seam for that. The recursion
// itself is written out directly against treeture/internal/task instead.
package pfor

import (
	"github.com/allscale/allscale-api-sub001/dependency"
	"github.com/allscale/allscale-api-sub001/internal/task"
	"github.com/allscale/allscale-api-sub001/treeture"
)

// Stepper generalizes the iteration domain beyond a plain scalar integer
// (SPEC_FULL.md §12 supplement 1 — the original source's pfor supports
// multi-dimensional ranges, not just 1-D). Mid reports whether [self, to)
// still spans more than one unit and, if so, a split point strictly
// between them.
type Stepper[I any] interface {
	Mid(to I) (mid I, ok bool)
}

// Int is the 1-D integer range domain pfor is exercised against; a
// higher-rank point type could satisfy Stepper the same way.
type Int int

// Mid bisects [i, to); a range of one unit or less is not splittable.
func (i Int) Mid(to Int) (Int, bool) {
	if to-i <= 1 {
		return 0, false
	}
	return i + (to-i)/2, true
}

// Dep is the shape both dependency.OneOnOneDep[I] and
// dependency.NeighborhoodDep[I] already satisfy: Done for readiness
// binding on a leaf, Split to follow this loop's own range split in
// lock-step (spec.md §4.6.1 "the dependency set splits in lock-step").
type Dep[D any] interface {
	task.Dependency
	Split() (left, right D)
}

// none is the zero-dependency case (spec.md §4.6 no_dependencies): always
// satisfied, splits into itself.
type none struct{}

func (none) Done() bool           { return true }
func (d none) Split() (none, none) { return d, d }

// For runs body(i) for every i in [from, to) with no dependency binding,
// splitting the range recursively and running sub-ranges in parallel.
func For[I Stepper[I]](from, to I, body func(I)) dependency.LoopReference[I] {
	return forWithDep[I, none](from, to, none{}, func(i I, _ none) { body(i) })
}

// ForAfter runs body(i, dep) for every i in [from, to), binding each leaf
// to dep (split alongside the range via dep.Split, spec.md §4.6.1/§4.6.2)
// so that adaptive successor/predecessor loops stay correctly ordered.
func ForAfter[I Stepper[I], D Dep[D]](from, to I, dep D, body func(I, D)) dependency.LoopReference[I] {
	return forWithDep[I, D](from, to, dep, body)
}

func forWithDep[I Stepper[I], D Dep[D]](from, to I, dep D, body func(I, D)) dependency.LoopReference[I] {
	var build func(a, b I, d D) treeture.UnreleasedTreeture[any]
	build = func(a, b I, d D) treeture.UnreleasedTreeture[any] {
		mid, splittable := a.Mid(b)
		if !splittable {
			return treeture.SpawnAfter(func() any { body(a, d); return nil }, []task.Dependency{d})
		}
		return treeture.SpawnSplittable(
			func() any { runSequential(a, b, d, body); return nil },
			func() treeture.UnreleasedTreeture[any] {
				dl, dr := d.Split()
				return treeture.Combine(build(a, mid, dl), build(mid, b, dr), func(_, _ any) any { return nil }, true)
			},
		)
	}

	// An empty range [from, from) runs no body at all.
	if any(from) == any(to) {
		return dependency.LoopReference[I]{From: from, To: to, Task: treeture.Done[any](nil)}
	}
	whole := build(from, to, dep).Release()
	return dependency.LoopReference[I]{From: from, To: to, Task: whole}
}

// runSequential is the splittable task's in-process fallback: it recurses
// down to leaves itself rather than spawning sub-tasks, still binding each
// leaf through the dependency machinery so ordering against a predecessor
// loop holds regardless of whether the scheduler ever actually splits.
func runSequential[I Stepper[I], D Dep[D]](a, b I, d D, body func(I, D)) {
	mid, splittable := a.Mid(b)
	if !splittable {
		treeture.SpawnAfter(func() any { body(a, d); return nil }, []task.Dependency{d}).Release().Get()
		return
	}
	dl, dr := d.Split()
	runSequential(a, mid, dl, body)
	runSequential(mid, b, dr, body)
}
