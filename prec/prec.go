// Package prec implements the recursive-task combinator described in
// spec.md §4.8 (C9): prec(isBase, baseCase, step) returns a callable that
// produces a treeture per invocation, backed by a splittable task whose
// sequential body recurses in-process and whose splitter spawns real
// sub-tasks through Self.
package prec

import (
	"math/rand/v2"
	"time"

	"github.com/allscale/allscale-api-sub001/internal/predictor"
	"github.com/allscale/allscale-api-sub001/treeture"
)

// Self is what step receives to make a recursive sub-call: applying it
// produces a sub-treeture rather than a plain value (spec.md §4.8 "a local
// Self that, when applied, produces sub-treetures from recursive
// invocations"). It is never released independently — step is expected to
// fold every sub-call it makes into the single UnreleasedTreeture it
// returns (typically via treeture.Combine), the same ownership rule
// treeture.Combine itself enforces.
type Self[I, O any] func(I) treeture.UnreleasedTreeture[O]

// Func is a prec-generated entry point: a callable from the domain to an
// unreleased treeture, matching this repository's convention that every
// constructor (Spawn, SpawnAfter, SpawnSplittable, Combine) hands back
// control before scheduling, leaving Release to the caller.
type Func[I, O any] func(I) treeture.UnreleasedTreeture[O]

// Def builds a single prec function: isBase decides whether an input is a
// base case, baseCase computes its value directly, and step decomposes a
// non-base input into sub-calls through Self, combining their results.
//
// "run() on a non-split execution calls baseCase" (spec.md §4.8) holds
// literally only for genuine base inputs, which are spawned as plain
// leaves up front and never see the splittable machinery at all; for a
// non-base input the scheduler chooses not to split, "sequential
// execution" means recursing through step in-process (seqEval below)
// rather than calling baseCase against an input it was never defined for.
func Def[I, O any](isBase func(I) bool, baseCase func(I) O, step func(I, Self[I, O]) treeture.UnreleasedTreeture[O]) Func[I, O] {
	g := Group(GroupMember[I, O]{
		IsBase:   isBase,
		BaseCase: baseCase,
		Step: func(i I, selves Selves[I, O]) treeture.UnreleasedTreeture[O] {
			return step(i, selves[0])
		},
	})
	return g[0]
}

// GroupMember is one function definition inside a mutually recursive
// Group: its Step receives every sibling's Self, not just its own
// (spec.md §4.8 "a generalised form group(fun1, fun2, ...) supports
// mutually recursive definitions").
type GroupMember[I, O any] struct {
	IsBase   func(I) bool
	BaseCase func(I) O
	Step     func(I, Selves[I, O]) treeture.UnreleasedTreeture[O]
}

// Selves indexes the Self of every function in a Group, letting one
// member's Step invoke any sibling (including itself) by position.
type Selves[I, O any] []Self[I, O]

// Group builds a set of mutually recursive prec functions sharing one
// domain and codomain. Entry (prec<k>) selects one as the public entry
// point; the others remain reachable only through Selves.
func Group[I, O any](members ...GroupMember[I, O]) []Func[I, O] {
	n := len(members)

	// seqEval runs the k-th member's definition entirely in-process
	// (plain recursion, no task spawned anywhere) — used as the
	// splittable task's sequential fallback body when the scheduler
	// elects not to split. selfSeq lifts each recursive result as an
	// already-Done value, since it's only ever combined sequentially in
	// the same goroutine and never exposed to a scheduler.
	var seqEval func(k int, i I) O
	seqEval = func(k int, i I) O {
		m := members[k]
		if m.IsBase(i) {
			return m.BaseCase(i)
		}
		selfSeq := make(Selves[I, O], n)
		for j := range members {
			j := j
			selfSeq[j] = func(x I) treeture.UnreleasedTreeture[O] {
				return treeture.Lift(treeture.Done(seqEval(j, x)))
			}
		}
		return m.Step(i, selfSeq).Release().Get()
	}

	calls := make([]Func[I, O], n)
	selves := make(Selves[I, O], n)
	for k := range members {
		k := k
		selves[k] = func(i I) treeture.UnreleasedTreeture[O] { return calls[k](i) }
	}
	for k, m := range members {
		k, m := k, m
		calls[k] = func(i I) treeture.UnreleasedTreeture[O] {
			if m.IsBase(i) {
				return treeture.Spawn(func() O { return m.BaseCase(i) })
			}
			return treeture.SpawnSplittable(
				func() O { return seqEval(k, i) },
				func() treeture.UnreleasedTreeture[O] { return m.Step(i, selves) },
			)
		}
	}
	return calls
}

// Entry selects the k-th function of a group as the public entry point
// (spec.md §4.8 prec<k>(group)).
func Entry[I, O any](group []Func[I, O], k int) Func[I, O] { return group[k] }

// Alternative is one candidate implementation among which Pick chooses
// per invocation.
type Alternative[I, O any] struct {
	IsBase   func(I) bool
	BaseCase func(I) O
	Step     func(I, Self[I, O]) treeture.UnreleasedTreeture[O]
}

// Pick builds a callable that randomly chooses among alts per invocation,
// weighted by each alternative's own predicted base-case cost (spec.md
// §4.8: "the calibration policy is random with weighting by the
// predictor") — an alternative the predictor has no estimate for gets
// weight 1, the weight of an alternative predicted to take one
// nanosecond, so it is strongly favoured over alternatives with real
// timings until it has run.
func Pick[I, O any](alts ...Alternative[I, O]) Func[I, O] {
	if len(alts) == 0 {
		panic("prec: pick requires at least one alternative")
	}
	pred := predictor.New(0, 0)
	defs := make([]Func[I, O], len(alts))
	for i, a := range alts {
		i, a := i, a
		timedBase := func(x I) O {
			start := time.Now()
			v := a.BaseCase(x)
			pred.RegisterTime(i, time.Since(start))
			return v
		}
		defs[i] = Def(a.IsBase, timedBase, a.Step)
	}

	return func(i I) treeture.UnreleasedTreeture[O] {
		return defs[pickWeighted(pred, len(alts))](i)
	}
}

// pickWeighted chooses an index in [0, n) with probability proportional to
// 1/predicted-time, treating an unobserved alternative as weight 1 (same
// as a freshly-observed one of unit cost) rather than starving it.
func pickWeighted(pred *predictor.Predictor, n int) int {
	weights := make([]float64, n)
	var total float64
	for i := range weights {
		if !pred.Observed(i) {
			weights[i] = 1
		} else {
			d := pred.PredictTime(i)
			if d <= 0 {
				d = time.Nanosecond
			}
			weights[i] = 1 / float64(d)
		}
		total += weights[i]
	}
	r := rand.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return i
		}
	}
	return n - 1
}
