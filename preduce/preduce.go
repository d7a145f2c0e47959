// Package preduce implements the original AllScale API's preduce
// algorithm (SPEC_FULL.md §12 supplement 2, grounded on
// original_source/.../user/algorithm/preduce.cc): reducing a slice in
// parallel by recursively bisecting it and combining halves, plus the
// fold/reduce/init variant for building up a non-element accumulator type.
//
// spec.md marks preduce out of scope as a core collaborator but obligates
// the runtime to the contract preduce exercises end-to-end (split,
// combine, sequential fallback); this package lives outside internal/ and
// is built only on the exposed treeture API, adding no scope to the core.
package preduce

import "github.com/allscale/allscale-api-sub001/treeture"

// Reduce combines every element of data with combine, splitting the slice
// recursively so halves can run in parallel. An empty slice resolves to
// the zero value of T without spawning any task.
func Reduce[T any](data []T, combine func(a, b T) T) treeture.UnreleasedTreeture[T] {
	if len(data) == 0 {
		var zero T
		return treeture.Lift(treeture.Done(zero))
	}
	return reduceRange(data, combine)
}

func reduceRange[T any](data []T, combine func(a, b T) T) treeture.UnreleasedTreeture[T] {
	if len(data) == 1 {
		v := data[0]
		return treeture.Spawn(func() T { return v })
	}
	mid := len(data) / 2
	left, right := data[:mid], data[mid:]
	return treeture.SpawnSplittable(
		func() T { return seqReduce(data, combine) },
		func() treeture.UnreleasedTreeture[T] {
			return treeture.Combine(reduceRange(left, combine), reduceRange(right, combine), combine, true)
		},
	)
}

func seqReduce[T any](data []T, combine func(a, b T) T) T {
	acc := data[0]
	for _, v := range data[1:] {
		acc = combine(acc, v)
	}
	return acc
}

// Fold builds an accumulator of type S by folding every element of data
// into it, then reduces the per-chunk accumulators together — the
// two-phase form the original uses when the reduced type differs from the
// element type (e.g. tracking a running max alongside a sum and a count).
func Fold[T, S any](data []T, fold func(T, *S), reduce func(a, b S) S, init func() S) treeture.UnreleasedTreeture[S] {
	if len(data) == 0 {
		return treeture.Lift(treeture.Done(init()))
	}
	return foldRange(data, fold, reduce, init)
}

func foldRange[T, S any](data []T, fold func(T, *S), reduce func(a, b S) S, init func() S) treeture.UnreleasedTreeture[S] {
	if len(data) == 1 {
		v := data[0]
		return treeture.Spawn(func() S {
			s := init()
			fold(v, &s)
			return s
		})
	}
	mid := len(data) / 2
	left, right := data[:mid], data[mid:]
	return treeture.SpawnSplittable(
		func() S { return seqFold(data, fold, init) },
		func() treeture.UnreleasedTreeture[S] {
			return treeture.Combine(foldRange(left, fold, reduce, init), foldRange(right, fold, reduce, init), reduce, true)
		},
	)
}

func seqFold[T, S any](data []T, fold func(T, *S), init func() S) S {
	s := init()
	for _, v := range data {
		fold(v, &s)
	}
	return s
}
