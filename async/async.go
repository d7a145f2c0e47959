// Package async provides the one-line async(f) helper from the original
// AllScale API's async.h (SPEC_FULL.md §12 supplement 3): a job run as a
// single base-case task with no step ever reached, since there is nothing
// to recursively split.
package async

import "github.com/allscale/allscale-api-sub001/treeture"

// Async runs action as a single unsplittable task, handing back the same
// unreleased-handle convention every other constructor in this repository
// uses (Spawn, SpawnAfter, SpawnSplittable, Combine, prec.Func).
func Async[T any](action func() T) treeture.UnreleasedTreeture[T] {
	return treeture.Spawn(action)
}
