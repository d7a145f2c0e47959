//go:build !linux

package worker

// pinToCPU is a no-op outside Linux: golang.org/x/sys/unix's
// SchedSetaffinity has no portable equivalent, and affinity is a
// scheduling hint rather than a correctness requirement (spec.md §4.7).
func pinToCPU(cpu int) error { return nil }
