//go:build linux

package worker

import "golang.org/x/sys/unix"

// pinToCPU pins the calling OS thread to a single CPU index, per spec.md
// §4.7 ("Thread 0 is the calling ("main") thread, pinned to CPU 0;
// additional workers pin to CPU i mod num_cores"). Errors are non-fatal:
// affinity is a scheduling hint, not a correctness requirement.
func pinToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
