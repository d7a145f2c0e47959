package worker

import (
	"sync/atomic"
	"testing"

	"github.com/allscale/allscale-api-sub001/treeture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPool_ManyWorkersStealConcurrently_NoDuplicateNoLoss drives many
// independent root tasks through a multi-worker pool so that round-robin
// distribution, random-victim stealing (spec.md §4.7), and blocked-pool
// draining all race against each other under -race: every task must run
// exactly once and contribute exactly once to the shared counter.
func TestPool_ManyWorkersStealConcurrently_NoDuplicateNoLoss(t *testing.T) {
	p := NewPool(WithNumWorkers(8), WithDequeCapacity(2))
	require.NoError(t, p.Start())
	defer p.Shutdown()

	const n = 500
	var ran atomic.Int64
	handles := make([]treeture.Treeture[int], n)
	for i := 0; i < n; i++ {
		i := i
		handles[i] = treeture.Spawn(func() int {
			ran.Add(1)
			return i
		}).Release()
	}
	for i, h := range handles {
		assert.Equal(t, i, h.Get())
	}
	assert.Equal(t, int64(n), ran.Load())
}

// TestPool_ConcurrentSplitCombine_UnderTinyDeques forces heavy stealing by
// using a deque capacity small enough that most recursive Fibonacci calls
// either overflow into inline execution or are stolen from another
// worker's deque, exercising the full split/steal/aggregate path
// concurrently.
func TestPool_ConcurrentSplitCombine_UnderTinyDeques(t *testing.T) {
	p := NewPool(WithNumWorkers(8), WithDequeCapacity(2))
	require.NoError(t, p.Start())
	defer p.Shutdown()

	var fib func(n int) treeture.UnreleasedTreeture[int]
	fib = func(n int) treeture.UnreleasedTreeture[int] {
		if n < 2 {
			return treeture.Spawn(func() int { return n })
		}
		a := fib(n - 1)
		b := fib(n - 2)
		return treeture.Combine(a, b, func(x, y int) int { return x + y }, true)
	}

	var results [10]int
	handles := make([]treeture.Treeture[int], 10)
	for i := 0; i < 10; i++ {
		handles[i] = fib(16).Release()
	}
	for i, h := range handles {
		results[i] = h.Get()
	}
	for _, r := range results {
		assert.Equal(t, 987, r)
	}
}
