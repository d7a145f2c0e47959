// Package integration exercises the end-to-end scenarios and universal
// invariants of spec.md §8 against a live worker.Pool, as opposed to the
// per-package unit tests which mostly run without one (treeture's
// no-scheduler-installed fallback, prec/pfor's sequential path).
package integration

import (
	"testing"
	"time"

	"github.com/allscale/allscale-api-sub001/dependency"
	"github.com/allscale/allscale-api-sub001/internal/task"
	"github.com/allscale/allscale-api-sub001/pfor"
	"github.com/allscale/allscale-api-sub001/prec"
	"github.com/allscale/allscale-api-sub001/treeture"
	"github.com/allscale/allscale-api-sub001/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T, n int) *worker.Pool {
	t.Helper()
	p := worker.NewPool(worker.WithNumWorkers(n), worker.WithAffinity(false))
	require.NoError(t, p.Start())
	t.Cleanup(func() { require.NoError(t, p.Shutdown()) })
	return p
}

// E1 — Fibonacci.
func TestE1_Fibonacci(t *testing.T) {
	newPool(t, 4)

	fib := prec.Def(
		func(x int) bool { return x < 2 },
		func(x int) int { return x },
		func(x int, self prec.Self[int, int]) treeture.UnreleasedTreeture[int] {
			a := self(x - 1)
			b := self(x - 2)
			return treeture.Combine(a, b, func(p, q int) int { return p + q }, true)
		},
	)

	want := []int{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144, 233, 377, 610, 987, 1597, 2584, 4181, 6765}
	for x, w := range want {
		got := fib(x).Release().Get()
		require.Equalf(t, w, got, "fib(%d)", x)
	}
}

// E2 — Sequential composition side effects.
func TestE2_SequentialComposition(t *testing.T) {
	newPool(t, 4)

	var v [3]int
	a := treeture.Spawn(func() any { v[0] = 1; return nil })
	b := treeture.Spawn(func() any {
		require.Equal(t, 1, v[0])
		v[1] = 2
		return nil
	})
	c := treeture.Spawn(func() any {
		require.Equal(t, 2, v[1])
		v[2] = 3
		return nil
	})

	treeture.Sequence(a, b, c).Release().Get()
	assert.Equal(t, [3]int{1, 2, 3}, v)
}

// E3 — Parallel independent writes.
func TestE3_ParallelComposition(t *testing.T) {
	newPool(t, 4)

	var v [3]int
	a := treeture.Spawn(func() any { v[0] = 1; return nil })
	b := treeture.Spawn(func() any { v[1] = 2; return nil })
	c := treeture.Spawn(func() any { v[2] = 3; return nil })

	treeture.Parallel(a, b, c).Release().Get()
	assert.Equal(t, [3]int{1, 2, 3}, v)
}

// E4 — after-dependency chain.
func TestE4_AfterDependencyChain(t *testing.T) {
	newPool(t, 4)

	x := 0
	a := treeture.Spawn(func() any {
		require.Equal(t, 0, x)
		x = 1
		return nil
	}).Release()
	b := treeture.SpawnAfter(func() any {
		require.Equal(t, 1, x)
		x = 2
		return nil
	}, dependency.After(a)).Release()
	c := treeture.SpawnAfter(func() any {
		require.Equal(t, 2, x)
		x = 3
		return nil
	}, dependency.After(a, b)).Release()

	c.Get()
	assert.Equal(t, 3, x)
}

// E5 — pfor one-on-one staging, run against a live pool so the chain
// actually exercises cross-worker ordering rather than just the
// sequential fallback pfor/pfor_test.go already covers.
func TestE5_PforOneOnOneStaging(t *testing.T) {
	newPool(t, 4)

	const n = 64
	data := make([]int, n)

	a := pfor.For(pfor.Int(0), pfor.Int(n), func(i pfor.Int) { data[i] = 1 })
	b := pfor.ForAfter(pfor.Int(0), pfor.Int(n), dependency.OneOnOne(a), func(i pfor.Int, _ dependency.OneOnOneDep[pfor.Int]) {
		require.Equal(t, 1, data[i])
		data[i] = 2
	})
	c := pfor.ForAfter(pfor.Int(0), pfor.Int(n), dependency.OneOnOne(b), func(i pfor.Int, _ dependency.OneOnOneDep[pfor.Int]) {
		require.Equal(t, 2, data[i])
		data[i] = 3
	})

	c.Task.Get()
	for i := 0; i < n; i++ {
		assert.Equalf(t, 3, data[i], "index %d", i)
	}
}

// E6 — N-Queens.
type queensState struct {
	n    int
	cols []int
}

func (s queensState) place(c int) queensState {
	cols := make([]int, len(s.cols), len(s.cols)+1)
	copy(cols, s.cols)
	cols = append(cols, c)
	return queensState{n: s.n, cols: cols}
}

func (s queensState) safe(c int) bool {
	row := len(s.cols)
	for r, col := range s.cols {
		if col == c || row-r == c-col || row-r == col-c {
			return false
		}
	}
	return true
}

func TestE6_NQueens(t *testing.T) {
	newPool(t, 4)

	countPlacements := prec.Def(
		func(s queensState) bool { return len(s.cols) == s.n },
		func(queensState) int { return 1 },
		func(s queensState, self prec.Self[queensState, int]) treeture.UnreleasedTreeture[int] {
			acc := treeture.Lift(treeture.Done(0))
			for c := 0; c < s.n; c++ {
				if s.safe(c) {
					acc = treeture.Combine(acc, self(s.place(c)), func(a, b int) int { return a + b }, true)
				}
			}
			return acc
		},
	)

	want := []int{1, 0, 0, 2, 10, 4, 40, 92, 352, 724}
	for i, w := range want {
		n := i + 1
		got := countPlacements(queensState{n: n}).Release().Get()
		assert.Equalf(t, w, got, "n=%d", n)
	}
}

// Invariant 1 — state monotonicity.
func TestInvariant_StateMonotonicity(t *testing.T) {
	newPool(t, 4)

	a := treeture.Spawn(func() int { time.Sleep(time.Millisecond); return 1 })
	b := treeture.Spawn(func() int { time.Sleep(time.Millisecond); return 2 })
	combined := treeture.Combine(a, b, func(x, y int) int { return x + y }, true).Release()

	underlying := treeture.UnderlyingTask(combined)

	var observed []task.State
	done := make(chan struct{})
	go func() {
		defer close(done)
		last := task.New
		for {
			s := underlying.State()
			if len(observed) == 0 || observed[len(observed)-1] != s {
				observed = append(observed, s)
			}
			if s < last {
				return // monotonicity violation; assertion below will catch it via observed order
			}
			last = s
			if s == task.Done {
				return
			}
			time.Sleep(time.Microsecond * 50)
		}
	}()

	result := combined.Get()
	<-done

	assert.Equal(t, 3, result)
	for i := 1; i < len(observed); i++ {
		assert.LessOrEqualf(t, observed[i-1], observed[i], "observed states %v", observed)
	}
	assert.Equal(t, task.Done, underlying.State())
}

// Invariant 2 — completion visibility: once wait() returns, every
// reachable sub-task is Done.
func TestInvariant_CompletionVisibility(t *testing.T) {
	newPool(t, 4)

	a := treeture.Spawn(func() int { return 10 })
	b := treeture.Spawn(func() int { return 20 })
	whole := treeture.Combine(a, b, func(x, y int) int { return x + y }, true).Release()

	whole.Wait()

	assert.True(t, whole.Done())
	assert.True(t, whole.GetLeft().Done())
	assert.True(t, whole.GetRight().Done())
}

// Invariant 7 — idempotence of wait/get.
func TestInvariant_IdempotentWait(t *testing.T) {
	newPool(t, 4)

	h := treeture.Spawn(func() int { return 99 }).Release()
	first := h.Get()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, h.Get())
	}
	h.Wait()
	h.Wait()
}

// Invariant 8 — no deadlock: a moderately deep task graph on a
// small pool still reaches Done within a bounded time.
func TestInvariant_NoDeadlock(t *testing.T) {
	newPool(t, 2)

	fib := prec.Def(
		func(x int) bool { return x < 2 },
		func(x int) int { return x },
		func(x int, self prec.Self[int, int]) treeture.UnreleasedTreeture[int] {
			a := self(x - 1)
			b := self(x - 2)
			return treeture.Combine(a, b, func(p, q int) int { return p + q }, true)
		},
	)

	resultCh := make(chan int, 1)
	go func() { resultCh <- fib(22).Release().Get() }()

	select {
	case got := <-resultCh:
		assert.Equal(t, 17711, got)
	case <-time.After(10 * time.Second):
		t.Fatal("fib(22) did not complete: suspected deadlock")
	}
}

// Invariant 6 — neighborhood correctness.
func TestInvariant_NeighborhoodCorrectness(t *testing.T) {
	newPool(t, 4)

	const n = 32
	src := make([]int, n)
	for i := range src {
		src[i] = i + 1
	}
	dst := make([]int, n)

	pred := pfor.For(pfor.Int(0), pfor.Int(n), func(i pfor.Int) {})
	succ := pfor.ForAfter(pfor.Int(0), pfor.Int(n), dependency.Neighborhood(pred), func(i pfor.Int, _ dependency.NeighborhoodDep[pfor.Int]) {
		sum := src[i]
		if i > 0 {
			sum += src[i-1]
		}
		if int(i) < n-1 {
			sum += src[i+1]
		}
		dst[i] = sum
	})
	succ.Task.Get()

	for i := 0; i < n; i++ {
		want := src[i]
		if i > 0 {
			want += src[i-1]
		}
		if i < n-1 {
			want += src[i+1]
		}
		assert.Equalf(t, want, dst[i], "index %d", i)
	}
}
