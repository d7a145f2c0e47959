package prec

import (
	"testing"

	"github.com/allscale/allscale-api-sub001/treeture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fibDef() Func[int, int] {
	return Def(
		func(x int) bool { return x < 2 },
		func(x int) int { return x },
		func(x int, self Self[int, int]) treeture.UnreleasedTreeture[int] {
			a := self(x - 1)
			b := self(x - 2)
			return treeture.Combine(a, b, func(p, q int) int { return p + q }, true)
		},
	)
}

func TestDef_Fibonacci_NoPool(t *testing.T) {
	fib := fibDef()
	want := []int{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144, 233, 377, 610, 987, 1597, 2584, 4181, 6765}
	for x, w := range want {
		got := fib(x).Release().Get()
		require.Equalf(t, w, got, "fib(%d)", x)
	}
}

func TestDef_BaseCaseNeverSplit(t *testing.T) {
	count := 0
	id := Def(
		func(x int) bool { return true },
		func(x int) int { count++; return x * 2 },
		func(x int, self Self[int, int]) treeture.UnreleasedTreeture[int] {
			t.Fatal("step should never run when isBase is always true")
			return treeture.UnreleasedTreeture[int]{}
		},
	)
	assert.Equal(t, 10, id(5).Release().Get())
	assert.Equal(t, 1, count)
}

func TestGroup_MutuallyRecursiveEvenOdd(t *testing.T) {
	// isEven(n) = n == 0 || isOdd(n-1); isOdd(n) = n != 0 && isEven(n-1).
	group := Group(
		GroupMember[int, bool]{
			IsBase:   func(n int) bool { return n == 0 },
			BaseCase: func(n int) bool { return true },
			Step: func(n int, selves Selves[int, bool]) treeture.UnreleasedTreeture[bool] {
				return selves[1](n - 1)
			},
		},
		GroupMember[int, bool]{
			IsBase:   func(n int) bool { return n == 0 },
			BaseCase: func(n int) bool { return false },
			Step: func(n int, selves Selves[int, bool]) treeture.UnreleasedTreeture[bool] {
				return selves[0](n - 1)
			},
		},
	)

	isEven := Entry(group, 0)
	isOdd := Entry(group, 1)

	assert.True(t, isEven(4).Release().Get())
	assert.False(t, isEven(7).Release().Get())
	assert.True(t, isOdd(7).Release().Get())
	assert.False(t, isOdd(4).Release().Get())
}

func TestPick_EveryAlternativeProducesCorrectResult(t *testing.T) {
	alt := Alternative[int, int]{
		IsBase:   func(int) bool { return true },
		BaseCase: func(x int) int { return x },
		Step: func(x int, self Self[int, int]) treeture.UnreleasedTreeture[int] {
			return treeture.Lift(treeture.Done(x))
		},
	}
	// Two functionally identical alternatives: whichever pickWeighted
	// chooses, the observable result must be the same.
	picked := Pick(alt, alt)
	for i := 0; i < 20; i++ {
		assert.Equal(t, i, picked(i).Release().Get())
	}
}
