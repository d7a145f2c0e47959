// Command allscale-bench runs the Fibonacci and N-Queens scenarios from
// the command line for manual benchmarking (SPEC_FULL.md §13), mirroring
// github.com/joeycumines/go-eventloop's examples/NN_name/main.go
// convention (eventloop/examples/01_basic_usage/main.go) rather than
// exposing any part of the runtime as a real CLI — spec.md §6 is explicit
// that there is no CLI at the core level.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/allscale/allscale-api-sub001/internal/obslog"
	"github.com/allscale/allscale-api-sub001/prec"
	"github.com/allscale/allscale-api-sub001/treeture"
	"github.com/allscale/allscale-api-sub001/worker"
	"github.com/joeycumines/logiface"
)

func main() {
	workers := flag.Int("workers", 0, "pool size (0 = NUM_WORKERS / NumCPU)")
	fibN := flag.Int("fib", 30, "compute fibonacci(n)")
	queensN := flag.Int("queens", 10, "count n-queens placements for board size n")
	verbose := flag.Bool("v", false, "debug-level logging")
	flag.Parse()

	level := logiface.LevelInformational
	if *verbose {
		level = logiface.LevelDebug
	}
	logger := obslog.New(os.Stderr, level)

	pool := worker.NewPool(worker.WithNumWorkers(*workers), worker.WithLogger(logger))
	if err := pool.Start(); err != nil {
		logger.Err().Str("error", err.Error()).Log("failed to start pool")
		os.Exit(1)
	}
	defer pool.Shutdown()

	logger.Info().Int("workers", pool.NumWorkers()).Log("pool started")

	runFib(logger, *fibN)
	runQueens(logger, *queensN)
}

func runFib(logger obslog.Logger, n int) {
	fib := prec.Def(
		func(x int) bool { return x < 2 },
		func(x int) int { return x },
		func(x int, self prec.Self[int, int]) treeture.UnreleasedTreeture[int] {
			a := self(x - 1)
			b := self(x - 2)
			return treeture.Combine(a, b, func(p, q int) int { return p + q }, true)
		},
	)

	start := time.Now()
	result := fib(n).Release().Get()
	elapsed := time.Since(start)

	logger.Info().Int("n", n).Int("result", result).Str("elapsed", elapsed.String()).Log("fibonacci")
	fmt.Printf("fib(%d) = %d (%s)\n", n, result, elapsed)
}

// queensState is the partial-placement state N-Queens recurses over: the
// columns already chosen for rows [0, len(cols)).
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

func runQueens(logger obslog.Logger, n int) {
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

	start := time.Now()
	result := countPlacements(queensState{n: n}).Release().Get()
	elapsed := time.Since(start)

	logger.Info().Int("n", n).Int("result", result).Str("elapsed", elapsed.String()).Log("n-queens")
	fmt.Printf("queens(%d) = %d (%s)\n", n, result, elapsed)
}
