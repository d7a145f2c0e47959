// Package config resolves the runtime's one recognized environment
// variable (spec.md §6): NUM_WORKERS, the total pool size including the
// main thread.
package config

import (
	"os"
	"runtime"
	"strconv"
)

// NumWorkersEnv is the environment variable name spec.md §6 recognizes.
const NumWorkersEnv = "NUM_WORKERS"

// NumWorkers resolves the effective pool size: the NUM_WORKERS
// environment variable if it parses to a positive integer, else
// runtime.NumCPU(), with an absolute floor of 1 either way (spec.md §6:
// "Zero or negative falls back to default. Minimum effective pool size
// is 1.").
func NumWorkers() int {
	if raw, ok := os.LookupEnv(NumWorkersEnv); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}
