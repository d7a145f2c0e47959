package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumWorkers_UsesEnvWhenValid(t *testing.T) {
	t.Setenv(NumWorkersEnv, "5")
	assert.Equal(t, 5, NumWorkers())
}

func TestNumWorkers_FallsBackOnZeroOrNegative(t *testing.T) {
	t.Setenv(NumWorkersEnv, "0")
	assert.Equal(t, runtime.NumCPU(), NumWorkers())

	t.Setenv(NumWorkersEnv, "-3")
	assert.Equal(t, runtime.NumCPU(), NumWorkers())
}

func TestNumWorkers_FallsBackOnGarbage(t *testing.T) {
	t.Setenv(NumWorkersEnv, "not-a-number")
	assert.Equal(t, runtime.NumCPU(), NumWorkers())
}

func TestNumWorkers_DefaultsToNumCPUWhenUnset(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), NumWorkers())
}
