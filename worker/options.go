package worker

import (
	"time"

	"github.com/allscale/allscale-api-sub001/config"
	"github.com/allscale/allscale-api-sub001/internal/obslog"
)

// poolConfig holds configuration options for Pool creation, mirroring
// github.com/joeycumines/go-eventloop's loopOptions (eventloop/options.go).
type poolConfig struct {
	numWorkers        int
	dequeCapacity     int
	coalesceWindow    time.Duration
	splitThreshold    float64
	idleSpinThreshold int
	predictorWindow   time.Duration
	predictorBurst    int
	pinAffinity       bool
	logger            obslog.Logger
}

// Option configures a Pool instance.
type Option interface {
	apply(*poolConfig)
}

type optionFunc func(*poolConfig)

func (f optionFunc) apply(c *poolConfig) { f(c) }

// WithNumWorkers overrides the pool size that would otherwise come from
// config.NumWorkers() (spec.md §6 NUM_WORKERS / §4.7 pool size). n <= 0
// is ignored.
func WithNumWorkers(n int) Option {
	return optionFunc(func(c *poolConfig) {
		if n > 0 {
			c.numWorkers = n
		}
	})
}

// WithDequeCapacity overrides each worker's deque capacity (spec.md §4.1).
func WithDequeCapacity(n int) Option {
	return optionFunc(func(c *poolConfig) {
		if n > 0 {
			c.dequeCapacity = n
		}
	})
}

// WithCoalesceWindow configures how often a worker's blocked pool signals
// "something changed" under a burst of sibling completions (spec.md §4.2,
// grounded on go-eventloop's sibling microbatch package).
func WithCoalesceWindow(d time.Duration) Option {
	return optionFunc(func(c *poolConfig) { c.coalesceWindow = d })
}

// WithSplitThreshold overrides the deque-occupancy fraction below which a
// splittable task obtained from the front is split before running
// (spec.md §4.7 step 1, "e.g. ≤ 3/4").
func WithSplitThreshold(f float64) Option {
	return optionFunc(func(c *poolConfig) {
		if f > 0 && f <= 1 {
			c.splitThreshold = f
		}
	})
}

// WithIdleSpinThreshold overrides the number of consecutive empty steal
// attempts before a worker sleeps on the pool condition variable (spec.md
// §4.7 step 4, "e.g. 100,000").
func WithIdleSpinThreshold(n int) Option {
	return optionFunc(func(c *poolConfig) {
		if n > 0 {
			c.idleSpinThreshold = n
		}
	})
}

// WithPredictor configures the runtime predictor's recalibration
// throttling (internal/predictor, built on go-catrate). A non-positive
// window or maxBurst disables throttling.
func WithPredictor(window time.Duration, maxBurst int) Option {
	return optionFunc(func(c *poolConfig) {
		c.predictorWindow = window
		c.predictorBurst = maxBurst
	})
}

// WithAffinity toggles CPU affinity pinning: when enabled, worker i's
// goroutine pins the OS thread it starts on to CPU i mod runtime.NumCPU().
// The goroutine that calls Start is not pinned (see Pool.Start).
func WithAffinity(enabled bool) Option {
	return optionFunc(func(c *poolConfig) { c.pinAffinity = enabled })
}

// WithLogger injects a structured logger (internal/obslog, backed by
// github.com/joeycumines/logiface). The zero value logs nothing.
func WithLogger(l obslog.Logger) Option {
	return optionFunc(func(c *poolConfig) { c.logger = l })
}

func resolveOptions(opts []Option) *poolConfig {
	cfg := &poolConfig{
		numWorkers:        config.NumWorkers(),
		dequeCapacity:     0, // deque.New falls back to DefaultCapacity
		splitThreshold:    0.75,
		idleSpinThreshold: 100_000,
		pinAffinity:       true,
		logger:            obslog.Disabled(),
	}
	for _, o := range opts {
		if o == nil {
			continue // skip nil options gracefully, per go-eventloop's resolveLoopOptions
		}
		o.apply(cfg)
	}
	if cfg.numWorkers < 1 {
		cfg.numWorkers = 1
	}
	return cfg
}
