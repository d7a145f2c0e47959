// Package worker implements the work-stealing scheduler core of spec.md
// §4.7 (C8): a fixed-size pool of workers, each with its own deque and
// blocked pool, stealing from random victims and sleeping on a shared
// condition variable when idle.
//
// Ordering (spec.md §4.7 "Ordering guarantees"): a worker pushes and pops
// its own deque's front, giving LIFO order for locally generated work; a
// thief always steals from the back, giving FIFO order relative to
// submission across thieves. internal/deque's own doc establishes the
// front as the owner's LIFO side; TryPopBack is therefore the thief-only
// operation, even though spec.md's worker-loop prose names it generically
// as "try_pop_front from the victim's deque" — the literal end chosen is
// what makes the stated ordering invariant hold (see DESIGN.md).
package worker

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/allscale/allscale-api-sub001/internal/predictor"
	"github.com/allscale/allscale-api-sub001/internal/task"
	"github.com/allscale/allscale-api-sub001/treeture"
)

// registryScavengeBatch bounds how many stale diagnostic entries a single
// idle tick reaps, the same amortised-cleanup shape internal/task.Registry
// applies to its own ring-buffer sweep.
const registryScavengeBatch = 64

// Pool owns a fixed set of Workers and the machinery that lets any
// goroutine (not just a worker's own loop) push work into it and help
// drain it while waiting (spec.md §4.7 Pool, §5 "Suspension points").
type Pool struct {
	_ [0]func() // not copyable

	cfg       *poolConfig
	workers   []*Worker
	predictor *predictor.Predictor
	registry  *task.Registry

	mu      sync.Mutex
	cond    *sync.Cond
	running atomic.Bool
	wg      sync.WaitGroup

	roundRobin atomic.Uint64
}

// NewPool constructs a pool sized per config.NumWorkers() (or
// WithNumWorkers) without starting it; call Start to spawn workers.
func NewPool(opts ...Option) *Pool {
	cfg := resolveOptions(opts)
	p := &Pool{
		cfg:       cfg,
		predictor: predictor.New(cfg.predictorWindow, cfg.predictorBurst),
		registry:  task.NewRegistry(),
	}
	p.cond = sync.NewCond(&p.mu)
	p.workers = make([]*Worker, cfg.numWorkers)
	for i := range p.workers {
		p.workers[i] = newWorker(p, i)
	}
	return p
}

// Predictor exposes the pool-wide runtime predictor (C3). Worker.execute
// records every task's run time in it under the task id's depth; nothing
// in this module reads estimates back from it (package prec's Pick keeps
// a predictor of its own).
func (p *Pool) Predictor() *predictor.Predictor { return p.predictor }

// NumWorkers returns the configured pool size.
func (p *Pool) NumWorkers() int { return len(p.workers) }

// Start spawns one goroutine per worker and installs this pool as the
// target of treeture.Spawn/Release and treeture.Wait's scheduling hooks.
// Per spec.md §4.7 "Thread 0 is the calling (main) thread": this module's
// Go rendition instead lets the calling goroutine participate directly
// via the registered step hook (see Step), since pinning a specific
// goroutine as privileged has no equivalent in Go's scheduler.
func (p *Pool) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrPoolAlreadyRunning
	}
	treeture.SetScheduler(p.enqueue, p.Step)

	p.cfg.logger.Info().Int("workers", len(p.workers)).Log("pool starting")

	numCPU := runtime.NumCPU()
	for i, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker, idx int) {
			defer p.wg.Done()
			if p.cfg.pinAffinity && numCPU > 0 {
				if err := pinToCPU(idx % numCPU); err != nil {
					p.cfg.logger.Debug().Str("error", err.Error()).Int("worker", idx).Log("cpu affinity pin failed")
				}
			}
			p.cfg.logger.Debug().Int("worker", idx).Log("worker start")
			w.loop()
			p.cfg.logger.Debug().Int("worker", idx).Log("worker stop")
		}(w, i)
	}
	return nil
}

// Shutdown flips the liveness flag, broadcasts the condition variable so
// every sleeping worker wakes and observes it, and joins all workers
// (spec.md §4.7 Pool Shutdown).
func (p *Pool) Shutdown() error {
	if !p.running.CompareAndSwap(true, false) {
		return ErrPoolNotRunning
	}
	p.cfg.logger.Info().Log("pool shutdown: flipping liveness flag, waking workers")
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
	p.cfg.logger.Info().Log("pool shutdown: all workers joined")
	treeture.SetScheduler(nil, nil)
	return nil
}

// workAvailable broadcasts the condition variable. Worker.schedule calls
// it after every push that leaves the deque more than half full.
func (p *Pool) workAvailable() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// sleepIdle parks the calling worker goroutine on the shared condition
// variable until the next workAvailable/Shutdown broadcast (spec.md §4.7
// step 4: "sleep on the pool's condition variable").
func (p *Pool) sleepIdle() {
	p.mu.Lock()
	if p.running.Load() {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// randomVictim picks a worker other than selfID uniformly at random
// (spec.md §4.7 "RNG state for steal victim selection").
func (p *Pool) randomVictim(selfID int) *Worker {
	n := len(p.workers)
	idx := rand.N(n - 1)
	if idx >= selfID {
		idx++
	}
	return p.workers[idx]
}

// enqueue is installed as treeture's enqueue hook: root task trees are
// distributed round-robin across workers on release.
func (p *Pool) enqueue(t *task.Task) {
	idx := int(p.roundRobin.Add(1)-1) % len(p.workers)
	p.workers[idx].schedule(t)
}

// Step runs one unit of scheduling work on the calling goroutine without
// requiring it to own a deque: it is installed as treeture's step hook,
// so a goroutine blocked in Wait()/Get() keeps the pool progressing
// instead of hard-blocking (spec.md §5 "Suspension points").
func (p *Pool) Step() bool {
	for _, w := range p.workers {
		if t, ok := w.deque.TryPopBack(); ok {
			w.execute(t, false)
			return true
		}
	}
	for _, w := range p.workers {
		if t, ok := w.blocked.GetReadyTask(); ok {
			w.execute(t, false)
			return true
		}
	}
	return false
}

// DumpState renders a one-line-per-worker diagnostic snapshot (used by
// the introspection surface described in SPEC_FULL.md §12.4).
func (p *Pool) DumpState() string {
	var b strings.Builder
	for _, w := range p.workers {
		fmt.Fprintf(&b, "worker %d: deque=%d/%d blocked=%d\n", w.id, w.deque.Size(), w.deque.Cap(), w.blocked.Len())
	}
	for _, line := range p.registry.Snapshot() {
		fmt.Fprintf(&b, "task: %s\n", line)
	}
	return b.String()
}
