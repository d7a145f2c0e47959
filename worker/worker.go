package worker

import (
	"runtime"
	"time"

	"github.com/allscale/allscale-api-sub001/internal/blockedpool"
	"github.com/allscale/allscale-api-sub001/internal/deque"
	"github.com/allscale/allscale-api-sub001/internal/task"
)

// Worker owns one deque (C1) and one blocked pool (C2), per spec.md §4.7
// ("Per-worker state: deque, blocked-pool, RNG state for steal victim
// selection, affinity pinning to a fixed CPU index, a liveness flag").
// The RNG and liveness flag live on Pool, since Go's math/rand/v2 package
// functions are already safe for concurrent use and the liveness flag is
// pool-wide (spec.md §4.7 Shutdown: "liveness flags flipped").
type Worker struct {
	id      int
	pool    *Pool
	deque   *deque.Deque[*task.Task]
	blocked *blockedpool.Pool[*task.Task]
}

func newWorker(p *Pool, id int) *Worker {
	return &Worker{
		id:      id,
		pool:    p,
		deque:   deque.New[*task.Task](p.cfg.dequeCapacity),
		blocked: blockedpool.New[*task.Task](p.cfg.coalesceWindow),
	}
}

// schedule is the single entry point new work (root submissions and
// split children alike) goes through: blocked tasks go to the blocked
// pool, ready tasks go onto the owner's deque LIFO side, and a full
// deque falls back to running the task inline (spec.md §4.1 rationale,
// §7 "deque-full is expected and handled by inline execution").
func (w *Worker) schedule(t *task.Task) {
	w.pool.registry.Track(t)
	if !t.IsReady() {
		w.blocked.Add(t)
		return
	}
	if w.deque.PushFront(t) {
		if w.deque.Size()*2 > w.deque.Cap() {
			w.pool.workAvailable()
		}
		return
	}
	w.pool.cfg.logger.Debug().Int("worker", w.id).Int("capacity", w.deque.Cap()).Log("deque back-pressure: running task inline")
	w.execute(t, false)
}

// runChild is passed to task.Task.Run for the parallel-composition case:
// each child is scheduled rather than executed on the spot, so it can be
// picked up by any worker (spec.md §4.7 "Control flow").
func (w *Worker) runChild(child *task.Task) {
	w.schedule(child)
}

// execute optionally splits t before running it. gateOnOccupancy is true
// only for tasks taken from the front of this worker's own deque (spec.md
// §4.7 step 1: split only "if deque occupancy is below threshold");
// tasks drained from the blocked pool or stolen are split unconditionally
// when splittable (steps 2-3).
func (w *Worker) execute(t *task.Task, gateOnOccupancy bool) {
	if t.Splittable() && (!gateOnOccupancy || w.deque.Occupancy() <= w.pool.cfg.splitThreshold) {
		t.Split()
	}
	start := time.Now()
	level := t.ID().Depth()
	w.runTask(t)
	elapsed := time.Since(start)
	w.pool.predictor.RegisterTime(level, elapsed)
	w.pool.cfg.logger.Debug().Int("worker", w.id).Int("level", level).Str("elapsed", elapsed.String()).Log("predictor recalibration")
}

// runTask runs t.Run, recovering a panicking body into a *PanicError: the
// panic is logged with the task id for diagnostics and then re-raised
// unchanged, so the process still crashes per spec.md §7 ("a raised
// failure is fatal and terminates the process") — this is the one place
// that enforces that, for both directly executed tasks and the tasks a
// sequential Run recurses into on this same goroutine.
func (w *Worker) runTask(t *task.Task) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{TaskID: t.ID().String(), Value: r}
			w.pool.cfg.logger.Err().Str("task", pe.TaskID).Str("error", pe.Error()).Log("task panicked")
			panic(pe)
		}
	}()
	t.Run(w.runChild)
}

// loop implements the worker loop from spec.md §4.7: own deque, then own
// blocked pool, then a random victim's deque, then idle backoff.
func (w *Worker) loop() {
	idle := 0
	for w.pool.running.Load() {
		if t, ok := w.deque.PopFront(); ok {
			w.execute(t, true)
			idle = 0
			continue
		}

		if t, ok := w.blocked.GetReadyTask(); ok {
			w.execute(t, false)
			idle = 0
			continue
		}

		if len(w.pool.workers) > 1 {
			victim := w.pool.randomVictim(w.id)
			t, ok := victim.deque.TryPopBack()
			w.pool.cfg.logger.Debug().Int("worker", w.id).Int("victim", victim.id).Bool("stole", ok).Log("steal attempt")
			if ok {
				w.execute(t, false)
				idle = 0
				continue
			}
		}

		idle++
		if idle > w.pool.cfg.idleSpinThreshold {
			w.pool.registry.Scavenge(registryScavengeBatch)
			w.pool.sleepIdle()
			idle = 0
		} else {
			runtime.Gosched()
		}
	}
}
