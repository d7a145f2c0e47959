// Package predictor implements the per-recursion-level moving average of
// observed task durations from spec.md §4.3 (C3): used only as a hint
// when the worker loop decides whether to split a splittable task.
//
// registerTime also nudges neighbouring levels (halved/doubled) to
// amortise spread, and recalibration itself is rate-limited per level the
// way github.com/joeycumines/go-catrate's Limiter gates bursty events,
// so a level whose tasks complete in a tight loop
// doesn't thrash the moving average on every single observation.
package predictor

import (
	"math"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
)

// levelStat holds the running sample count and mean for one recursion level.
type levelStat struct {
	count int64
	mean  time.Duration
}

// Predictor tracks a duration estimate per recursion depth.
type Predictor struct {
	mu     sync.RWMutex
	levels []levelStat

	// limiter throttles how often registerTime actually updates a given
	// level's statistics under a burst, using level index (as `any`) as
	// the catrate category.
	limiter *catrate.Limiter
}

// New creates a Predictor. maxBurst bounds how many recalibrations per
// level are allowed within window; a non-positive window disables
// throttling entirely (every observation updates immediately).
func New(window time.Duration, maxBurst int) *Predictor {
	p := &Predictor{}
	if window > 0 && maxBurst > 0 {
		p.limiter = catrate.NewLimiter(map[time.Duration]int{window: maxBurst})
	}
	return p
}

func (p *Predictor) ensureLevel(level int) {
	if level < len(p.levels) {
		return
	}
	grown := make([]levelStat, level+1)
	copy(grown, p.levels)
	p.levels = grown
}

// RegisterTime records an observed duration d for the given recursion
// level, updating that level's moving mean and, to amortise spread,
// nudging the adjacent levels towards half/double the observation
// (spec.md §4.3).
func (p *Predictor) RegisterTime(level int, d time.Duration) {
	if level < 0 {
		return
	}
	if p.limiter != nil {
		if _, ok := p.limiter.Allow(level); !ok {
			return
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureLevel(level)
	p.update(level, d)
	if level > 0 {
		p.nudge(level-1, d*2)
	}
	p.nudge(level+1, d/2)
}

func (p *Predictor) update(level int, d time.Duration) {
	s := &p.levels[level]
	s.count++
	// Incremental mean: mean += (d - mean) / count.
	s.mean += (d - s.mean) / time.Duration(s.count)
}

// nudge applies a weak (single-sample) correction to a neighbouring level
// without requiring it to have been directly observed yet, so that upper
// levels inherit a plausible estimate before any task at that exact depth
// has completed.
func (p *Predictor) nudge(level int, d time.Duration) {
	if level < 0 {
		return
	}
	p.ensureLevel(level)
	s := &p.levels[level]
	if s.count == 0 {
		s.mean = d
		s.count = 1
		return
	}
	const weight = 8 // the existing estimate outweighs a nudge 8:1
	s.mean = (s.mean*weight + d) / (weight + 1)
}

// PredictTime returns the current estimate for level, or
// time.Duration(math.MaxInt64) ("duration::max()") when unobserved, so
// that upper levels always prefer to split when both base-case and split
// are otherwise legal (spec.md §4.3, §4.8).
func (p *Predictor) PredictTime(level int) time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if level < 0 || level >= len(p.levels) || p.levels[level].count == 0 {
		return time.Duration(math.MaxInt64)
	}
	return p.levels[level].mean
}

// Observed reports whether level has an estimate: at least one direct
// sample, or a nudge from an observed neighbouring level.
func (p *Predictor) Observed(level int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return level >= 0 && level < len(p.levels) && p.levels[level].count > 0
}
