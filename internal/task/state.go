package task

import "sync/atomic"

// State is one of the six lifecycle states from spec.md §3.2/§4.4.
type State uint32

const (
	// New: just constructed, dependencies not yet evaluated.
	New State = iota
	// Blocked: has at least one unresolved dependency.
	Blocked
	// Ready: every dependency is Done; eligible to run or split.
	Ready
	// Running: a worker is executing the body (or waiting on split children).
	Running
	// Aggregating: all split children are Done, merge is about to run / ran.
	Aggregating
	// Done: terminal. Monotone — never leaves this state.
	Done
)

func (s State) String() string {
	switch s {
	case New:
		return "New"
	case Blocked:
		return "Blocked"
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Aggregating:
		return "Aggregating"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding, grounded
// on github.com/joeycumines/go-eventloop's FastState (eventloop/state.go):
// pure atomic CAS, no mutex, padded to avoid false sharing since every
// task in the graph carries one.
type fastState struct { //nolint:unused // padding is intentional, see fields
	_ [64]byte
	v atomic.Uint32
	_ [60]byte
}

func newFastState(initial State) *fastState {
	s := &fastState{}
	s.v.Store(uint32(initial))
	return s
}

func (s *fastState) Load() State {
	return State(s.v.Load())
}

func (s *fastState) Store(v State) {
	s.v.Store(uint32(v))
}

// TryTransition performs the CAS from->to. Only the transitions listed in
// spec.md §3.2 invariants are ever attempted by Task methods; an illegal
// attempt simply fails the CAS and the caller treats it as a programming
// error (spec.md §7).
func (s *fastState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
