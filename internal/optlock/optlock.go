// Package optlock implements the optimistic read-write lock of spec.md
// §4.9 (ancillary): a classic seqlock, grounded on the same lock-free
// atomic-CAS shape internal/task/state.go's fastState uses for task state
// transitions, applied here to a version word instead of a six-state
// enum. spec.md describes its intended consumer as "data-item fragments",
// a collaborator outside this runtime's scope (no [MODULE] elsewhere
// defines one) — this package implements the primitive itself, exercised
// directly by its own tests, the same stance SPEC_FULL.md takes on
// preduce being obligated but left to a collaborator to actually use.
package optlock

import "sync/atomic"

// Lock is a version-based optimistic read-write lock. The version word is
// even while unlocked and odd while a writer holds it.
type Lock struct {
	version atomic.Uint64
}

// ReadLease is the version snapshot StartRead hands a reader.
type ReadLease struct {
	version uint64
}

// StartRead takes a read lease: a version snapshot to validate the read
// against afterwards. ok is false if a writer currently holds the lock;
// the caller should retry rather than proceed with a doomed read.
func (l *Lock) StartRead() (lease ReadLease, ok bool) {
	v := l.version.Load()
	return ReadLease{version: v}, v&1 == 0
}

// Validate reports whether lease is still consistent: no writer has
// started or finished since the snapshot was taken, so whatever the
// reader observed between StartRead and Validate is a consistent
// snapshot.
func (l *Lock) Validate(lease ReadLease) bool {
	return l.version.Load() == lease.version
}

// TryUpgrade attempts to promote lease directly into the write lock via
// CAS on the version word. On success the caller holds the write lock and
// must call EndWrite. On failure another writer has intervened since the
// snapshot and the caller must restart from StartRead.
func (l *Lock) TryUpgrade(lease ReadLease) bool {
	return l.version.CompareAndSwap(lease.version, lease.version+1)
}

// EndWrite releases a write lock acquired via TryUpgrade, incrementing
// the version past its odd (locked) value so it is even again and the
// write becomes visible to new readers.
func (l *Lock) EndWrite(lease ReadLease) {
	l.version.Store(lease.version + 2)
}
