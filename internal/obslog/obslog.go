// Package obslog wires the runtime's structured logging through
// github.com/joeycumines/logiface, the same facade/adapter split
// github.com/joeycumines/go-eventloop uses everywhere outside its own
// event loop's emergency fallback (eventloop/loop.go uses the standard log package only for a
// panic it cannot otherwise surface). Everything in this module that
// logs takes a *logiface.Logger[*stumpy.Event]; logiface.Logger has a
// nil-safe zero value (Level() degrades to LevelDisabled), so a nil
// logger silently discards rather than panicking.
package obslog

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete type threaded through worker.Pool and friends.
type Logger = *logiface.Logger[*stumpy.Event]

// New builds a JSON logger writing to w at the given level.
func New(w io.Writer, level logiface.Level) Logger {
	return stumpy.L.New(
		stumpy.L.WithLevel(level),
		stumpy.WithStumpy(stumpy.WithWriter(w)),
	)
}

// Default returns the package's fallback logger: informational level,
// writing to stderr.
func Default() Logger {
	return New(os.Stderr, logiface.LevelInformational)
}

// Disabled returns a logger that drops everything; equivalent to a nil
// *logiface.Logger[*stumpy.Event], spelled out for callers who want an
// explicit, self-documenting default rather than a bare nil.
func Disabled() Logger {
	return stumpy.L.New(stumpy.L.WithLevel(logiface.LevelDisabled))
}
