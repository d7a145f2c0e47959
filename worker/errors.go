package worker

import "errors"

// Sentinel errors, styled after github.com/joeycumines/go-eventloop
// (eventloop/errors.go, eventloop/loop.go ErrLoop*).
var (
	// ErrPoolAlreadyRunning is returned by Start on a pool that is already running.
	ErrPoolAlreadyRunning = errors.New("worker: pool is already running")

	// ErrPoolNotRunning is returned by Shutdown on a pool that is not
	// running: never started, or already shut down.
	ErrPoolNotRunning = errors.New("worker: pool is not running")

	// ErrPoolShutdown names a pool that has been shut down. No function in
	// this package returns it.
	ErrPoolShutdown = errors.New("worker: pool has been shut down")
)

// PanicError wraps a recovered task-body panic. spec.md §7 treats a body
// panic as fatal ("a raised failure is fatal and terminates the
// process"); PanicError exists so the one place that enforces that
// (Worker.runTask) can report which task and value were responsible
// before re-panicking, the same shape as go-eventloop's own PanicError
// (eventloop/errors.go). Unwrap lets errors.As/errors.Is reach an
// underlying error panic value the way they would any other wrapped error.
type PanicError struct {
	TaskID string
	Value  any
}

func (e *PanicError) Error() string {
	return "worker: task " + e.TaskID + " panicked: " + errorString(e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func errorString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "non-error panic value"
}
