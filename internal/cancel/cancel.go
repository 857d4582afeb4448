// Package cancel provides stop signalling for polling loops.
//
// Queue consumers in this module never block inside the queue: Fetch and Pop
// return ErrEmpty and the caller decides how long to back off. A Canceler
// gives those loops two things:
//   - Done, a cheap check made on every iteration
//   - Wait, an idle pause that returns early once Cancel is called
//
// Two implementations are provided:
//   - AtomicCanceler: atomic.Bool flag, for hot loops
//   - ContextCanceler: wraps context.Context, for code that already has one
package cancel

import "time"

// Canceler provides cancellation signaling to workers.
//
// Implementations must be safe for concurrent use:
//   - Multiple goroutines may call Done() and Wait() concurrently
//   - Cancel() may be called concurrently with either
type Canceler interface {
	// Done returns true if cancellation has been triggered.
	Done() bool

	// Wait pauses for up to d and reports whether cancellation was
	// triggered. It returns immediately once Cancel has been called.
	Wait(d time.Duration) bool

	// Cancel triggers cancellation. Safe to call multiple times.
	Cancel()
}

// sleep waits on stop for up to d. A non-positive d only polls stop.
func sleep(stop <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-stop:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return true
	case <-t.C:
		return false
	}
}
