package cancel

import (
	"sync"
	"sync/atomic"
	"time"
)

// AtomicCanceler signals cancellation through an atomic.Bool.
//
// Done is a single atomic load, so it is the right choice for a consumer that
// checks for shutdown between every Fetch. Wait parks on a channel that Cancel
// closes, so an idle worker wakes as soon as it is told to stop.
type AtomicCanceler struct {
	done atomic.Bool

	mu   sync.Mutex
	stop chan struct{}
}

// NewAtomic creates a new AtomicCanceler.
func NewAtomic() *AtomicCanceler {
	return &AtomicCanceler{stop: make(chan struct{})}
}

// Done returns true if cancellation has been triggered.
func (a *AtomicCanceler) Done() bool {
	return a.done.Load()
}

// Wait pauses for up to d, returning true early if Cancel is called.
func (a *AtomicCanceler) Wait(d time.Duration) bool {
	if a.done.Load() {
		return true
	}
	return sleep(a.stopCh(), d)
}

// Cancel triggers cancellation.
//
// Safe to call multiple times; subsequent calls are no-ops.
func (a *AtomicCanceler) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done.Swap(true) {
		return
	}
	if a.stop == nil {
		a.stop = make(chan struct{})
	}
	close(a.stop)
}

// Reset clears the cancellation flag so the canceler can be reused.
// Not safe to call concurrently with Done, Wait or Cancel.
func (a *AtomicCanceler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.done.Store(false)
	a.stop = make(chan struct{})
}

func (a *AtomicCanceler) stopCh() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop == nil {
		a.stop = make(chan struct{})
	}
	return a.stop
}
