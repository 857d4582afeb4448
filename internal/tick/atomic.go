package tick

import (
	"sync/atomic"
	"time"
)

// epoch anchors monotonic readings; time.Since on it never goes backwards.
var epoch = time.Now()

func monotonic() int64 {
	return int64(time.Since(epoch))
}

// AtomicTicker is a Ticker that many goroutines may poll at once. Exactly one
// caller observes each tick: the one whose compare-and-swap moves the last
// tick timestamp forward.
//
// Producers on a shared queue use it to sample gauges without a lock.
type AtomicTicker struct {
	interval int64 // nanoseconds
	lastTick atomic.Int64
}

// NewAtomicTicker creates an AtomicTicker with the specified interval.
func NewAtomicTicker(interval time.Duration) *AtomicTicker {
	t := &AtomicTicker{
		interval: int64(interval),
	}
	t.lastTick.Store(monotonic())
	return t
}

// Tick returns true if the interval has elapsed since the last tick.
func (a *AtomicTicker) Tick() bool {
	now := monotonic()
	last := a.lastTick.Load()

	if now-last >= a.interval {
		return a.lastTick.CompareAndSwap(last, now)
	}
	return false
}

// Reset resets the ticker to start a new interval from now.
func (a *AtomicTicker) Reset() {
	a.lastTick.Store(monotonic())
}

// Stop is a no-op.
func (a *AtomicTicker) Stop() {}

// Interval returns the ticker's interval.
func (a *AtomicTicker) Interval() time.Duration {
	return time.Duration(a.interval)
}
