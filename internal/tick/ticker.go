package tick

import "time"

// StdTicker wraps time.Ticker for the Ticker interface.
//
// Tick performs a non-blocking select on the ticker's channel. Goroutines
// that would rather block until the next tick can select on C directly; do
// not mix the two styles on one StdTicker.
type StdTicker struct {
	ticker   *time.Ticker
	interval time.Duration
}

// NewTicker creates a StdTicker with the specified interval. A non-positive
// interval selects DefaultInterval.
func NewTicker(interval time.Duration) *StdTicker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &StdTicker{
		ticker:   time.NewTicker(interval),
		interval: interval,
	}
}

// Tick returns true if the interval has elapsed.
func (t *StdTicker) Tick() bool {
	select {
	case <-t.ticker.C:
		return true
	default:
		return false
	}
}

// C returns the channel on which ticks are delivered.
func (t *StdTicker) C() <-chan time.Time {
	return t.ticker.C
}

// Reset resets the ticker to start a new interval from now.
func (t *StdTicker) Reset() {
	t.ticker.Reset(t.interval)
}

// Stop stops the ticker and releases resources.
func (t *StdTicker) Stop() {
	t.ticker.Stop()
}

// Interval returns the ticker's interval.
func (t *StdTicker) Interval() time.Duration {
	return t.interval
}
