// Package tick provides periodic triggers for polling loops.
//
// Implementations of the Ticker interface:
//   - StdTicker: time.Ticker wrapper; also exposes its channel for select loops
//   - BatchTicker: checks the clock only every N calls, single goroutine
//   - AtomicTicker: CAS on a monotonic timestamp, shared by many goroutines
//
// Queue consumers use them to pace work that must not run on every
// iteration: stats logging, gauge sampling and periodic flushes.
package tick

import "time"

// Ticker signals when a time interval has elapsed.
type Ticker interface {
	// Tick returns true if the interval has elapsed since the last tick.
	// This is a non-blocking check.
	Tick() bool

	// Reset starts a new interval from now.
	Reset()

	// Stop releases any resources held by the ticker.
	// After Stop, the ticker should not be used.
	Stop()
}

// DefaultInterval is the flush cadence used when none is configured.
const DefaultInterval = 100 * time.Millisecond
