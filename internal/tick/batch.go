package tick

import "time"

// BatchTicker checks the time only every N calls to Tick().
//
// A worker draining a queue calls Tick once per item; with every=1000 the
// clock is read once per thousand items and a tick fires when the interval
// has passed. Not safe for concurrent use.
type BatchTicker struct {
	interval time.Duration
	every    int
	count    int
	lastTick time.Time
	now      func() time.Time
}

// NewBatch creates a BatchTicker that checks time every N operations.
// every below 1 is treated as 1.
func NewBatch(interval time.Duration, every int) *BatchTicker {
	return NewBatchWithClock(interval, every, time.Now)
}

// NewBatchWithClock is NewBatch with an injectable clock.
func NewBatchWithClock(interval time.Duration, every int, now func() time.Time) *BatchTicker {
	if every < 1 {
		every = 1
	}
	if now == nil {
		now = time.Now
	}
	return &BatchTicker{
		interval: interval,
		every:    every,
		lastTick: now(),
		now:      now,
	}
}

// Tick returns true if the interval has elapsed. The clock is only read on
// every Nth call; other calls return false immediately.
func (b *BatchTicker) Tick() bool {
	b.count++
	if b.count%b.every != 0 {
		return false
	}

	now := b.now()
	if now.Sub(b.lastTick) >= b.interval {
		b.lastTick = now
		return true
	}
	return false
}

// Since returns the time elapsed since the last tick, as of the most recent
// clock read.
func (b *BatchTicker) Since() time.Duration {
	return b.now().Sub(b.lastTick)
}

// Reset resets the ticker state.
func (b *BatchTicker) Reset() {
	b.count = 0
	b.lastTick = b.now()
}

// Stop is a no-op.
func (b *BatchTicker) Stop() {}

// Every returns the batch size.
func (b *BatchTicker) Every() int {
	return b.every
}

// Interval returns the ticker's interval.
func (b *BatchTicker) Interval() time.Duration {
	return b.interval
}
