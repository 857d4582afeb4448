// Package queue provides bounded, non-blocking queues that decouple
// producer goroutines from a consumer.
//
// This package offers two implementations of the Queue interface:
//   - TypedRing: mutex-protected circular store of fixed-size elements
//   - ChannelQueue: Standard library approach using buffered channels
//
// Variable-length binary records live in the lock-free bytering package,
// which shares the sentinel errors declared here.
//
// # Full and Empty
//
// Neither implementation ever blocks. Push returns ErrFull when the queue is
// saturated and Pop returns ErrEmpty when nothing is queued. Both are expected
// steady-state conditions: callers decide whether to retry, back off or drop.
//
// Correct usage:
//   - Any number of goroutines may call Push()
//   - Any number of goroutines may call Pop()
//   - Len() is advisory and may lag the real occupancy
package queue

import "errors"

var (
	// ErrInitFailed reports an invalid capacity or a failed allocation.
	ErrInitFailed = errors.New("queue: init failed")

	// ErrFull is returned by Push when there is no room for the element.
	ErrFull = errors.New("queue: full")

	// ErrEmpty is returned by Pop when nothing has been published.
	ErrEmpty = errors.New("queue: empty")

	// ErrNotInitialized is returned by operations on a queue that was never
	// initialized. It is a programming error.
	ErrNotInitialized = errors.New("queue: not initialized")
)

// Queue is a bounded multi-producer queue.
//
// Implementations are non-blocking: Push returns ErrFull if full,
// Pop returns ErrEmpty if empty.
type Queue[T any] interface {
	// Push adds an item to the queue.
	// Returns ErrFull if the queue is full.
	Push(T) error

	// Pop removes and returns an item from the queue.
	// Returns ErrEmpty if the queue is empty.
	Pop() (T, error)

	// Len returns the approximate number of queued items.
	Len() int

	// Cap returns the number of items the queue can hold.
	Cap() int
}
