package queue

import (
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	// DefaultTypedCapacity is used when NewTypedRing is asked for capacity 0.
	DefaultTypedCapacity = 1 << 20

	// MaxTypedCapacity bounds the element count; larger requests are clamped.
	MaxTypedCapacity = 1 << 20
)

// TypedRing is a bounded circular queue of fixed-size elements guarded by a
// single mutex.
//
// It keeps the same reserve/commit cursor pairs as the lock-free byte ring,
// but every claim-and-advance step runs under the lock, so reservation and
// commit always move together. This is the natural choice when elements are
// pointer-sized handles and there is one background consumer.
//
// Storage holds capacity+1 slots: writeReserve+1 == readCommit means full,
// readReserve == writeCommit means empty.
type TypedRing[T any] struct {
	mu    sync.Mutex
	slots []T

	writeReserve uint32 // next slot a producer may claim
	writeCommit  uint32 // slots before this are readable
	readReserve  uint32 // next slot a consumer may claim
	readCommit   uint32 // slots before this are writable

	// Advisory only; bumped after the lock is released.
	count atomic.Int64
}

// NewTypedRing creates a TypedRing holding up to capacity elements.
// A capacity of 0 selects DefaultTypedCapacity and values above
// MaxTypedCapacity are clamped.
func NewTypedRing[T any](capacity int) (*TypedRing[T], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: negative capacity %d", ErrInitFailed, capacity)
	}
	if capacity == 0 {
		capacity = DefaultTypedCapacity
	}
	capacity = min(capacity, MaxTypedCapacity)

	return &TypedRing[T]{
		slots: make([]T, capacity+1),
	}, nil
}

// Push stores v at the tail of the ring.
// Returns ErrFull if every slot is occupied.
//
// On success the ring owns v until a consumer pops it; the caller must not
// keep using a handle it pushed.
func (r *TypedRing[T]) Push(v T) error {
	if r == nil || r.slots == nil {
		return ErrNotInitialized
	}

	r.mu.Lock()
	current := r.writeReserve
	next := (current + 1) % uint32(len(r.slots))
	if next == r.readCommit {
		r.mu.Unlock()
		return ErrFull
	}
	r.writeReserve = next
	r.slots[current] = v
	r.writeCommit = next
	r.mu.Unlock()

	r.count.Add(1)
	return nil
}

// Pop removes and returns the element at the head of the ring.
// Returns ErrEmpty if nothing has been committed.
//
// The slot is cleared before the lock is released so the ring never shares
// a handle with the caller.
func (r *TypedRing[T]) Pop() (T, error) {
	var zero T
	if r == nil || r.slots == nil {
		return zero, ErrNotInitialized
	}

	r.mu.Lock()
	current := r.readReserve
	if current == r.writeCommit {
		r.mu.Unlock()
		return zero, ErrEmpty
	}
	next := (current + 1) % uint32(len(r.slots))
	r.readReserve = next
	v := r.slots[current]
	r.slots[current] = zero
	r.readCommit = next
	r.mu.Unlock()

	r.count.Add(-1)
	return v, nil
}

// Shift is an alias for Pop.
func (r *TypedRing[T]) Shift() (T, error) {
	return r.Pop()
}

// DrainTo pops up to len(buf) elements into buf and returns how many were
// written. It stops early when the ring is empty.
func (r *TypedRing[T]) DrainTo(buf []T) int {
	n := 0
	for n < len(buf) {
		v, err := r.Pop()
		if err != nil {
			break
		}
		buf[n] = v
		n++
	}
	return n
}

// Len returns the advisory element count. It may briefly disagree with the
// cursors because it is updated outside the lock.
func (r *TypedRing[T]) Len() int {
	if r == nil {
		return 0
	}
	// A Pop can decrement before the matching Push increments.
	return int(max(r.count.Load(), 0))
}

// Cap returns the number of elements the ring can hold.
func (r *TypedRing[T]) Cap() int {
	if r == nil || r.slots == nil {
		return 0
	}
	return len(r.slots) - 1
}
