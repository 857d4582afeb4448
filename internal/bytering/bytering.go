// Package bytering provides a lock-free, bounded circular store of
// variable-length binary records.
//
// Each record is an 8-byte little-endian length prefix followed by the
// payload. Records may straddle the end of the backing slice and continue at
// offset 0, including the case where the prefix itself is split.
//
// # Reserve / publish
//
// Both sides run a two-phase protocol over a pair of cursors:
//
//	writers: writeReserve (claim)  -> copy -> writeCommit (publish)
//	readers: readReserve  (claim)  -> copy -> readCommit  (publish)
//
// Claims use optimistic compare-and-swap so concurrent producers never
// overlap. Publishing retries a compare-and-swap from the claimed start to
// the claimed end, so commit boundaries advance strictly in reservation
// order: a reader never sees a gap left by a slower writer, and a writer
// never overwrites bytes a slower reader is still copying out.
//
// The valid, unconsumed bytes are always [readCommit, writeCommit).
//
// The ring is safe for any number of producers and consumers. Len is an
// advisory counter and must not gate correctness decisions; Push and Pop
// report ErrFull and ErrEmpty authoritatively.
package bytering

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/randomizedcoder/cirqueue/internal/queue"
)

const (
	// HeaderSize is the length prefix stored in front of every record.
	HeaderSize = 8

	// MaxCapacity is the largest logical capacity Init accepts (1 GiB).
	MaxCapacity = 1 << 30
)

// Errors shared with the queue package so callers can test either ring with
// the same sentinels.
var (
	ErrInitFailed     = queue.ErrInitFailed
	ErrFull           = queue.ErrFull
	ErrEmpty          = queue.ErrEmpty
	ErrNotInitialized = queue.ErrNotInitialized

	// ErrRecordTooLarge reports a record that cannot fit even in an empty
	// ring. It matches ErrFull under errors.Is.
	ErrRecordTooLarge = fmt.Errorf("%w: record larger than ring capacity", ErrFull)

	// ErrShortBuffer is returned by PopInto when dst cannot hold the next
	// record. Nothing is consumed.
	ErrShortBuffer = errors.New("bytering: destination buffer too small")
)

const (
	stateNew uint32 = iota
	stateInitializing
	stateReady
)

// Ring is a lock-free byte ring. The zero value is uninitialized; call Init
// or use New.
//
// Cursors are offsets into data, always reduced modulo len(data). Each sits
// on its own cache line so producers and consumers do not false-share.
type Ring struct {
	state    atomic.Uint32
	capacity uint64 // logical bytes, len(data)-1
	size     uint64 // physical bytes
	data     []byte

	_            cpu.CacheLinePad
	writeReserve atomic.Uint64
	_            cpu.CacheLinePad
	writeCommit  atomic.Uint64
	_            cpu.CacheLinePad
	readReserve  atomic.Uint64
	_            cpu.CacheLinePad
	readCommit   atomic.Uint64
	_            cpu.CacheLinePad

	// Number of published, unconsumed records. Advisory.
	occupancy atomic.Int64
}

// New allocates a Ring able to hold capacity bytes of records (prefixes
// included).
func New(capacity int) (*Ring, error) {
	r := &Ring{}
	if err := r.Init(capacity); err != nil {
		return nil, err
	}
	return r, nil
}

// Init allocates capacity+1 zeroed bytes of backing storage. It fails if
// capacity is below 1 or above MaxCapacity. Calling Init on a ring that is
// already initialized is a no-op.
//
// Init must complete before any goroutine calls Push or Pop.
func (r *Ring) Init(capacity int) error {
	if capacity < 1 || capacity > MaxCapacity {
		return fmt.Errorf("%w: capacity %d outside [1, %d]", ErrInitFailed, capacity, MaxCapacity)
	}
	if !r.state.CompareAndSwap(stateNew, stateInitializing) {
		return nil
	}

	r.capacity = uint64(capacity)
	r.size = r.capacity + 1
	r.data = make([]byte, r.size)

	r.state.Store(stateReady)
	return nil
}

// Initialized reports whether Init has completed.
func (r *Ring) Initialized() bool {
	return r.state.Load() == stateReady
}

// Push appends p as one record. It returns ErrFull when the free span is
// smaller than len(p)+HeaderSize; the ring is left unchanged in that case.
// Zero-length payloads are allowed.
func (r *Ring) Push(p []byte) error {
	if !r.Initialized() {
		return ErrNotInitialized
	}

	need := uint64(len(p)) + HeaderSize
	if need > r.capacity {
		return ErrRecordTooLarge
	}

	// Reserve: claim [current, next) for this writer alone.
	var current, next uint64
	for {
		current = r.writeReserve.Load()
		if r.writable(current) < need {
			return ErrFull
		}
		next = (current + need) % r.size
		if r.writeReserve.CompareAndSwap(current, next) {
			break
		}
	}

	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(p)))
	off := r.copyIn(current, hdr[:])
	r.copyIn(off, p)

	// Publish: wait for every earlier reservation to publish first.
	var b backoff
	for !r.writeCommit.CompareAndSwap(current, next) {
		b.wait()
	}
	r.occupancy.Add(1)
	return nil
}

// Pop removes the oldest record and returns a freshly allocated copy of its
// payload. It returns ErrEmpty when nothing has been published.
func (r *Ring) Pop() ([]byte, error) {
	var out []byte
	_, err := r.pop(func(length uint64) ([]byte, error) {
		out = make([]byte, length)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PopInto removes the oldest record, copies its payload into dst and returns
// the payload length. If dst is too small it returns ErrShortBuffer and the
// record stays queued.
func (r *Ring) PopInto(dst []byte) (int, error) {
	n, err := r.pop(func(length uint64) ([]byte, error) {
		if length > uint64(len(dst)) {
			return nil, ErrShortBuffer
		}
		return dst[:length], nil
	})
	return int(n), err
}

// pop claims the next record and copies it into the slice returned by
// alloc. alloc runs after the length prefix has been validated and before
// the read claim, so an alloc error consumes nothing.
func (r *Ring) pop(alloc func(length uint64) ([]byte, error)) (uint64, error) {
	if !r.Initialized() {
		return 0, ErrNotInitialized
	}

	var (
		current, next uint64
		length        uint64
		dst           []byte
	)
	for {
		current = r.readReserve.Load()
		if current == r.writeCommit.Load() {
			return 0, ErrEmpty
		}

		var hdr [HeaderSize]byte
		r.copyOut(current, hdr[:])
		length = binary.LittleEndian.Uint64(hdr[:])

		// Another reader may have taken this record while we were reading
		// its prefix; never act on a prefix read from a stale cursor.
		if r.readReserve.Load() != current {
			continue
		}
		if length > r.capacity-HeaderSize {
			continue
		}

		var err error
		if dst, err = alloc(length); err != nil {
			return 0, err
		}

		next = (current + HeaderSize + length) % r.size
		if r.readReserve.CompareAndSwap(current, next) {
			break
		}
	}

	r.copyOut((current+HeaderSize)%r.size, dst)

	// Publish: free the span only after every earlier reader is done.
	var b backoff
	for !r.readCommit.CompareAndSwap(current, next) {
		b.wait()
	}
	r.occupancy.Add(-1)
	return length, nil
}

// Len returns the advisory number of queued records. It may be briefly stale
// relative to the commit cursors.
func (r *Ring) Len() int {
	if !r.Initialized() {
		return 0
	}
	// A pop can land between a writer's commit and its increment.
	return int(max(r.occupancy.Load(), 0))
}

// Cap returns the logical capacity in bytes, prefixes included.
func (r *Ring) Cap() int {
	if !r.Initialized() {
		return 0
	}
	return int(r.capacity)
}

// Free returns an estimate of the bytes a Push could claim right now.
func (r *Ring) Free() int {
	if !r.Initialized() {
		return 0
	}
	return int(r.writable(r.writeReserve.Load()))
}

// writable is the span between a write claim and the read commit, minus the
// one guard byte that keeps full distinct from empty.
func (r *Ring) writable(writePos uint64) uint64 {
	return (r.readCommit.Load() + r.size - writePos - 1) % r.size
}
