package queue_test

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/randomizedcoder/cirqueue/internal/queue"
)

func TestTypedRing_CapacityAndLen(t *testing.T) {
	for _, capacity := range []int{1, 2, 7, 64, 1000} {
		q := newTyped(t, capacity)
		if q.Cap() != capacity {
			t.Errorf("expected Cap() = %d, got %d", capacity, q.Cap())
		}
		if q.Len() != 0 {
			t.Errorf("expected Len() = 0 after init, got %d", q.Len())
		}
	}
}

func TestTypedRing_DefaultAndClamp(t *testing.T) {
	q := newTyped(t, 0)
	if q.Cap() != queue.DefaultTypedCapacity {
		t.Errorf("expected Cap() = %d for capacity 0, got %d", queue.DefaultTypedCapacity, q.Cap())
	}

	q = newTyped(t, queue.MaxTypedCapacity*2)
	if q.Cap() != queue.MaxTypedCapacity {
		t.Errorf("expected Cap() clamped to %d, got %d", queue.MaxTypedCapacity, q.Cap())
	}

	if _, err := queue.NewTypedRing[int](-1); !errors.Is(err, queue.ErrInitFailed) {
		t.Errorf("expected ErrInitFailed for negative capacity, got %v", err)
	}
}

func TestTypedRing_NotInitialized(t *testing.T) {
	var q queue.TypedRing[int]
	if err := q.Push(1); !errors.Is(err, queue.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from Push, got %v", err)
	}
	if _, err := q.Pop(); !errors.Is(err, queue.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from Pop, got %v", err)
	}
	if q.Cap() != 0 {
		t.Errorf("expected Cap() = 0, got %d", q.Cap())
	}
}

func TestTypedRing_OwnershipTransfer(t *testing.T) {
	type chunk struct{ b []byte }

	q, err := queue.NewTypedRing[*chunk](2)
	if err != nil {
		t.Fatal(err)
	}

	in := &chunk{b: []byte("hello")}
	if err := q.Push(in); err != nil {
		t.Fatal(err)
	}
	out, err := q.Shift()
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatal("expected the same handle back")
	}

	var drained [4]*chunk
	if n := q.DrainTo(drained[:]); n != 0 {
		t.Fatalf("expected empty ring, drained %d", n)
	}
}

func TestTypedRing_DrainTo(t *testing.T) {
	q := newTyped(t, 16)
	for i := 0; i < 10; i++ {
		if err := q.Push(i); err != nil {
			t.Fatal(err)
		}
	}

	buf := make([]int, 4)
	if n := q.DrainTo(buf); n != 4 {
		t.Fatalf("expected 4 drained, got %d", n)
	}
	for i, v := range buf {
		if v != i {
			t.Errorf("expected buf[%d] = %d, got %d", i, i, v)
		}
	}

	buf = make([]int, 32)
	if n := q.DrainTo(buf); n != 6 {
		t.Fatalf("expected remaining 6 drained, got %d", n)
	}
	if q.Len() != 0 {
		t.Errorf("expected Len() = 0, got %d", q.Len())
	}
}

// TestTypedRing_MPSC runs several producers against one consumer and checks
// that every element arrives exactly once and per-producer order holds.
// Run with: go test -race ./internal/queue
func TestTypedRing_MPSC(t *testing.T) {
	const producers = 8
	const perProducer = 5000

	q := newTyped(t, 64)
	var wg sync.WaitGroup

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := id*perProducer + i
				for q.Push(v) != nil {
					runtime.Gosched()
				}
			}
		}(p)
	}

	seen := make([]bool, producers*perProducer)
	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}

	received := 0
	for received < producers*perProducer {
		v, err := q.Pop()
		if err != nil {
			runtime.Gosched()
			continue
		}
		if seen[v] {
			t.Fatalf("duplicate element %d", v)
		}
		seen[v] = true

		id, seq := v/perProducer, v%perProducer
		if seq <= last[id] {
			t.Fatalf("producer %d order violated: %d after %d", id, seq, last[id])
		}
		last[id] = seq
		received++
	}

	wg.Wait()

	if _, err := q.Pop(); !errors.Is(err, queue.ErrEmpty) {
		t.Errorf("expected ErrEmpty after draining, got %v", err)
	}
}

// TestTypedRing_LenNeverNegative samples Len while a producer and a consumer
// hand single elements back and forth, so the counter updates made outside
// the lock are constantly racing each other.
func TestTypedRing_LenNeverNegative(t *testing.T) {
	const rounds = 20000

	q := newTyped(t, 4)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			for q.Push(i) != nil {
				runtime.Gosched()
			}
		}
	}()
	go func() {
		defer wg.Done()
		for got := 0; got < rounds; {
			if _, err := q.Pop(); err == nil {
				got++
			}
		}
	}()

	stop := make(chan struct{})
	sampled := make(chan int)
	go func() {
		low := 0
		for {
			select {
			case <-stop:
				sampled <- low
				return
			default:
				low = min(low, q.Len())
			}
		}
	}()

	wg.Wait()
	close(stop)
	if low := <-sampled; low < 0 {
		t.Errorf("expected Len() >= 0 at all times, observed %d", low)
	}
	if q.Len() != 0 {
		t.Errorf("expected Len() = 0 after draining, got %d", q.Len())
	}
}

func TestChannelQueue_InvalidSize(t *testing.T) {
	if _, err := queue.NewChannel[int](0); !errors.Is(err, queue.ErrInitFailed) {
		t.Errorf("expected ErrInitFailed, got %v", err)
	}
}
