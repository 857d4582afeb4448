package dispatch

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/randomizedcoder/cirqueue/internal/cancel"
)

func TestWorkCodec(t *testing.T) {
	w := Work{Kind: KindLog, Payload: []byte("payload"), PushTime: time.Unix(0, 42)}
	rec := w.appendTo(nil)
	if len(rec) != w.encodedLen() {
		t.Fatalf("expected %d encoded bytes, got %d", w.encodedLen(), len(rec))
	}

	got, err := decodeWork(rec)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindLog || string(got.Payload) != "payload" || got.PushTime.UnixNano() != 42 {
		t.Errorf("decoded %+v", got)
	}
}

func TestDecodeWork_Short(t *testing.T) {
	if _, err := decodeWork(make([]byte, workHeaderSize-1)); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord, got %v", err)
	}
	w, err := decodeWork(make([]byte, workHeaderSize))
	if err != nil || len(w.Payload) != 0 {
		t.Errorf("expected empty payload from a bare header, got %v, %v", w.Payload, err)
	}
}

// A record pushed straight into the ring without the work header is
// reported, counted by the worker and skipped.
func TestFetch_CorruptRecord(t *testing.T) {
	d := New(Config{Capacity: 256})
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.ring.Push([]byte("bad")); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Fetch(); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
	if !d.Empty() {
		t.Error("expected corrupt record to be consumed")
	}
}

// TestWorker_ObserveWaitKeepsMax feeds waits from many goroutines, largest
// first on some and last on others, and checks the maximum survives.
func TestWorker_ObserveWaitKeepsMax(t *testing.T) {
	const goroutines = 8
	const steps = 1000

	wk := NewWorker(New(Config{}), HandlerFunc(func(Work) error { return nil }), cancel.NewAtomic(), WorkerConfig{})

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(descending bool) {
			defer wg.Done()
			for i := 0; i < steps; i++ {
				d := time.Duration(i)
				if descending {
					d = time.Duration(steps - 1 - i)
				}
				wk.observeWait(d * time.Microsecond)
			}
		}(g%2 == 0)
	}
	wg.Wait()

	if got, want := wk.Stats().MaxWait, time.Duration(steps-1)*time.Microsecond; got != want {
		t.Errorf("expected MaxWait %v, got %v", want, got)
	}
	wk.observeWait(time.Microsecond)
	if got := wk.Stats().MaxWait; got != time.Duration(steps-1)*time.Microsecond {
		t.Errorf("a smaller wait lowered MaxWait to %v", got)
	}
}
