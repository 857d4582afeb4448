package dispatch_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomizedcoder/cirqueue/internal/cancel"
	"github.com/randomizedcoder/cirqueue/internal/dispatch"
)

func TestWorker_HandlesAndDrains(t *testing.T) {
	d := newDispatcher(t, dispatch.Config{Capacity: 1 << 16})
	c := cancel.NewAtomic()

	var (
		mu  sync.Mutex
		got []string
	)
	h := dispatch.HandlerFunc(func(w dispatch.Work) error {
		mu.Lock()
		got = append(got, string(w.Payload))
		mu.Unlock()
		return nil
	})

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, d.Dispatch(dispatch.Work{Kind: dispatch.KindLog, Payload: []byte(s)}))
	}

	wk := dispatch.NewWorker(d, h, c, dispatch.WorkerConfig{IdleWait: time.Millisecond})
	done := make(chan struct{})
	go func() {
		wk.Run()
		close(done)
	}()

	require.Eventually(t, func() bool { return wk.Stats().Handled == 3 }, 2*time.Second, time.Millisecond)

	// Queued after the first batch; must still be handled after Cancel.
	for _, s := range []string{"d", "e"} {
		require.NoError(t, d.Dispatch(dispatch.Work{Kind: dispatch.KindLog, Payload: []byte(s)}))
	}
	c.Cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after Cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
	assert.True(t, d.Empty())
}

func TestWorker_HandlerErrorsDoNotStopLoop(t *testing.T) {
	d := newDispatcher(t, dispatch.Config{Capacity: 1 << 16})
	c := cancel.NewAtomic()

	var calls atomic.Int32
	h := dispatch.HandlerFunc(func(w dispatch.Work) error {
		if calls.Add(1)%2 == 1 {
			return errors.New("sink unavailable")
		}
		return nil
	})

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Dispatch(dispatch.Work{Payload: []byte{byte(i)}}))
	}

	wk := dispatch.NewWorker(d, h, c, dispatch.WorkerConfig{})
	done := make(chan struct{})
	go func() {
		wk.Run()
		close(done)
	}()

	require.Eventually(t, func() bool {
		s := wk.Stats()
		return s.Handled+s.Failed == 10
	}, 2*time.Second, time.Millisecond)
	c.Cancel()
	<-done

	s := wk.Stats()
	assert.Equal(t, uint64(5), s.Handled)
	assert.Equal(t, uint64(5), s.Failed)
}

func TestWorker_IdleWakesOnCancel(t *testing.T) {
	d := newDispatcher(t, dispatch.Config{Capacity: 1024})
	c := cancel.NewAtomic()

	wk := dispatch.NewWorker(d, dispatch.HandlerFunc(func(dispatch.Work) error { return nil }), c,
		dispatch.WorkerConfig{IdleWait: time.Hour})

	done := make(chan struct{})
	go func() {
		wk.Run()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	c.Cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("idle worker did not wake on Cancel")
	}
}

func TestWorker_TracksMaxWait(t *testing.T) {
	var now atomic.Int64
	now.Store(time.Unix(1000, 0).UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	d := newDispatcher(t, dispatch.Config{Capacity: 1024}, dispatch.WithClock(clock))
	require.NoError(t, d.Dispatch(dispatch.Work{Payload: []byte("x")}))
	now.Add(int64(250 * time.Millisecond))

	c := cancel.NewAtomic()
	c.Cancel() // Run goes straight to the drain
	wk := dispatch.NewWorker(d, dispatch.HandlerFunc(func(dispatch.Work) error { return nil }), c,
		dispatch.WorkerConfig{StatsInterval: time.Second, StatsEvery: 1})
	wk.Run()

	s := wk.Stats()
	assert.Equal(t, uint64(1), s.Handled)
	assert.Equal(t, 250*time.Millisecond, s.MaxWait)
}
