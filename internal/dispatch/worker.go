package dispatch

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/randomizedcoder/cirqueue/internal/cancel"
	"github.com/randomizedcoder/cirqueue/internal/tick"
)

// Handler processes one fetched item.
type Handler interface {
	Handle(w Work) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(w Work) error

func (f HandlerFunc) Handle(w Work) error { return f(w) }

// WorkerConfig paces a Worker.
type WorkerConfig struct {
	// IdleWait is how long to pause after an empty fetch.
	IdleWait time.Duration
	// StatsInterval is how often a stats line is logged. Zero disables it.
	StatsInterval time.Duration
	// StatsEvery is how many loop iterations pass between clock reads.
	StatsEvery int
}

// DefaultWorkerConfig returns the stock pacing.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		IdleWait:      time.Millisecond,
		StatsInterval: 10 * time.Second,
		StatsEvery:    1000,
	}
}

// WorkerStats is a snapshot of a Worker's counters.
type WorkerStats struct {
	Handled uint64        `json:"handled"`
	Failed  uint64        `json:"failed"`
	Corrupt uint64        `json:"corrupt"`
	MaxWait time.Duration `json:"max_wait_ns"`
}

// Worker is a polling consumer: it fetches from a Dispatcher and hands each
// item to a Handler until its Canceler fires, then drains what is left.
type Worker struct {
	d   *Dispatcher
	h   Handler
	c   cancel.Canceler
	cfg WorkerConfig
	log *slog.Logger

	handled atomic.Uint64
	failed  atomic.Uint64
	corrupt atomic.Uint64
	maxWait atomic.Int64
}

// NewWorker binds a consumer loop to d. It logs through d's logger.
func NewWorker(d *Dispatcher, h Handler, c cancel.Canceler, cfg WorkerConfig) *Worker {
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = DefaultWorkerConfig().IdleWait
	}
	return &Worker{
		d:   d,
		h:   h,
		c:   c,
		cfg: cfg,
		log: d.log.With("component", "worker"),
	}
}

// Run loops until the Canceler is done. Handler errors are logged and
// counted; they never stop the loop. Items still queued at cancellation are
// handled before Run returns, so stop producers before cancelling.
func (wk *Worker) Run() {
	var stats *tick.BatchTicker
	if wk.cfg.StatsInterval > 0 {
		stats = tick.NewBatchWithClock(wk.cfg.StatsInterval, wk.cfg.StatsEvery, wk.d.now)
	}
	var last uint64

	for !wk.c.Done() {
		if !wk.step() {
			wk.c.Wait(wk.cfg.IdleWait)
		}
		if stats != nil && stats.Tick() {
			last = wk.logStats(last, stats.Interval())
		}
	}

	drained := 0
	for wk.step() {
		drained++
	}
	wk.log.Info("worker stopped", "handled", wk.handled.Load(), "failed", wk.failed.Load(), "drained", drained)
}

// step fetches and handles one item. It reports false when nothing was
// available.
func (wk *Worker) step() bool {
	w, err := wk.d.Fetch()
	switch {
	case err == nil:
	case errors.Is(err, ErrEmpty), errors.Is(err, ErrNotInitialized):
		return false
	case errors.Is(err, ErrCorruptRecord):
		wk.corrupt.Add(1)
		return true
	default:
		wk.log.Error("fetch failed", "error", err)
		return false
	}

	wk.observeWait(wk.d.now().Sub(w.PushTime))

	if err := wk.h.Handle(w); err != nil {
		wk.failed.Add(1)
		wk.log.Warn("handler failed", "kind", w.Kind, "bytes", len(w.Payload), "error", err)
		return true
	}
	wk.handled.Add(1)
	return true
}

// observeWait raises maxWait to d. Run may be called from more than one
// goroutine, so a smaller wait must never overwrite a larger one.
func (wk *Worker) observeWait(d time.Duration) {
	for {
		cur := wk.maxWait.Load()
		if int64(d) <= cur || wk.maxWait.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}

func (wk *Worker) logStats(last uint64, interval time.Duration) uint64 {
	handled := wk.handled.Load()
	rate := float64(handled-last) / interval.Seconds()
	wk.log.Info("worker stats",
		"handled", handled,
		"failed", wk.failed.Load(),
		"queued", wk.d.Len(),
		"rate_per_sec", rate,
		"max_wait", time.Duration(wk.maxWait.Load()),
	)
	return handled
}

// Stats returns the current counters.
func (wk *Worker) Stats() WorkerStats {
	return WorkerStats{
		Handled: wk.handled.Load(),
		Failed:  wk.failed.Load(),
		Corrupt: wk.corrupt.Load(),
		MaxWait: time.Duration(wk.maxWait.Load()),
	}
}
