// Package dispatch hands work items from producers to consumers through a
// lock-free byte ring.
//
// A Dispatcher owns one bytering.Ring. Dispatch stamps the push time, encodes
// the item and pushes it; Fetch pops and decodes. Neither blocks: a full
// ring surfaces as ErrFull and an empty one as ErrEmpty, and the caller
// chooses its own backoff. Worker is the stock consumer loop.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/randomizedcoder/cirqueue/internal/bytering"
	"github.com/randomizedcoder/cirqueue/internal/metrics"
	"github.com/randomizedcoder/cirqueue/internal/tick"
)

const (
	// DefaultCapacity holds roughly 9000 small work items.
	DefaultCapacity = 9000 * 128

	// DefaultMaxPayload bounds a single item's payload.
	DefaultMaxPayload = 40 * 1024

	// depthSampleInterval paces the queue depth gauge.
	depthSampleInterval = 100 * time.Millisecond
)

var (
	ErrInitFailed     = bytering.ErrInitFailed
	ErrFull           = bytering.ErrFull
	ErrEmpty          = bytering.ErrEmpty
	ErrNotInitialized = bytering.ErrNotInitialized

	// ErrPayloadTooLarge rejects an item above Config.MaxPayload.
	ErrPayloadTooLarge = errors.New("dispatch: payload too large")

	// ErrCorruptRecord reports a record that does not decode as Work.
	ErrCorruptRecord = errors.New("dispatch: corrupt record")
)

// Config sizes a Dispatcher.
type Config struct {
	// Capacity is the ring size in bytes. Zero selects DefaultCapacity.
	Capacity int
	// MaxPayload is the largest accepted payload. Zero selects
	// DefaultMaxPayload, clamped so one item always fits an empty ring.
	MaxPayload int
}

// DefaultConfig returns the stock sizing.
func DefaultConfig() Config {
	return Config{
		Capacity:   DefaultCapacity,
		MaxPayload: DefaultMaxPayload,
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithMetrics attaches queue collectors.
func WithMetrics(m *metrics.Queue) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock overrides the time source used to stamp and age work.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// Dispatcher is safe for concurrent use by any number of producers and
// consumers once Init has returned.
type Dispatcher struct {
	cfg     Config
	ring    bytering.Ring
	log     *slog.Logger
	metrics *metrics.Queue
	now     func() time.Time
	depth   *tick.AtomicTicker
	bufs    sync.Pool
}

// New creates a Dispatcher. Call Init before use.
func New(cfg Config, opts ...Option) *Dispatcher {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.MaxPayload == 0 {
		cfg.MaxPayload = DefaultMaxPayload
	}
	d := &Dispatcher{
		cfg:   cfg,
		log:   slog.Default(),
		now:   time.Now,
		depth: tick.NewAtomicTicker(depthSampleInterval),
	}
	d.bufs.New = func() any {
		b := make([]byte, 0, workHeaderSize+256)
		return &b
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init provisions the ring. A failure here must abort startup.
func (d *Dispatcher) Init() error {
	if err := d.ring.Init(d.cfg.Capacity); err != nil {
		d.log.Error("dispatch queue init failed", "capacity", d.cfg.Capacity, "error", err)
		return fmt.Errorf("dispatch: init queue: %w", err)
	}

	// An item must fit an empty ring.
	if limit := d.cfg.Capacity - bytering.HeaderSize - workHeaderSize; d.cfg.MaxPayload > limit {
		d.cfg.MaxPayload = max(limit, 0)
	}
	d.log.Debug("dispatch queue ready", "capacity", d.cfg.Capacity, "max_payload", d.cfg.MaxPayload)
	return nil
}

// Dispatch stamps w.PushTime and enqueues a copy of w. It returns ErrFull
// (unwrapped) when the ring has no room; the caller decides whether to retry.
func (d *Dispatcher) Dispatch(w Work) error {
	if !d.ring.Initialized() {
		return ErrNotInitialized
	}
	if len(w.Payload) > d.cfg.MaxPayload {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(w.Payload), d.cfg.MaxPayload)
	}

	w.PushTime = d.now()

	bp := d.bufs.Get().(*[]byte)
	rec := w.appendTo((*bp)[:0])
	err := d.ring.Push(rec)
	*bp = rec
	d.bufs.Put(bp)

	if err != nil {
		if errors.Is(err, ErrFull) {
			d.metrics.Rejected()
			d.log.Debug("dispatch queue full", "kind", w.Kind, "bytes", w.encodedLen(), "queued", d.ring.Len())
		}
		return err
	}

	d.metrics.Pushed()
	if d.depth.Tick() {
		d.metrics.Depth(d.ring.Len())
	}
	return nil
}

// Fetch removes the oldest item. It returns ErrEmpty when nothing is queued.
func (d *Dispatcher) Fetch() (Work, error) {
	if !d.ring.Initialized() {
		return Work{}, ErrNotInitialized
	}
	if d.Empty() {
		return Work{}, ErrEmpty
	}

	rec, err := d.ring.Pop()
	if err != nil {
		return Work{}, err
	}
	w, err := decodeWork(rec)
	if err != nil {
		d.log.Error("dropping undecodable work", "bytes", len(rec), "error", err)
		return Work{}, err
	}

	d.metrics.Popped(d.now().Sub(w.PushTime))
	return w, nil
}

// Empty reports whether the queue looked empty. Advisory.
func (d *Dispatcher) Empty() bool {
	return d.ring.Len() <= 0
}

// Len returns the advisory number of queued items.
func (d *Dispatcher) Len() int {
	return d.ring.Len()
}

// Cap returns the ring capacity in bytes, or 0 before Init.
func (d *Dispatcher) Cap() int {
	return d.ring.Cap()
}

// MaxPayload returns the effective payload limit.
func (d *Dispatcher) MaxPayload() int {
	return d.cfg.MaxPayload
}
