// Package asynclog moves log file I/O off the calling goroutine.
//
// Producers call FileWriter.Write, which copies the bytes into a pooled
// Chunk and pushes it onto a bounded TypedRing. A Manager goroutine wakes on
// a ticker, drains every writer and performs the blocking file writes. When
// the queue is full, output is dropped and counted rather than blocking the
// producer.
//
// Reopen supports external log rotation: the next cycle writes out what is
// queued, closes the file and reopens the path in append mode.
package asynclog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randomizedcoder/cirqueue/internal/metrics"
	"github.com/randomizedcoder/cirqueue/internal/queue"
	"github.com/randomizedcoder/cirqueue/internal/tick"
)

const (
	DefaultFlushInterval = tick.DefaultInterval
	DefaultQueueCapacity = 64 * 1024
)

// Config controls a Manager.
type Config struct {
	// FlushInterval is the pause between flush cycles.
	FlushInterval time.Duration
	// QueueCapacity is the number of chunks each writer can hold.
	QueueCapacity int
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		FlushInterval: DefaultFlushInterval,
		QueueCapacity: DefaultQueueCapacity,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for the Manager's own diagnostics. It must not
// write into a FileWriter owned by the same Manager.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics attaches the log collectors.
func WithMetrics(l *metrics.Log) Option {
	return func(m *Manager) { m.metrics = l }
}

// Manager owns a set of FileWriters and the goroutine that flushes them.
type Manager struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Log

	mu          sync.Mutex
	initialized bool
	writers     map[string]*FileWriter

	reopen atomic.Bool

	runMu  sync.Mutex
	stop   context.CancelFunc
	done   chan struct{}
	runErr error
}

// NewManager creates a Manager. Call Initialize before requesting writers.
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		log:     slog.Default(),
		writers: make(map[string]*FileWriter),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize fills in defaults and validates the configuration.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.FlushInterval == 0 {
		m.cfg.FlushInterval = DefaultFlushInterval
	}
	if m.cfg.QueueCapacity == 0 {
		m.cfg.QueueCapacity = DefaultQueueCapacity
	}
	if m.cfg.FlushInterval < 0 {
		return fmt.Errorf("%w: asynclog: flush interval %v", queue.ErrInitFailed, m.cfg.FlushInterval)
	}
	if m.cfg.QueueCapacity < 0 {
		return fmt.Errorf("%w: asynclog: queue capacity %d", queue.ErrInitFailed, m.cfg.QueueCapacity)
	}

	m.initialized = true
	m.log.Debug("async log manager ready",
		"flush_interval", m.cfg.FlushInterval, "queue_capacity", m.cfg.QueueCapacity)
	return nil
}

// Writer returns the writer for filename, creating it and opening the file
// in append mode on first use. Every caller asking for the same filename
// shares one writer.
func (m *Manager) Writer(filename string) (*FileWriter, error) {
	if filename == "" {
		return nil, errors.New("asynclog: empty filename")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, queue.ErrNotInitialized
	}
	if w, ok := m.writers[filename]; ok {
		return w, nil
	}

	w, err := NewFileWriter(filename, m.cfg.QueueCapacity, m.log, m.metrics.File(filename))
	if err != nil {
		return nil, err
	}
	if err := w.OpenAppend(); err != nil {
		return nil, err
	}
	m.writers[filename] = w
	return w, nil
}

// Reopen asks the flush goroutine to reopen every file on its next cycle.
// It does not block.
func (m *Manager) Reopen() {
	m.reopen.Store(true)
}

// Size returns the number of chunks queued across all writers.
func (m *Manager) Size() int {
	n := 0
	for _, w := range m.snapshot() {
		n += w.Pending()
	}
	return n
}

// Stats returns per-writer counters ordered by path.
func (m *Manager) Stats() []Stats {
	ws := m.snapshot()
	out := make([]Stats, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Stats())
	}
	return out
}

func (m *Manager) snapshot() []*FileWriter {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := make([]*FileWriter, 0, len(m.writers))
	for _, w := range m.writers {
		ws = append(ws, w)
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i].path < ws[j].path })
	return ws
}

// Run is the flush loop. It runs one cycle per FlushInterval until ctx is
// cancelled, then flushes and closes every writer.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	ready, interval := m.initialized, m.cfg.FlushInterval
	m.mu.Unlock()
	if !ready {
		return queue.ErrNotInitialized
	}

	t := tick.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			m.cycle()
			m.closeAll()
			return nil
		case <-t.C():
			m.cycle()
		}
	}
}

// cycle flushes every writer, or reopens them all if Reopen was called.
func (m *Manager) cycle() {
	reopen := m.reopen.Swap(false)
	for _, w := range m.snapshot() {
		if reopen {
			if err := w.reopen(); err != nil {
				m.log.Error("reopen log file failed", "file", w.path, "error", err)
			} else {
				m.log.Info("reopened log file", "file", w.path)
			}
			continue
		}
		if err := w.Flush(); err != nil && !errors.Is(err, ErrNotOpen) {
			m.log.Error("flush log file failed", "file", w.path, "error", err)
		}
	}
}

func (m *Manager) closeAll() {
	for _, w := range m.snapshot() {
		if err := w.Close(); err != nil {
			m.log.Warn("close log file failed", "file", w.path, "error", err)
		}
	}
}

// Start runs the flush loop on its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.done != nil {
		return
	}

	ctx, m.stop = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		if err := m.Run(ctx); err != nil {
			m.log.Error("async log manager stopped", "error", err)
			m.runMu.Lock()
			m.runErr = err
			m.runMu.Unlock()
		}
	}(m.done)
}

// Stop cancels the flush loop started by Start and waits for the final
// flush. It returns the error Run exited with, if any.
func (m *Manager) Stop() error {
	m.runMu.Lock()
	stop, done := m.stop, m.done
	m.runMu.Unlock()
	if stop == nil {
		return nil
	}

	stop()
	<-done

	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.runErr
}
