package asynclog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/randomizedcoder/cirqueue/internal/metrics"
	"github.com/randomizedcoder/cirqueue/internal/queue"
)

const (
	fileMode = 0o644

	// Warnings about drops and failed writes are limited to one per second
	// with a small burst.
	warnEvery = time.Second
	warnBurst = 3
)

var (
	// ErrFull is returned by Write when the chunk queue has no room. The
	// data is dropped.
	ErrFull = queue.ErrFull

	// ErrNotOpen is returned by Flush when the file is not open. Queued
	// chunks are kept for a later flush.
	ErrNotOpen = errors.New("asynclog: file not open")
)

// FileWriter queues log output in memory and writes it to a file when
// flushed. Write never touches the file, so it is safe to call from latency
// sensitive goroutines; one goroutine, normally the Manager's, calls Flush.
//
// FileWriter implements io.Writer so a slog handler can render into it.
// Its own diagnostics go to a separate logger, which must not write back
// into the same FileWriter.
type FileWriter struct {
	path   string
	chunks *queue.TypedRing[*Chunk]
	log    *slog.Logger
	m      *metrics.File

	// fileMu serialises flushing against open, close and reopen.
	fileMu  sync.Mutex
	file    *os.File
	scratch []*Chunk

	dropped  atomic.Uint64
	written  atomic.Uint64
	dropWarn *rate.Limiter
	errWarn  *rate.Limiter
}

// NewFileWriter creates a writer for path with room for capacity queued
// chunks. The file is not opened; call Open or OpenAppend.
func NewFileWriter(path string, capacity int, log *slog.Logger, m *metrics.File) (*FileWriter, error) {
	chunks, err := queue.NewTypedRing[*Chunk](capacity)
	if err != nil {
		return nil, fmt.Errorf("asynclog: %s: %w", path, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &FileWriter{
		path:     path,
		chunks:   chunks,
		log:      log.With("file", path),
		m:        m,
		scratch:  make([]*Chunk, 64),
		dropWarn: rate.NewLimiter(rate.Every(warnEvery), warnBurst),
		errWarn:  rate.NewLimiter(rate.Every(warnEvery), warnBurst),
	}, nil
}

// Open opens the file for writing, truncating it.
func (w *FileWriter) Open() error {
	return w.open(os.O_CREATE | os.O_WRONLY | os.O_TRUNC)
}

// OpenAppend opens the file for writing at its end.
func (w *FileWriter) OpenAppend() error {
	return w.open(os.O_CREATE | os.O_WRONLY | os.O_APPEND)
}

func (w *FileWriter) open(flag int) error {
	w.fileMu.Lock()
	defer w.fileMu.Unlock()
	return w.openLocked(flag)
}

func (w *FileWriter) openLocked(flag int) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	f, err := os.OpenFile(w.path, flag, fileMode)
	if err != nil {
		return fmt.Errorf("asynclog: open %s: %w", w.path, err)
	}
	w.file = f
	return nil
}

// Close closes the file. Chunks still queued stay queued.
func (w *FileWriter) Close() error {
	w.fileMu.Lock()
	defer w.fileMu.Unlock()
	return w.closeLocked()
}

func (w *FileWriter) closeLocked() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("asynclog: close %s: %w", w.path, err)
	}
	return nil
}

// Write copies p into a pooled chunk and queues it. When the queue is full
// the data is dropped and ErrFull is returned.
func (w *FileWriter) Write(p []byte) (int, error) {
	c := getChunk()
	c.buf = append(c.buf, p...)
	if err := w.enqueue(c); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Writev queues bufs as a single chunk, so they reach the file contiguously.
func (w *FileWriter) Writev(bufs ...[]byte) (int, error) {
	c := getChunk()
	for _, b := range bufs {
		c.buf = append(c.buf, b...)
	}
	n := len(c.buf)
	if err := w.enqueue(c); err != nil {
		return 0, err
	}
	return n, nil
}

func (w *FileWriter) enqueue(c *Chunk) error {
	if err := w.chunks.Push(c); err != nil {
		n := c.Len()
		putChunk(c)
		w.dropped.Add(1)
		w.m.Dropped()
		if w.dropWarn.Allow() {
			w.log.Warn("log queue full, dropping output",
				"bytes", n, "dropped_total", w.dropped.Load())
		}
		return err
	}
	w.m.Enqueued()
	return nil
}

// Flush writes every chunk queued when it was called and returns the chunks
// to the pool. Write errors are logged and the affected chunk is discarded.
// If the file is not open Flush returns ErrNotOpen and writes nothing.
func (w *FileWriter) Flush() error {
	w.fileMu.Lock()
	defer w.fileMu.Unlock()
	return w.flushLocked()
}

func (w *FileWriter) flushLocked() error {
	if w.file == nil {
		return ErrNotOpen
	}

	start := time.Now()
	// Bounded so producers that never pause cannot hold the flush forever.
	budget := w.chunks.Cap()
	for budget > 0 {
		n := w.chunks.DrainTo(w.scratch[:min(len(w.scratch), budget)])
		if n == 0 {
			break
		}
		budget -= n
		for i, c := range w.scratch[:n] {
			w.writeChunk(c)
			putChunk(c)
			w.scratch[i] = nil
		}
	}
	w.m.FlushDone(time.Since(start), w.chunks.Len())
	return nil
}

func (w *FileWriter) writeChunk(c *Chunk) {
	if _, err := w.file.Write(c.buf); err != nil {
		w.m.WriteError()
		if w.errWarn.Allow() {
			w.log.Warn("log write failed, discarding chunk", "bytes", c.Len(), "error", err)
		}
		return
	}
	w.written.Add(uint64(c.Len()))
	w.m.Flushed(c.Len())
}

// reopen writes out what is queued, then closes and reopens the file in
// append mode. Used after the file has been rotated away.
func (w *FileWriter) reopen() error {
	w.fileMu.Lock()
	defer w.fileMu.Unlock()

	if err := w.flushLocked(); err != nil && !errors.Is(err, ErrNotOpen) {
		return err
	}
	if err := w.closeLocked(); err != nil {
		w.log.Warn("close before reopen failed", "error", err)
	}
	if err := w.openLocked(os.O_CREATE | os.O_WRONLY | os.O_APPEND); err != nil {
		return err
	}
	w.m.Reopened()
	return nil
}

// Pending returns the number of queued chunks.
func (w *FileWriter) Pending() int {
	return w.chunks.Len()
}

// Path returns the file path.
func (w *FileWriter) Path() string {
	return w.path
}

// Stats is a snapshot of a FileWriter's counters.
type Stats struct {
	Path         string `json:"path"`
	Pending      int    `json:"pending"`
	Dropped      uint64 `json:"dropped"`
	BytesWritten uint64 `json:"bytes_written"`
}

// Stats returns the current counters.
func (w *FileWriter) Stats() Stats {
	return Stats{
		Path:         w.path,
		Pending:      w.chunks.Len(),
		Dropped:      w.dropped.Load(),
		BytesWritten: w.written.Load(),
	}
}
