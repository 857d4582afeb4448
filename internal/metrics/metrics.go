// Package metrics holds the Prometheus collectors for queues and async log
// writers.
//
// Collectors are created through promauto.With(reg). A nil registerer yields
// working collectors that are not exported anywhere, which is what tests and
// library callers without a registry get. Every recording method is safe on a
// nil receiver so components can treat metrics as optional.
//
// Label cardinality is bounded: queues are labelled by a fixed name chosen in
// code and log writers by file path, of which a process opens a handful.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "ringq"

// NewRegistry returns a registry carrying the Go runtime and process
// collectors, ready to be served by promhttp.HandlerFor.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Queue tracks one bounded queue.
type Queue struct {
	pushed   prometheus.Counter
	rejected prometheus.Counter
	popped   prometheus.Counter
	depth    prometheus.Gauge
	wait     prometheus.Histogram
}

// NewQueue creates the collectors for the queue called name.
func NewQueue(reg prometheus.Registerer, name string) *Queue {
	f := promauto.With(reg)
	labels := prometheus.Labels{"queue": name}

	return &Queue{
		pushed: f.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Subsystem:   "queue",
			Name:        "pushed_total",
			Help:        "Records accepted by the queue",
			ConstLabels: labels,
		}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Subsystem:   "queue",
			Name:        "rejected_total",
			Help:        "Pushes rejected because the queue was full",
			ConstLabels: labels,
		}),
		popped: f.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Subsystem:   "queue",
			Name:        "popped_total",
			Help:        "Records removed from the queue",
			ConstLabels: labels,
		}),
		depth: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Subsystem:   "queue",
			Name:        "depth",
			Help:        "Sampled number of queued records",
			ConstLabels: labels,
		}),
		wait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   Namespace,
			Subsystem:   "queue",
			Name:        "wait_seconds",
			Help:        "Time between push and pop",
			Buckets:     []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			ConstLabels: labels,
		}),
	}
}

// Pushed counts an accepted record.
func (q *Queue) Pushed() {
	if q == nil {
		return
	}
	q.pushed.Inc()
}

// Rejected counts a push refused with ErrFull.
func (q *Queue) Rejected() {
	if q == nil {
		return
	}
	q.rejected.Inc()
}

// Popped counts a removed record and how long it waited.
func (q *Queue) Popped(wait time.Duration) {
	if q == nil {
		return
	}
	q.popped.Inc()
	if wait >= 0 {
		q.wait.Observe(wait.Seconds())
	}
}

// Depth records a sampled queue length.
func (q *Queue) Depth(n int) {
	if q == nil {
		return
	}
	q.depth.Set(float64(n))
}

// Log holds the per-file collectors shared by every async log writer.
type Log struct {
	enqueued      *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	flushedChunks *prometheus.CounterVec
	flushedBytes  *prometheus.CounterVec
	writeErrors   *prometheus.CounterVec
	reopens       *prometheus.CounterVec
	pending       *prometheus.GaugeVec
	flushDuration *prometheus.HistogramVec
}

// NewLog creates the log writer collectors.
func NewLog(reg prometheus.Registerer) *Log {
	f := promauto.With(reg)
	byFile := []string{"file"}

	return &Log{
		enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "log",
			Name:      "enqueued_total",
			Help:      "Chunks queued for writing",
		}, byFile),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "log",
			Name:      "dropped_total",
			Help:      "Chunks dropped because the write queue was full",
		}, byFile),
		flushedChunks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "log",
			Name:      "flushed_chunks_total",
			Help:      "Chunks written to the file",
		}, byFile),
		flushedBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "log",
			Name:      "flushed_bytes_total",
			Help:      "Bytes written to the file",
		}, byFile),
		writeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "log",
			Name:      "write_errors_total",
			Help:      "File writes that failed and were discarded",
		}, byFile),
		reopens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "log",
			Name:      "reopens_total",
			Help:      "Times the file was closed and reopened",
		}, byFile),
		pending: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "log",
			Name:      "pending_chunks",
			Help:      "Chunks queued at the end of the last flush",
		}, byFile),
		flushDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "log",
			Name:      "flush_duration_seconds",
			Help:      "Time spent draining a writer",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, byFile),
	}
}

// File binds the collectors to one file path.
func (l *Log) File(path string) *File {
	if l == nil {
		return nil
	}
	return &File{
		enqueued:      l.enqueued.WithLabelValues(path),
		dropped:       l.dropped.WithLabelValues(path),
		flushedChunks: l.flushedChunks.WithLabelValues(path),
		flushedBytes:  l.flushedBytes.WithLabelValues(path),
		writeErrors:   l.writeErrors.WithLabelValues(path),
		reopens:       l.reopens.WithLabelValues(path),
		pending:       l.pending.WithLabelValues(path),
		flushDuration: l.flushDuration.WithLabelValues(path),
	}
}

// File is the set of log collectors for a single file.
type File struct {
	enqueued      prometheus.Counter
	dropped       prometheus.Counter
	flushedChunks prometheus.Counter
	flushedBytes  prometheus.Counter
	writeErrors   prometheus.Counter
	reopens       prometheus.Counter
	pending       prometheus.Gauge
	flushDuration prometheus.Observer
}

func (f *File) Enqueued() {
	if f == nil {
		return
	}
	f.enqueued.Inc()
}

func (f *File) Dropped() {
	if f == nil {
		return
	}
	f.dropped.Inc()
}

// Flushed counts one chunk of n bytes written to the file.
func (f *File) Flushed(n int) {
	if f == nil {
		return
	}
	f.flushedChunks.Inc()
	f.flushedBytes.Add(float64(n))
}

func (f *File) WriteError() {
	if f == nil {
		return
	}
	f.writeErrors.Inc()
}

func (f *File) Reopened() {
	if f == nil {
		return
	}
	f.reopens.Inc()
}

// FlushDone records the duration of a drain and the chunks left behind.
func (f *File) FlushDone(d time.Duration, pending int) {
	if f == nil {
		return
	}
	f.flushDuration.Observe(d.Seconds())
	f.pending.Set(float64(pending))
}
