// Command queuebench compares the queues on a single goroutine, push + pop
// per iteration, and then the cost of the cancel and tick checks a polling
// consumer makes around each pop.
//
// Usage:
//
//	go run ./cmd/queuebench -n 10000000 -size 1024 -payload 64
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/randomizedcoder/cirqueue/internal/bytering"
	"github.com/randomizedcoder/cirqueue/internal/cancel"
	"github.com/randomizedcoder/cirqueue/internal/queue"
	"github.com/randomizedcoder/cirqueue/internal/tick"
)

type result struct {
	name string
	dur  time.Duration
}

func (r result) perOp(n int) float64 {
	return float64(r.dur.Nanoseconds()) / float64(n)
}

func main() {
	iterations := flag.Int("n", 10_000_000, "number of iterations")
	size := flag.Int("size", 1024, "queue size (items, or records for the byte ring)")
	payload := flag.Int("payload", 64, "byte ring payload size")
	flag.Parse()

	fmt.Printf("Benchmarking queues (%d iterations, size=%d, payload=%d)\n", *iterations, *size, *payload)
	fmt.Printf("Architecture: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Println("─────────────────────────────────────────────────")

	queues, err := benchQueues(*iterations, *size, *payload)
	if err != nil {
		fmt.Fprintln(os.Stderr, "queuebench:", err)
		os.Exit(1)
	}
	report("push + pop per iteration", queues, *iterations)

	report("cancel + tick check per iteration", benchLoopChecks(*iterations), *iterations)
}

func benchQueues(n, size, payload int) ([]result, error) {
	ch, err := queue.NewChannel[int](size)
	if err != nil {
		return nil, err
	}
	tr, err := queue.NewTypedRing[int](size)
	if err != nil {
		return nil, err
	}
	br, err := bytering.New(size * (payload + bytering.HeaderSize))
	if err != nil {
		return nil, err
	}

	var results []result

	start := time.Now()
	for i := 0; i < n; i++ {
		_ = ch.Push(i)
		_, _ = ch.Pop()
	}
	results = append(results, result{"Channel", time.Since(start)})

	start = time.Now()
	for i := 0; i < n; i++ {
		_ = tr.Push(i)
		_, _ = tr.Pop()
	}
	results = append(results, result{"TypedRing", time.Since(start)})

	p := make([]byte, payload)
	dst := make([]byte, payload)
	start = time.Now()
	for i := 0; i < n; i++ {
		_ = br.Push(p)
		_, _ = br.PopInto(dst)
	}
	results = append(results, result{"ByteRing", time.Since(start)})

	return results, nil
}

// benchLoopChecks measures the Done + Tick pair a worker evaluates on every
// pass. The interval is long so only the check cost is measured.
func benchLoopChecks(n int) []result {
	const interval = time.Hour
	var results []result

	ctxCancel := cancel.NewContext(context.Background())
	std := tick.NewTicker(interval)
	start := time.Now()
	for i := 0; i < n; i++ {
		_ = ctxCancel.Done()
		_ = std.Tick()
	}
	results = append(results, result{"ctx + StdTicker", time.Since(start)})
	std.Stop()

	ac := cancel.NewAtomic()
	at := tick.NewAtomicTicker(interval)
	start = time.Now()
	for i := 0; i < n; i++ {
		_ = ac.Done()
		_ = at.Tick()
	}
	results = append(results, result{"atomic + AtomicTicker", time.Since(start)})

	bt := tick.NewBatch(interval, 1000)
	start = time.Now()
	for i := 0; i < n; i++ {
		_ = ac.Done()
		_ = bt.Tick()
	}
	results = append(results, result{"atomic + BatchTicker", time.Since(start)})

	return results
}

func report(title string, results []result, n int) {
	fmt.Printf("\nResults (%s):\n", title)
	base := results[0].perOp(n)
	for _, r := range results {
		per := r.perOp(n)
		fmt.Printf("  %-22s %v (%.2f ns/op, %.2f M ops/sec, %.2fx vs %s)\n",
			r.name+":", r.dur, per, 1000/per, base/per, results[0].name)
	}
}
