// Command ringq runs the dispatch pipeline end to end: producers push log
// work onto the lock-free byte ring, a worker drains it into an async log
// file, and an optional debug server exposes metrics and a reopen trigger.
//
// Usage:
//
//	go run ./cmd/ringq -producers 8 -duration 10s -log /tmp/ringq.log
//
// Send SIGHUP to reopen the log file after rotation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/randomizedcoder/cirqueue/internal/asynclog"
	"github.com/randomizedcoder/cirqueue/internal/cancel"
	"github.com/randomizedcoder/cirqueue/internal/config"
	"github.com/randomizedcoder/cirqueue/internal/debugserver"
	"github.com/randomizedcoder/cirqueue/internal/dispatch"
	"github.com/randomizedcoder/cirqueue/internal/metrics"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using environment only")
	}
	cfg := config.Load()

	producers := flag.Int("producers", cfg.Pipeline.Producers, "number of producer goroutines")
	duration := flag.Duration("duration", cfg.Pipeline.Duration, "how long producers run")
	payload := flag.Int("payload", cfg.Pipeline.PayloadSize, "bytes per work item")
	logFile := flag.String("log", cfg.Log.File, "async log output file")
	debugAddr := flag.String("debug-addr", "", "enable the debug server on this address")
	capacity := flag.Int("capacity", cfg.Queue.DispatchCapacity, "dispatch ring capacity in bytes")
	flag.Parse()

	cfg.Pipeline.Producers = *producers
	cfg.Pipeline.Duration = *duration
	cfg.Pipeline.PayloadSize = *payload
	cfg.Log.File = *logFile
	cfg.Queue.DispatchCapacity = *capacity
	if *debugAddr != "" {
		cfg.Debug.Enabled = true
		cfg.Debug.ListenAddr = *debugAddr
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "ringq:", err)
		os.Exit(1)
	}
}

func run(cfg config.AppConfig) error {
	// Diagnostics go to stderr, never into a file the manager owns.
	diag := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level}))

	reg := metrics.NewRegistry()

	mgr := asynclog.NewManager(cfg.AsyncLog(),
		asynclog.WithLogger(diag.With("component", "asynclog")),
		asynclog.WithMetrics(metrics.NewLog(reg)))
	if err := mgr.Initialize(); err != nil {
		return err
	}
	out, err := mgr.Writer(cfg.Log.File)
	if err != nil {
		return err
	}
	mgr.Start(context.Background())

	// Application records share the async file with the work payloads.
	app := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Log.Level}))
	app.Info("ringq starting", "producers", cfg.Pipeline.Producers, "duration", cfg.Pipeline.Duration)

	d := dispatch.New(cfg.Dispatch(),
		dispatch.WithLogger(diag.With("component", "dispatch")),
		dispatch.WithMetrics(metrics.NewQueue(reg, "dispatch")))
	if err := d.Init(); err != nil {
		return err
	}

	workerStop := cancel.NewAtomic()
	wk := dispatch.NewWorker(d, dispatch.HandlerFunc(func(w dispatch.Work) error {
		_, err := out.Write(w.Payload)
		return err
	}), workerStop, dispatch.DefaultWorkerConfig())

	var srv *debugserver.Server
	if cfg.Debug.Enabled {
		srv = debugserver.New(cfg.Debug.ListenAddr, debugserver.NewRouter(debugserver.RouterConfig{
			Gatherer: reg,
			Stats: func() any {
				return map[string]any{
					"queue_len": d.Len(),
					"queue_cap": d.Cap(),
					"worker":    wk.Stats(),
					"log_files": mgr.Stats(),
				}
			},
			Reopen: mgr.Reopen,
		}), diag)
		if err := srv.Start(); err != nil {
			return err
		}
		fmt.Printf("debug server on http://%s\n", srv.Addr())
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		wk.Run()
	}()

	fmt.Printf("Running %d producers for %v (payload=%d, ring=%d bytes)\n",
		cfg.Pipeline.Producers, cfg.Pipeline.Duration, cfg.Pipeline.PayloadSize, d.Cap())
	fmt.Println("─────────────────────────────────────────────────")

	producerStop := cancel.NewAtomic()
	var sent, retries atomic.Uint64
	var wg sync.WaitGroup
	start := time.Now()
	for p := 0; p < cfg.Pipeline.Producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			produce(id, d, producerStop, cfg.Pipeline.PayloadSize, &sent, &retries)
		}(p)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	deadline := time.NewTimer(cfg.Pipeline.Duration)
	defer deadline.Stop()

wait:
	for {
		select {
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				app.Info("reopen requested")
				mgr.Reopen()
				continue
			}
			fmt.Printf("\n%v received, stopping\n", sig)
			break wait
		case <-deadline.C:
			break wait
		}
	}

	producerStop.Cancel()
	wg.Wait()
	elapsed := time.Since(start)

	workerStop.Cancel()
	<-workerDone

	if srv != nil {
		ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			diag.Warn("debug server shutdown", "error", err)
		}
		cancelShutdown()
	}

	ws := wk.Stats()
	app.Info("ringq stopped", "sent", sent.Load(), "handled", ws.Handled, "failed", ws.Failed)
	if err := mgr.Stop(); err != nil {
		return err
	}

	printSummary(elapsed, sent.Load(), retries.Load(), ws, mgr.Stats())
	return nil
}

// produce pushes fixed-size log lines until stop fires. A full ring is
// retried after a short pause.
func produce(id int, d *dispatch.Dispatcher, stop *cancel.AtomicCanceler, size int, sent, retries *atomic.Uint64) {
	prefix := fmt.Sprintf("producer=%d seq=", id)
	filler := strings.Repeat("x", max(size-len(prefix)-12, 0))

	for seq := 0; !stop.Done(); seq++ {
		line := fmt.Sprintf("%s%d %s\n", prefix, seq, filler)
		w := dispatch.Work{Kind: dispatch.KindLog, Payload: []byte(line)}
		for {
			err := d.Dispatch(w)
			if err == nil {
				sent.Add(1)
				break
			}
			if !errors.Is(err, dispatch.ErrFull) {
				return
			}
			retries.Add(1)
			if stop.Wait(50 * time.Microsecond) {
				return
			}
		}
	}
}

func printSummary(elapsed time.Duration, sent, retries uint64, ws dispatch.WorkerStats, files []asynclog.Stats) {
	fmt.Println("\nResults:")
	fmt.Println("─────────────────────────────────────────────────")
	fmt.Printf("  Elapsed:        %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Dispatched:     %d (%.2f K/sec)\n", sent, float64(sent)/elapsed.Seconds()/1000)
	fmt.Printf("  Full retries:   %d\n", retries)
	fmt.Printf("  Handled:        %d (failed %d, corrupt %d)\n", ws.Handled, ws.Failed, ws.Corrupt)
	fmt.Printf("  Max queue wait: %v\n", ws.MaxWait)
	for _, f := range files {
		fmt.Printf("  %s: %d bytes written, %d chunks dropped\n", f.Path, f.BytesWritten, f.Dropped)
	}
}
