// Package combined holds interaction benchmarks and end-to-end tests that
// drive several components together: a canceler and ticker around a queue
// loop, producer/consumer pipelines over each queue, and the full
// dispatch to worker to async log path.
//
// Isolated micro-benchmarks miss the cost of the pieces interacting; these
// capture it.
package combined
