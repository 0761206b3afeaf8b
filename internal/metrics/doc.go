// Package metrics provides real-time metrics collection for the proxy.
//
// It uses a channel-based event pipeline to asynchronously collect metrics about:
//   - Accepted connection counts
//   - Routed requests and rewritten paths per backend
//   - Backend dial failures
//   - Relayed byte counts and relay durations with percentile calculations (P50, P95, P99)
//
// The collector runs in a dedicated goroutine and processes events without blocking
// connection handlers; handlers emit events with a non-blocking send and drop them
// when the buffer is full.
package metrics
