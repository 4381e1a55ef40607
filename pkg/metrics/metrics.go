// Package metrics provides Prometheus metrics for the Cat API connector and
// the CLI that drives it.
//
// # Overview
//
// The metrics package provides:
//   - Pre-defined metrics for HTTP calls, pages and records
//   - Throughput and latency tracking utilities
//   - Automatic metric registration via promauto
//
// # Basic Usage
//
//	// Record a page of records
//	metrics.RecordsRead.WithLabelValues("catapi", "breeds").Add(float64(len(records)))
//
//	// Track request latency
//	timer := metrics.NewTimer("breeds")
//	resp, err := client.Get(ctx, url, nil)
//	metrics.HTTPRequestDuration.WithLabelValues("GET", host).Observe(timer.Stop().Seconds())
//
// # Metric Types
//
// Counter: Monotonically increasing values (e.g., total records read)
// Gauge: Values that can go up or down (e.g., current throughput)
// Histogram: Distribution of values (e.g., request latency)
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts outgoing HTTP requests.
	// Labels: method, host, code (status code, or "error" on transport failure)
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_http_requests_total",
			Help: "Total number of outgoing HTTP requests",
		},
		[]string{"method", "host", "code"},
	)

	// HTTPRequestDuration tracks request latency in seconds.
	// Labels: method, host
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nebula_http_request_duration_seconds",
			Help: "HTTP request latency in seconds",
			Buckets: []float64{
				0.01, // 10ms
				0.05, // 50ms
				0.1,  // 100ms
				0.25,
				0.5,
				1,
				2.5,
				5,
				10,
				30, // default request timeout
			},
		},
		[]string{"method", "host"},
	)

	// PagesRead counts successful page reads.
	// Labels: connector, table
	PagesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_pages_read_total",
			Help: "Total number of pages read from a source",
		},
		[]string{"connector", "table"},
	)

	// RecordsRead counts records returned by page reads.
	// Labels: connector, table
	RecordsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_records_read_total",
			Help: "Total number of records read from a source",
		},
		[]string{"connector", "table"},
	)

	// ReadErrors counts failed page reads by error type.
	// Labels: connector, table, type
	ReadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_read_errors_total",
			Help: "Total number of failed page reads",
		},
		[]string{"connector", "table", "type"},
	)

	// Throughput tracks records per second
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebula_throughput_records_per_second",
			Help: "Current throughput in records per second",
		},
		[]string{"source", "destination"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the name the timer was created with.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called
// multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks throughput (records per second) over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu          sync.Mutex
	count       int64     // Records processed since last reset
	lastReset   time.Time // Time of last reset
	source      string
	destination string
}

// NewThroughputTracker creates a new throughput tracker for a sync.
// The source and destination parameters are used as metric labels.
//
// Example:
//
//	tracker := metrics.NewThroughputTracker("catapi", "jsonl")
//	tracker.Increment(int64(len(records)))
//	logger.Info("throughput", zap.Float64("records_per_sec", tracker.GetAndReset()))
func NewThroughputTracker(source, destination string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset:   time.Now(),
		source:      source,
		destination: destination,
	}
}

// Increment adds n to the record count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (records/second),
// updates the Prometheus metric, resets the counter, and returns
// the calculated throughput.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.source, t.destination).Set(throughput)

	return throughput
}
