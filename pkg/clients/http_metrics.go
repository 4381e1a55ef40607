// Package clients provides HTTP metrics tracking
package clients

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ajitpratap0/nebula-catapi/pkg/metrics"
)

// HTTPMetrics tracks per-client request counts and latency samples, and
// mirrors every observation into the process-wide Prometheus metrics.
type HTTPMetrics struct {
	totalRequests      int64
	successfulRequests int64
	failedRequests     int64

	latencySamples []time.Duration
	sampleIndex    int
	sampleCount    int
	maxSamples     int

	statusCodes map[int]int64

	exportPrometheus bool

	mu sync.RWMutex
}

// NewHTTPMetrics creates a new HTTP metrics tracker. When exportPrometheus
// is false only the in-process counters are updated.
func NewHTTPMetrics(exportPrometheus bool) *HTTPMetrics {
	return &HTTPMetrics{
		latencySamples:   make([]time.Duration, 1000), // Keep last 1000 samples
		maxSamples:       1000,
		statusCodes:      make(map[int]int64),
		exportPrometheus: exportPrometheus,
	}
}

// RecordRequest records one request. statusCode is 0 when the transport
// failed before a response arrived.
func (hm *HTTPMetrics) RecordRequest(method, host string, statusCode int, latency time.Duration, err error) {
	atomic.AddInt64(&hm.totalRequests, 1)

	code := "error"
	if err != nil {
		atomic.AddInt64(&hm.failedRequests, 1)
	} else {
		atomic.AddInt64(&hm.successfulRequests, 1)
		code = strconv.Itoa(statusCode)
	}

	hm.mu.Lock()
	hm.latencySamples[hm.sampleIndex] = latency
	hm.sampleIndex = (hm.sampleIndex + 1) % hm.maxSamples
	if hm.sampleCount < hm.maxSamples {
		hm.sampleCount++
	}
	if err == nil {
		hm.statusCodes[statusCode]++
	}
	hm.mu.Unlock()

	if hm.exportPrometheus {
		metrics.HTTPRequests.WithLabelValues(method, host, code).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, host).Observe(latency.Seconds())
	}
}

// GetAverageLatency returns the average latency over the retained samples
func (hm *HTTPMetrics) GetAverageLatency() time.Duration {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	if hm.sampleCount == 0 {
		return 0
	}

	var total time.Duration
	for _, sample := range hm.latencySamples[:hm.sampleCount] {
		total += sample
	}
	return total / time.Duration(hm.sampleCount)
}

// GetP95Latency returns the 95th percentile latency
func (hm *HTTPMetrics) GetP95Latency() time.Duration {
	return hm.getPercentileLatency(0.95)
}

// GetP99Latency returns the 99th percentile latency
func (hm *HTTPMetrics) GetP99Latency() time.Duration {
	return hm.getPercentileLatency(0.99)
}

func (hm *HTTPMetrics) getPercentileLatency(percentile float64) time.Duration {
	hm.mu.RLock()
	samples := make([]time.Duration, hm.sampleCount)
	copy(samples, hm.latencySamples[:hm.sampleCount])
	hm.mu.RUnlock()

	if len(samples) == 0 {
		return 0
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i] < samples[j]
	})

	index := int(float64(len(samples)-1) * percentile)
	return samples[index]
}

// GetStatusCodes returns a copy of the response counts per status code
func (hm *HTTPMetrics) GetStatusCodes() map[int]int64 {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	out := make(map[int]int64, len(hm.statusCodes))
	for code, count := range hm.statusCodes {
		out[code] = count
	}
	return out
}
