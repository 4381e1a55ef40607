package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	timer := NewTimer("breeds")
	assert.Equal(t, "breeds", timer.Name())

	time.Sleep(5 * time.Millisecond)
	first := timer.Stop()
	assert.GreaterOrEqual(t, first, 5*time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), first)
}

func TestThroughputTracker(t *testing.T) {
	tracker := NewThroughputTracker("catapi", "test")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Increment(10)
		}()
	}
	wg.Wait()

	time.Sleep(10 * time.Millisecond)
	rate := tracker.GetAndReset()
	assert.Greater(t, rate, 0.0)
	assert.Equal(t, rate, testutil.ToFloat64(Throughput.WithLabelValues("catapi", "test")))

	// Counter was reset
	assert.Equal(t, 0.0, tracker.GetAndReset())
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(RecordsRead.WithLabelValues("catapi", "metrics_test"))
	RecordsRead.WithLabelValues("catapi", "metrics_test").Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(RecordsRead.WithLabelValues("catapi", "metrics_test")))

	ReadErrors.WithLabelValues("catapi", "metrics_test", "api").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(ReadErrors.WithLabelValues("catapi", "metrics_test", "api")))
}
