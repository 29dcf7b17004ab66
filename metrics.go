package dimgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational
// metrics from the transform engine. Implement this interface to
// integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordTransform is called after each allocating or in-place
	// element loop. elements is the size of the iterated index space,
	// parallel reports whether the loop was partitioned across
	// workers, err is nil if successful.
	RecordTransform(op string, elements int, parallel bool, duration time.Duration, err error)

	// RecordAlloc is called when the engine allocates an output
	// buffer of the given size in bytes.
	RecordAlloc(bytes int64)

	// RecordClone is called when copy-on-write forces a buffer clone.
	RecordClone(bytes int64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTransform(string, int, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordAlloc(int64)                                       {}
func (NoopMetricsCollector) RecordClone(int64)                                       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TransformCount      atomic.Int64
	TransformErrors     atomic.Int64
	TransformElements   atomic.Int64
	TransformTotalNanos atomic.Int64
	ParallelRuns        atomic.Int64
	SerialRuns          atomic.Int64
	AllocBytes          atomic.Int64
	CloneBytes          atomic.Int64
}

// RecordTransform implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTransform(_ string, elements int, parallel bool, duration time.Duration, err error) {
	b.TransformCount.Add(1)
	b.TransformElements.Add(int64(elements))
	b.TransformTotalNanos.Add(duration.Nanoseconds())
	if parallel {
		b.ParallelRuns.Add(1)
	} else {
		b.SerialRuns.Add(1)
	}
	if err != nil {
		b.TransformErrors.Add(1)
	}
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(bytes int64) {
	b.AllocBytes.Add(bytes)
}

// RecordClone implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClone(bytes int64) {
	b.CloneBytes.Add(bytes)
}
