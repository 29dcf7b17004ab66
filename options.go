package dimgo

import "github.com/hupe1980/dimgo/resource"

type options struct {
	workers           int
	parallelThreshold int
	logger            *Logger
	metrics           MetricsCollector
	res               *resource.Controller
}

// Option configures Engine construction.
type Option func(*options)

// WithWorkers caps the number of goroutines a partitioned element loop
// may use. Values below 1 disable parallel execution.
func WithWorkers(workers int) Option {
	return func(o *options) {
		o.workers = workers
	}
}

// WithParallelThreshold sets the minimum output volume before the
// engine considers partitioning a loop. Small arrays are not worth the
// goroutine overhead.
func WithParallelThreshold(elements int) Option {
	return func(o *options) {
		o.parallelThreshold = elements
	}
}

// WithLogger configures structured logging. If nil is passed, logging
// is disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// engine operations. Pass nil to disable metrics collection.
func WithMetricsCollector(metrics MetricsCollector) Option {
	return func(o *options) {
		if metrics == nil {
			metrics = NoopMetricsCollector{}
		}
		o.metrics = metrics
	}
}

// WithResourceController configures the controller governing parallel
// loop slots and output-buffer memory accounting.
func WithResourceController(res *resource.Controller) Option {
	return func(o *options) {
		o.res = res
	}
}
