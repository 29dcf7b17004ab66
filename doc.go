// Package dimgo provides a labeled, N-dimensional array engine in which
// every value carries a physical unit and an optional variance.
//
// A Variable pairs named dimensions with a type-erased element buffer;
// views created by slicing, broadcasting, or transposing share the
// buffer copy-on-write. The transform engine applies typed element-wise
// operations across broadcast operands with unit checking and
// independent-error variance propagation, partitioning large loops
// across workers. The buckets subpackage adds ragged arrays: dense
// arrays of ranges into a shared inner buffer, with concatenation,
// histogramming, and per-bucket reductions.
//
// # Quick Start
//
//	xy := dims.MustNew(dims.Size{Dim: dims.Y, Extent: 2}, dims.Size{Dim: dims.X, Extent: 3})
//	a := dimgo.MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})
//	b := dimgo.MustNewScalar(units.M, 10.0)
//
//	sum, _ := dimgo.Add(a, b) // b broadcasts across y and x
//	total, _ := dimgo.Sum(sum, dims.X)
//
// Values with uncertainties propagate variances through arithmetic:
//
//	p := dimgo.MustNewScalar(units.M, 3.0, 2.0) // value 3, variance 2
//	q := dimgo.MustNewScalar(units.S, 4.0, 3.0)
//	pq, _ := dimgo.Mul(p, q) // value 12, variance 59, unit m s
//
// # Engines
//
// Package-level functions use a shared default engine. Construct a
// dedicated Engine to control worker counts, logging, metrics, and
// resource limits:
//
//	eng := dimgo.NewEngine(
//	    dimgo.WithWorkers(4),
//	    dimgo.WithMetricsCollector(&dimgo.BasicMetricsCollector{}),
//	)
//	out, err := eng.Transform(dimgo.AddOp, a, b)
package dimgo
