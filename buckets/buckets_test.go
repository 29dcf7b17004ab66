package buckets

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dimgo"
	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/units"
)

func makeTestBins(t *testing.T, vals []float64, pairs []dimgo.IndexPair, vars ...[]float64) *dimgo.Variable {
	t.Helper()
	row := dims.MustNew(dims.Size{Dim: dims.Row, Extent: len(pairs)})
	idx := dimgo.MustNew(row, units.Dimensionless, pairs)
	ev := dims.MustNew(dims.Size{Dim: dims.Event, Extent: len(vals)})
	buf := dimgo.MustNew(ev, units.M, vals, vars...)
	v, err := MakeBins(idx, dims.Event, buf)
	require.NoError(t, err)
	return v
}

func TestMakeBins(t *testing.T) {
	t.Run("valid ranges", func(t *testing.T) {
		v := makeTestBins(t, []float64{1, 2, 3, 4}, []dimgo.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})

		assert.True(t, dimgo.IsBins(v))
		assert.Equal(t, dimgo.BinsOf(dimgo.KindFloat64), v.DType())
		assert.Equal(t, units.M, v.Unit())

		sizes, err := BinSizes(v)
		require.NoError(t, err)
		got, err := dimgo.Values[int64](sizes)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 2}, got)
	})

	t.Run("out-of-range rejected", func(t *testing.T) {
		row := dims.MustNew(dims.Size{Dim: dims.Row, Extent: 1})
		idx := dimgo.MustNew(row, units.Dimensionless, []dimgo.IndexPair{{Begin: 0, End: 5}})
		buf := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.Event, Extent: 4}), units.M, []float64{1, 2, 3, 4})

		_, err := MakeBins(idx, dims.Event, buf)
		var rerr *ErrIndexOutOfRange
		require.ErrorAs(t, err, &rerr)
		assert.False(t, rerr.Overlap)
	})

	t.Run("overlap rejected but allowed unvalidated", func(t *testing.T) {
		row := dims.MustNew(dims.Size{Dim: dims.Row, Extent: 2})
		idx := dimgo.MustNew(row, units.Dimensionless, []dimgo.IndexPair{{Begin: 0, End: 3}, {Begin: 2, End: 4}})
		buf := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.Event, Extent: 4}), units.M, []float64{1, 2, 3, 4})

		_, err := MakeBins(idx, dims.Event, buf)
		var rerr *ErrIndexOutOfRange
		require.ErrorAs(t, err, &rerr)
		assert.True(t, rerr.Overlap)

		v, err := MakeBinsNoValidate(idx, dims.Event, buf)
		require.NoError(t, err)

		sizes, err := BinSizes(v)
		require.NoError(t, err)
		got, err := dimgo.Values[int64](sizes)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 2}, got)
	})

	t.Run("buffer must contain the bucket dimension", func(t *testing.T) {
		row := dims.MustNew(dims.Size{Dim: dims.Row, Extent: 1})
		idx := dimgo.MustNew(row, units.Dimensionless, []dimgo.IndexPair{{Begin: 0, End: 1}})
		buf := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.X, Extent: 4}), units.M, []float64{1, 2, 3, 4})

		_, err := MakeBins(idx, dims.Event, buf)
		var derr *dims.ErrDimensionMismatch
		assert.ErrorAs(t, err, &derr)
	})

	t.Run("buffer must be one-dimensional", func(t *testing.T) {
		row := dims.MustNew(dims.Size{Dim: dims.Row, Extent: 1})
		idx := dimgo.MustNew(row, units.Dimensionless, []dimgo.IndexPair{{Begin: 0, End: 2}})
		bufDims := dims.MustNew(
			dims.Size{Dim: dims.X, Extent: 2},
			dims.Size{Dim: dims.Event, Extent: 2},
		)
		buf := dimgo.MustNew(bufDims, units.M, []float64{1, 2, 3, 4})

		var derr *dims.ErrDimensionMismatch
		_, err := MakeBins(idx, dims.Event, buf)
		require.ErrorAs(t, err, &derr)
		_, err = MakeBinsNoValidate(idx, dims.Event, buf)
		assert.ErrorAs(t, err, &derr)
	})
}

func TestConcatenate(t *testing.T) {
	t.Run("round trip interleaves buckets", func(t *testing.T) {
		a := makeTestBins(t, []float64{1, 2, 3, 4}, []dimgo.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})
		b := makeTestBins(t, []float64{10, 20, 30, 40}, []dimgo.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})

		out, err := Concatenate(a, b)
		require.NoError(t, err)

		idx, err := Indices(out)
		require.NoError(t, err)
		pairs, err := dimgo.Values[dimgo.IndexPair](idx)
		require.NoError(t, err)
		assert.Equal(t, []dimgo.IndexPair{{Begin: 0, End: 4}, {Begin: 4, End: 8}}, pairs)

		buf, err := Buffer(out)
		require.NoError(t, err)
		vals, err := dimgo.Values[float64](buf.Clone())
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 10, 20, 3, 4, 30, 40}, vals)
	})

	t.Run("size-1 outer axis broadcasts", func(t *testing.T) {
		a := makeTestBins(t, []float64{1, 2, 3, 4}, []dimgo.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})
		b := makeTestBins(t, []float64{9}, []dimgo.IndexPair{{Begin: 0, End: 1}})

		out, err := Concatenate(a, b)
		require.NoError(t, err)
		assert.Equal(t, 2, out.Volume())

		buf, err := Buffer(out)
		require.NoError(t, err)
		vals, err := dimgo.Values[float64](buf.Clone())
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 9, 3, 4, 9}, vals)
	})

	t.Run("unit mismatch rejected", func(t *testing.T) {
		a := makeTestBins(t, []float64{1, 2}, []dimgo.IndexPair{{Begin: 0, End: 2}})

		row := dims.MustNew(dims.Size{Dim: dims.Row, Extent: 1})
		idx := dimgo.MustNew(row, units.Dimensionless, []dimgo.IndexPair{{Begin: 0, End: 2}})
		buf := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.Event, Extent: 2}), units.S, []float64{1, 2})
		b, err := MakeBins(idx, dims.Event, buf)
		require.NoError(t, err)

		_, err = Concatenate(a, b)
		var uerr *units.ErrIncompatible
		assert.ErrorAs(t, err, &uerr)
	})

	t.Run("variance presence mismatch rejected", func(t *testing.T) {
		a := makeTestBins(t, []float64{1, 2}, []dimgo.IndexPair{{Begin: 0, End: 2}})
		b := makeTestBins(t, []float64{1, 2}, []dimgo.IndexPair{{Begin: 0, End: 2}}, []float64{1, 1})

		_, err := Concatenate(a, b)
		var verr *dimgo.ErrVariances
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("variances interleave with values", func(t *testing.T) {
		a := makeTestBins(t, []float64{1, 2}, []dimgo.IndexPair{{Begin: 0, End: 2}}, []float64{1, 2})
		b := makeTestBins(t, []float64{3, 4}, []dimgo.IndexPair{{Begin: 0, End: 2}}, []float64{3, 4})

		out, err := Concatenate(a, b)
		require.NoError(t, err)

		buf, err := Buffer(out)
		require.NoError(t, err)
		vars, err := dimgo.Variances[float64](buf.Clone())
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 4}, vars)
	})
}

func TestAppend(t *testing.T) {
	t.Run("extends buckets in place", func(t *testing.T) {
		a := makeTestBins(t, []float64{1, 2, 3, 4}, []dimgo.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})
		b := makeTestBins(t, []float64{10, 20, 30, 40}, []dimgo.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})

		require.NoError(t, Append(a, b))

		sizes, err := BinSizes(a)
		require.NoError(t, err)
		got, err := dimgo.Values[int64](sizes)
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 4}, got)

		buf, err := Buffer(a)
		require.NoError(t, err)
		vals, err := dimgo.Values[float64](buf.Clone())
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 10, 20, 3, 4, 30, 40}, vals)
	})

	t.Run("outer shape must match exactly", func(t *testing.T) {
		a := makeTestBins(t, []float64{1, 2}, []dimgo.IndexPair{{Begin: 0, End: 1}, {Begin: 1, End: 2}})
		b := makeTestBins(t, []float64{1, 2, 3}, []dimgo.IndexPair{{Begin: 0, End: 1}, {Begin: 1, End: 2}, {Begin: 2, End: 3}})

		err := Append(a, b)
		var derr *dims.ErrDimensionMismatch
		require.ErrorAs(t, err, &derr)

		// The same operands concatenate fine when one has a size-1 axis.
		c := makeTestBins(t, []float64{9}, []dimgo.IndexPair{{Begin: 0, End: 1}})
		_, err = Concatenate(a, c)
		assert.NoError(t, err)
	})
}

func TestBucketEqual(t *testing.T) {
	a := makeTestBins(t, []float64{1, 2, 3, 4}, []dimgo.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})

	// Same per-bucket content at different buffer positions.
	row := dims.MustNew(dims.Size{Dim: dims.Row, Extent: 2})
	idx := dimgo.MustNew(row, units.Dimensionless, []dimgo.IndexPair{{Begin: 2, End: 4}, {Begin: 0, End: 2}})
	buf := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.Event, Extent: 4}), units.M, []float64{3, 4, 1, 2})
	b, err := MakeBins(idx, dims.Event, buf)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))

	c := makeTestBins(t, []float64{1, 2, 3, 5}, []dimgo.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})
	assert.False(t, a.Equal(c))
}

func TestHistogram(t *testing.T) {
	coords := makeTestBins(t,
		[]float64{0.5, 1.5, 2.5, 0.1, 2.9},
		[]dimgo.IndexPair{{Begin: 0, End: 3}, {Begin: 3, End: 5}},
	)
	edgeDims := dims.MustNew(dims.Size{Dim: dims.X, Extent: 4})
	edges := dimgo.MustNew(edgeDims, units.M, []float64{0, 1, 2, 3})

	t.Run("linspace counts per bucket", func(t *testing.T) {
		out, err := Histogram(coords, nil, edges)
		require.NoError(t, err)
		assert.Equal(t, units.Counts, out.Unit())
		assert.Equal(t, []int{2, 3}, out.Dims().Shape())

		vals, err := dimgo.Values[float64](out)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 1, 1, 1, 0, 1}, vals)

		// Counting histograms carry Poisson variances.
		vars, err := dimgo.Variances[float64](out)
		require.NoError(t, err)
		assert.Equal(t, vals, vars)
	})

	t.Run("conserves total weight for in-range events", func(t *testing.T) {
		out, err := Histogram(coords, nil, edges)
		require.NoError(t, err)

		total, err := dimgo.Sum(out, dims.X)
		require.NoError(t, err)
		grand, err := dimgo.Sum(total, dims.Row)
		require.NoError(t, err)

		val, err := dimgo.ScalarValue[float64](grand)
		require.NoError(t, err)
		assert.Equal(t, 5.0, val)
	})

	t.Run("general path matches uneven edges", func(t *testing.T) {
		uneven := dimgo.MustNew(edgeDims, units.M, []float64{0, 1, 2.75, 3})

		out, err := Histogram(coords, nil, uneven)
		require.NoError(t, err)

		vals, err := dimgo.Values[float64](out)
		require.NoError(t, err)
		// Bucket 0: 0.5 | 1.5, 2.5 | -; bucket 1: 0.1 | - | 2.9.
		assert.Equal(t, []float64{1, 2, 0, 1, 0, 1}, vals)
	})

	t.Run("drops out-of-range and NaN events", func(t *testing.T) {
		noisy := makeTestBins(t,
			[]float64{-5, 0.5, 99, math.NaN(), 3.0},
			[]dimgo.IndexPair{{Begin: 0, End: 5}},
		)

		out, err := Histogram(noisy, nil, edges)
		require.NoError(t, err)

		vals, err := dimgo.Values[float64](out)
		require.NoError(t, err)
		// Only 0.5 lands in a bin; 3.0 is on the open upper bound.
		assert.Equal(t, []float64{1, 0, 0}, vals)
	})

	t.Run("weights accumulate with variances", func(t *testing.T) {
		weights := makeTestBins(t,
			[]float64{2, 3, 4, 5, 6},
			[]dimgo.IndexPair{{Begin: 0, End: 3}, {Begin: 3, End: 5}},
			[]float64{1, 1, 1, 2, 2},
		)
		// SetUnit on a bucketed variable forwards to the buffer.
		require.NoError(t, weights.SetUnit(units.Counts))

		out, err := Histogram(coords, weights, edges)
		require.NoError(t, err)
		assert.Equal(t, units.Counts, out.Unit())

		vals, err := dimgo.Values[float64](out)
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 3, 4, 5, 0, 6}, vals)

		vars, err := dimgo.Variances[float64](out)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 1, 1, 2, 0, 2}, vars)
	})

	t.Run("weights must be bucketed like the coordinates", func(t *testing.T) {
		row := dims.MustNew(dims.Size{Dim: dims.Row, Extent: 1})
		idx := dimgo.MustNew(row, units.Dimensionless, []dimgo.IndexPair{{Begin: 0, End: 5}})
		buf := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.Event, Extent: 5}), units.Counts, []float64{2, 3, 4, 5, 6})
		weights, err := MakeBins(idx, dims.Event, buf)
		require.NoError(t, err)

		// One weight bucket against two coordinate buckets.
		_, err = Histogram(coords, weights, edges)
		var derr *dims.ErrDimensionMismatch
		assert.ErrorAs(t, err, &derr)
	})

	t.Run("transposed weights pair by label", func(t *testing.T) {
		wide := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.X, Extent: 5}), units.M, []float64{0, 1, 2, 3, 4})

		coordOuter := dims.MustNew(
			dims.Size{Dim: dims.Y, Extent: 2},
			dims.Size{Dim: dims.Z, Extent: 2},
		)
		cIdx := dimgo.MustNew(coordOuter, units.Dimensionless, []dimgo.IndexPair{
			{Begin: 0, End: 1}, {Begin: 1, End: 2}, {Begin: 2, End: 3}, {Begin: 3, End: 4},
		})
		cBuf := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.Event, Extent: 4}), units.M, []float64{0.5, 1.5, 2.5, 3.5})
		c, err := MakeBins(cIdx, dims.Event, cBuf)
		require.NoError(t, err)

		weightOuter := dims.MustNew(
			dims.Size{Dim: dims.Z, Extent: 2},
			dims.Size{Dim: dims.Y, Extent: 2},
		)
		wIdx := dimgo.MustNew(weightOuter, units.Dimensionless, []dimgo.IndexPair{
			{Begin: 0, End: 1}, {Begin: 1, End: 2}, {Begin: 2, End: 3}, {Begin: 3, End: 4},
		})
		wBuf := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.Event, Extent: 4}), units.Counts, []float64{10, 20, 30, 40})
		w, err := MakeBins(wIdx, dims.Event, wBuf)
		require.NoError(t, err)
		wT, err := w.Transpose(dims.Y, dims.Z)
		require.NoError(t, err)

		out, err := Histogram(c, wT, wide)
		require.NoError(t, err)

		// Bucket (y, z) takes the weight stored for (z, y): the event of
		// bucket k falls in bin k, weighted 10, 30, 20, 40.
		vals, err := dimgo.Values[float64](out)
		require.NoError(t, err)
		want := make([]float64, 16)
		for k, weight := range []float64{10, 30, 20, 40} {
			want[k*4+k] = weight
		}
		assert.Equal(t, want, vals)
	})

	t.Run("weight unit must be counts or dimensionless", func(t *testing.T) {
		weights := makeTestBins(t,
			[]float64{2, 3, 4, 5, 6},
			[]dimgo.IndexPair{{Begin: 0, End: 3}, {Begin: 3, End: 5}},
		)
		// Buffers from makeTestBins carry metres.
		_, err := Histogram(coords, weights, edges)
		var uerr *units.ErrIncompatible
		assert.ErrorAs(t, err, &uerr)
	})

	t.Run("event unit must match edges", func(t *testing.T) {
		secondEdges := dimgo.MustNew(edgeDims, units.S, []float64{0, 1, 2, 3})

		_, err := Histogram(coords, nil, secondEdges)
		var uerr *units.ErrIncompatible
		assert.ErrorAs(t, err, &uerr)
	})

	t.Run("unsorted edges rejected", func(t *testing.T) {
		bad := dimgo.MustNew(edgeDims, units.M, []float64{0, 2, 1, 3})

		_, err := Histogram(coords, nil, bad)
		var oerr *ErrUnsortedEdges
		require.ErrorAs(t, err, &oerr)
		assert.Equal(t, dims.X, oerr.Dim)
	})
}

func TestMap(t *testing.T) {
	coords := makeTestBins(t,
		[]float64{0.5, 1.5, 2.5, 0.1, 2.9},
		[]dimgo.IndexPair{{Begin: 0, End: 3}, {Begin: 3, End: 5}},
	)
	edges := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.X, Extent: 4}), units.M, []float64{0, 1, 2, 3})
	hist := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.X, Extent: 3}), units.Counts, []float64{2, 4, 8})

	t.Run("per-event bin lookup", func(t *testing.T) {
		out, err := Map(hist, edges, coords, nil)
		require.NoError(t, err)
		assert.True(t, dimgo.IsBins(out))
		assert.Equal(t, units.Counts, out.Unit())

		buf, err := Buffer(out)
		require.NoError(t, err)
		vals, err := dimgo.Values[float64](buf.Clone())
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 4, 8, 2, 8}, vals)
	})

	t.Run("masked bins scale to zero", func(t *testing.T) {
		masked := roaring.New()
		masked.Add(1)

		out, err := Map(hist, edges, coords, masked)
		require.NoError(t, err)

		buf, err := Buffer(out)
		require.NoError(t, err)
		vals, err := dimgo.Values[float64](buf.Clone())
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 0, 8, 2, 8}, vals)
	})

	t.Run("histogram shape must match edges", func(t *testing.T) {
		short := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.X, Extent: 2}), units.Counts, []float64{2, 4})

		_, err := Map(short, edges, coords, nil)
		var derr *dims.ErrDimensionMismatch
		assert.ErrorAs(t, err, &derr)
	})
}

func TestBucketSum(t *testing.T) {
	t.Run("float64 with variances", func(t *testing.T) {
		v := makeTestBins(t,
			[]float64{1, 2, 3, 4},
			[]dimgo.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}},
			[]float64{1, 1, 2, 2},
		)

		out, err := Sum(v)
		require.NoError(t, err)
		assert.Equal(t, units.M, out.Unit())

		vals, err := dimgo.Values[float64](out)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 7}, vals)

		vars, err := dimgo.Variances[float64](out)
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 4}, vars)
	})

	t.Run("empty buckets sum to zero", func(t *testing.T) {
		v := makeTestBins(t,
			[]float64{1, 2},
			[]dimgo.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 2}},
		)

		out, err := Sum(v)
		require.NoError(t, err)

		vals, err := dimgo.Values[float64](out)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 0}, vals)
	})

	t.Run("dense input rejected", func(t *testing.T) {
		dense := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.X, Extent: 2}), units.M, []float64{1, 2})

		_, err := Sum(dense)
		var terr *dimgo.ErrUnsupportedType
		assert.ErrorAs(t, err, &terr)
	})
}

func TestEdgeViews(t *testing.T) {
	edges := dimgo.MustNew(dims.MustNew(dims.Size{Dim: dims.X, Extent: 4}), units.M, []float64{0, 1, 2, 3})

	left, err := LeftEdges(edges)
	require.NoError(t, err)
	lv, err := dimgo.Values[float64](left.Clone())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, lv)

	right, err := RightEdges(edges)
	require.NoError(t, err)
	rv, err := dimgo.Values[float64](right.Clone())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, rv)
}

func TestRegistryDominance(t *testing.T) {
	parent := makeTestBins(t, []float64{1, 2}, []dimgo.IndexPair{{Begin: 0, End: 1}, {Begin: 1, End: 2}})
	row := dims.MustNew(dims.Size{Dim: dims.Row, Extent: 2})

	out, err := dimgo.Create(dimgo.Plain(dimgo.KindFloat64), row, units.M, false, parent)
	require.NoError(t, err)

	// A bucketed parent makes the created variable bucketed as well.
	assert.True(t, dimgo.IsBins(out))
	assert.Equal(t, units.M, out.Unit())

	sizes, err := BinSizes(out)
	require.NoError(t, err)
	got, err := dimgo.Values[int64](sizes)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0}, got)
}
