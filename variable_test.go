package dimgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/units"
)

func TestVariable(t *testing.T) {
	xy := dims.MustNew(
		dims.Size{Dim: dims.Y, Extent: 2},
		dims.Size{Dim: dims.X, Extent: 3},
	)

	t.Run("New copies input slices", func(t *testing.T) {
		src := []float64{1, 2, 3, 4, 5, 6}
		v, err := New(xy, units.M, src)
		require.NoError(t, err)

		src[0] = 99

		vals, err := Values[float64](v)
		require.NoError(t, err)
		assert.Equal(t, 1.0, vals[0])
		assert.Equal(t, units.M, v.Unit())
		assert.Equal(t, 6, v.Volume())
	})

	t.Run("New rejects size mismatch", func(t *testing.T) {
		_, err := New(xy, units.M, []float64{1, 2, 3})
		require.Error(t, err)

		var derr *dims.ErrDimensionMismatch
		assert.ErrorAs(t, err, &derr)
	})

	t.Run("scalar access", func(t *testing.T) {
		s := MustNewScalar(units.S, 4.0, 3.0)

		val, err := ScalarValue[float64](s)
		require.NoError(t, err)
		assert.Equal(t, 4.0, val)

		vr, err := ScalarVariance[float64](s)
		require.NoError(t, err)
		assert.Equal(t, 3.0, vr)
	})

	t.Run("point slice drops dimension", func(t *testing.T) {
		v := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})

		row, err := v.Slice(dims.Y, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, row.Dims().NDim())
		assert.Equal(t, 3, row.Volume())

		got, err := ScalarValue[float64](mustSlice(t, row, dims.X, 0))
		require.NoError(t, err)
		assert.Equal(t, 4.0, got)
	})

	t.Run("range slice keeps dimension", func(t *testing.T) {
		v := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})

		cols, err := v.Slice(dims.X, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2}, cols.Dims().Shape())

		got, err := ScalarValue[float64](mustSlice(t, mustSlice(t, cols, dims.Y, 0), dims.X, 0))
		require.NoError(t, err)
		assert.Equal(t, 2.0, got)
	})

	t.Run("edge-marked slice keeps bracketing element", func(t *testing.T) {
		ex := dims.MustNew(dims.Size{Dim: dims.X, Extent: 5})
		require.NoError(t, ex.MarkEdge(dims.X))

		edges := MustNew(ex, units.M, []float64{0, 1, 2, 3, 4})
		s, err := edges.Slice(dims.X, 1, 3)
		require.NoError(t, err)
		// Two data elements are bracketed by three edges.
		assert.Equal(t, 3, s.Volume())
	})

	t.Run("slice of unknown dimension fails", func(t *testing.T) {
		v := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})
		_, err := v.Slice(dims.Time, 0)

		var derr *dims.ErrDimensionMismatch
		assert.ErrorAs(t, err, &derr)
	})

	t.Run("mutating a view leaves siblings intact", func(t *testing.T) {
		v := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})
		view, err := v.Slice(dims.Y, 0, 1)
		require.NoError(t, err)

		vals, err := MutableValues[float64](view)
		require.NoError(t, err)
		vals[0] = 99

		orig, err := Values[float64](v)
		require.NoError(t, err)
		assert.Equal(t, 1.0, orig[0])
	})

	t.Run("clone compacts a transposed view", func(t *testing.T) {
		v := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})
		tr, err := v.Transpose()
		require.NoError(t, err)

		c := tr.Clone()
		vals, err := Values[float64](c)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, vals)
	})

	t.Run("broadcast reuses elements with zero stride", func(t *testing.T) {
		x := dims.MustNew(dims.Size{Dim: dims.X, Extent: 3})
		v := MustNew(x, units.M, []float64{1, 2, 3})

		b, err := v.Broadcast(xy)
		require.NoError(t, err)
		assert.Equal(t, 6, b.Volume())

		c := b.Clone()
		vals, err := Values[float64](c)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 1, 2, 3}, vals)
	})

	t.Run("broadcast to missing target dimension fails", func(t *testing.T) {
		v := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})
		_, err := v.Broadcast(dims.MustNew(dims.Size{Dim: dims.X, Extent: 3}))

		var derr *dims.ErrDimensionMismatch
		assert.ErrorAs(t, err, &derr)
	})

	t.Run("equal is order-insensitive over labels", func(t *testing.T) {
		v := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})
		tr, err := v.Transpose()
		require.NoError(t, err)

		assert.True(t, v.Equal(tr))
		assert.True(t, v.Equal(v.Clone()))
	})

	t.Run("equal distinguishes unit and values", func(t *testing.T) {
		v := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})

		other := MustNew(xy, units.S, []float64{1, 2, 3, 4, 5, 6})
		assert.False(t, v.Equal(other))

		changed := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 7})
		assert.False(t, v.Equal(changed))
	})

	t.Run("set variances", func(t *testing.T) {
		v := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})
		require.False(t, v.HasVariances())

		vv := MustNew(xy, units.M, []float64{1, 1, 1, 1, 1, 1})
		require.NoError(t, v.SetVariances(vv))
		assert.True(t, v.HasVariances())

		require.NoError(t, v.SetVariances(nil))
		assert.False(t, v.HasVariances())
	})

	t.Run("set variances rejects shape mismatch", func(t *testing.T) {
		v := MustNew(xy, units.M, []float64{1, 2, 3, 4, 5, 6})
		vv := MustNewScalar(units.M, 1.0)

		var verr *ErrVariances
		assert.ErrorAs(t, v.SetVariances(vv), &verr)
	})

	t.Run("variances forbidden for non-float dtypes", func(t *testing.T) {
		_, err := New(xy, units.Dimensionless, []int64{1, 2, 3, 4, 5, 6}, []int64{1, 1, 1, 1, 1, 1})

		var verr *ErrVariances
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("fixed-unit dtypes reject SetUnit", func(t *testing.T) {
		x := dims.MustNew(dims.Size{Dim: dims.X, Extent: 1})
		v := MustNew(x, units.Dimensionless, []Vector3{{1, 2, 3}})

		var terr *ErrUnsupportedType
		assert.ErrorAs(t, v.SetUnit(units.M), &terr)
	})
}

func mustSlice(t *testing.T, v *Variable, d dims.Dim, begin int) *Variable {
	t.Helper()
	s, err := v.Slice(d, begin)
	require.NoError(t, err)
	return s
}
