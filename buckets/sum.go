package buckets

import (
	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/dimgo"
	"github.com/hupe1980/dimgo/dims"
)

// Sum reduces each bucket to a single element by summing its buffer
// range, yielding a dense array over the outer dimensions with the
// buffer's unit. Variances sum alongside values.
func Sum(v *dimgo.Variable) (*dimgo.Variable, error) {
	m, err := binsOf(v)
	if err != nil {
		return nil, err
	}
	switch m.buffer.DType().Kind {
	case dimgo.KindFloat64:
		return sumFloat64(v, m)
	case dimgo.KindFloat32:
		return sumT[float32](v, m)
	case dimgo.KindInt64:
		return sumT[int64](v, m)
	case dimgo.KindInt32:
		return sumT[int32](v, m)
	default:
		return nil, &dimgo.ErrUnsupportedType{Op: "sum", DTypes: []dimgo.DType{v.DType()}}
	}
}

// sumFloat64 runs on a compacted buffer so each bucket is a contiguous
// sub-slice summed in one pass.
func sumFloat64(v *dimgo.Variable, m *binsModel) (*dimgo.Variable, error) {
	buf := m.buffer.Clone()
	vals, err := dimgo.Values[float64](buf)
	if err != nil {
		return nil, err
	}
	vars, err := dimgo.Variances[float64](buf)
	if err != nil {
		return nil, err
	}

	out, err := dimgo.NewEmpty[float64](v.Dims(), m.buffer.Unit(), vars != nil)
	if err != nil {
		return nil, err
	}
	outVals, err := dimgo.Values[float64](out)
	if err != nil {
		return nil, err
	}
	outVars, err := dimgo.Variances[float64](out)
	if err != nil {
		return nil, err
	}

	c := dims.NewCursor(v.Dims(), v.Strides())
	for i := 0; !c.Done(); c.Inc() {
		r := m.indices[v.Offset()+c.Offset()]
		outVals[i] = floats.Sum(vals[r.Begin:r.End])
		if outVars != nil {
			outVars[i] = floats.Sum(vars[r.Begin:r.End])
		}
		i++
	}
	return out, nil
}

func sumT[T float32 | int64 | int32](v *dimgo.Variable, m *binsModel) (*dimgo.Variable, error) {
	buf := m.buffer.Clone()
	vals, err := dimgo.Values[T](buf)
	if err != nil {
		return nil, err
	}
	vars, err := dimgo.Variances[T](buf)
	if err != nil {
		return nil, err
	}

	out, err := dimgo.NewEmpty[T](v.Dims(), m.buffer.Unit(), vars != nil)
	if err != nil {
		return nil, err
	}
	outVals, err := dimgo.Values[T](out)
	if err != nil {
		return nil, err
	}
	outVars, err := dimgo.Variances[T](out)
	if err != nil {
		return nil, err
	}

	c := dims.NewCursor(v.Dims(), v.Strides())
	for i := 0; !c.Done(); c.Inc() {
		r := m.indices[v.Offset()+c.Offset()]
		var sum, varSum T
		for j := r.Begin; j < r.End; j++ {
			sum += vals[j]
			if vars != nil {
				varSum += vars[j]
			}
		}
		outVals[i] = sum
		if outVars != nil {
			outVars[i] = varSum
		}
		i++
	}
	return out, nil
}
