package dimgo

import (
	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/units"
)

// Sum reduces v along dim by accumulating into a zero-initialized
// output of the remaining dimensions. Variances accumulate alongside
// values; the unit is carried unchanged.
func Sum(v *Variable, dim dims.Dim) (*Variable, error) {
	return defaultEngine.Sum(v, dim)
}

// Sum reduces v along dim. See the package-level Sum.
func (e *Engine) Sum(v *Variable, dim dims.Dim) (*Variable, error) {
	if !v.Dims().Contains(dim) {
		return nil, &dims.ErrDimensionMismatch{
			A:      v.Dims(),
			Detail: "sum dimension " + dim.String() + " not present in operand",
		}
	}
	if v.DType().IsBins() {
		return nil, &ErrUnsupportedType{Op: "sum", DTypes: []DType{v.DType()}}
	}

	outDims := v.Dims()
	if err := outDims.Erase(dim); err != nil {
		return nil, err
	}

	out, err := Create(v.DType(), outDims, v.Unit(), v.HasVariances())
	if err != nil {
		return nil, err
	}
	if err := e.AccumulateInPlace(AddOp, out, v); err != nil {
		return nil, err
	}
	return out, nil
}

// SumInto accumulates v along its dimensions absent from out, adding
// onto out's existing contents. out's unit must match v's.
func SumInto(out, v *Variable) error {
	return defaultEngine.SumInto(out, v)
}

// SumInto accumulates v into out. See the package-level SumInto.
func (e *Engine) SumInto(out, v *Variable) error {
	if !out.Unit().Equal(v.Unit()) {
		return &units.ErrIncompatible{Op: "sum", A: out.Unit(), B: v.Unit()}
	}
	return e.AccumulateInPlace(AddOp, out, v)
}
