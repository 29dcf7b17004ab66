package dimgo

import (
	"math"

	"github.com/hupe1980/dimgo/units"
)

// EqualOp compares element-wise, yielding dimensionless booleans.
// Operands with variances are rejected; use Variable.Equal for a full
// structural comparison.
var EqualOp = NewOp("equal", UnitsEqualDimensionless("equal"),
	Binary(func(a, b float64) bool { return a == b }, nil),
	Binary(func(a, b float32) bool { return a == b }, nil),
	Binary(func(a, b int64) bool { return a == b }, nil),
	Binary(func(a, b int32) bool { return a == b }, nil),
	Binary(func(a, b bool) bool { return a == b }, nil),
	Binary(func(a, b string) bool { return a == b }, nil),
	BinaryInPlace(func(d *bool, a, b float64) { *d = *d && a == b }, nil),
	BinaryInPlace(func(d *bool, a, b float32) { *d = *d && a == b }, nil),
	BinaryInPlace(func(d *bool, a, b int64) { *d = *d && a == b }, nil),
	BinaryInPlace(func(d *bool, a, b int32) { *d = *d && a == b }, nil),
	BinaryInPlace(func(d *bool, a, b bool) { *d = *d && a == b }, nil),
	BinaryInPlace(func(d *bool, a, b string) { *d = *d && a == b }, nil),
)

// IsCloseOp compares element-wise within an absolute tolerance.
var IsCloseOp = NewOp("isclose", UnitsEqualDimensionless("isclose"),
	TernaryInPlace(func(d *bool, a, b, tol float64) {
		*d = *d && math.Abs(a-b) <= tol
	}, nil),
	TernaryInPlace(func(d *bool, a, b, tol float32) {
		*d = *d && absf32(a-b) <= tol
	}, nil),
)

func absf32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// EqualElements returns the element-wise comparison of a and b as a
// dimensionless boolean array.
func EqualElements(a, b *Variable) (*Variable, error) {
	return Transform(EqualOp, a, b)
}

// AllEqual reports whether every broadcast element pair of a and b
// compares equal. Mismatched units or shapes yield false, not an
// error; an unsupported dtype combination is still an error.
func AllEqual(a, b *Variable) (bool, error) {
	if !a.Unit().Equal(b.Unit()) {
		return false, nil
	}
	if _, err := a.Dims().Merge(b.Dims()); err != nil {
		return false, nil
	}
	out := MustNewScalar(units.Dimensionless, true)
	if err := AccumulateInPlace(EqualOp, out, a, b); err != nil {
		return false, err
	}
	return ScalarValue[bool](out)
}

// AllClose reports whether every broadcast element pair of a and b is
// within the absolute tolerance tol, which must carry a's unit.
func AllClose(a, b *Variable, tol *Variable) (bool, error) {
	if !a.Unit().Equal(b.Unit()) || !a.Unit().Equal(tol.Unit()) {
		return false, nil
	}
	if _, err := a.Dims().Merge(b.Dims()); err != nil {
		return false, nil
	}
	out := MustNewScalar(units.Dimensionless, true)
	if err := AccumulateInPlace(IsCloseOp, out, a, b, tol); err != nil {
		return false, err
	}
	return ScalarValue[bool](out)
}
