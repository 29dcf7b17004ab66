package dimgo

import (
	"fmt"

	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/units"
)

// New constructs a dense variable owning a copy of values, with an
// optional variance buffer of the same length.
func New[T Elem](d dims.Dimensions, u units.Unit, values []T, variances ...[]T) (*Variable, error) {
	if len(values) != d.Volume() {
		return nil, &dims.ErrDimensionMismatch{A: d, Detail: fmt.Sprintf("got %d values for volume %d", len(values), d.Volume())}
	}
	m := &model[T]{values: append([]T(nil), values...)}
	if len(variances) > 0 && variances[0] != nil {
		if !canHaveVariances(KindOf[T]()) {
			return nil, &ErrVariances{Op: "create", Detail: "dtype " + KindOf[T]().String() + " cannot have variances"}
		}
		if len(variances[0]) != len(values) {
			return nil, &ErrVariances{Op: "create", Detail: "variance buffer size mismatch"}
		}
		m.variances = append([]T(nil), variances[0]...)
	}
	return &Variable{
		dims:    d,
		strides: dims.Contiguous(d),
		unit:    u,
		data:    newShared(m),
	}, nil
}

// MustNew is New that panics on error, for statically known inputs.
func MustNew[T Elem](d dims.Dimensions, u units.Unit, values []T, variances ...[]T) *Variable {
	v, err := New(d, u, values, variances...)
	if err != nil {
		panic(err)
	}
	return v
}

// NewEmpty constructs a zero-initialized dense variable.
func NewEmpty[T Elem](d dims.Dimensions, u units.Unit, withVariances bool) (*Variable, error) {
	m, err := newModel[T](d.Volume(), withVariances)
	if err != nil {
		return nil, err
	}
	return &Variable{
		dims:    d,
		strides: dims.Contiguous(d),
		unit:    u,
		data:    newShared(m),
	}, nil
}

// NewScalar constructs a dimensionless-shape (volume 1) variable.
func NewScalar[T Elem](u units.Unit, value T, variance ...T) (*Variable, error) {
	m := &model[T]{values: []T{value}}
	if len(variance) > 0 {
		if !canHaveVariances(KindOf[T]()) {
			return nil, &ErrVariances{Op: "create", Detail: "dtype " + KindOf[T]().String() + " cannot have variances"}
		}
		m.variances = []T{variance[0]}
	}
	return &Variable{unit: u, data: newShared(m)}, nil
}

// MustNewScalar is NewScalar that panics on error.
func MustNewScalar[T Elem](u units.Unit, value T, variance ...T) *Variable {
	v, err := NewScalar(u, value, variance...)
	if err != nil {
		panic(err)
	}
	return v
}

// NewWithModel wraps a prebuilt array model in a variable. The model
// must hold exactly the volume of d. Used by packages that register
// their own model kinds, such as bucketed arrays.
func NewWithModel(d dims.Dimensions, u units.Unit, m ArrayModel) (*Variable, error) {
	if m.Len() != d.Volume() {
		return nil, &dims.ErrDimensionMismatch{A: d, Detail: fmt.Sprintf("model holds %d elements for volume %d", m.Len(), d.Volume())}
	}
	return &Variable{
		dims:    d,
		strides: dims.Contiguous(d),
		unit:    u,
		data:    newShared(m),
	}, nil
}
