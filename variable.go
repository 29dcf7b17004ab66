package dimgo

import (
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/units"
)

// sharedModel reference-counts one ArrayModel across variable handles.
// Views bump the count; a mutating access through a handle whose model
// is shared clones first (copy-on-write), so sibling views never observe
// writes through each other.
type sharedModel struct {
	refs atomic.Int64
	m    ArrayModel
}

func newShared(m ArrayModel) *sharedModel {
	s := &sharedModel{m: m}
	s.refs.Store(1)
	return s
}

// Variable is a labeled, unit-bearing, optionally uncertain
// N-dimensional array: Dimensions plus per-axis strides and an offset
// mapping logical indices into a shared element buffer.
type Variable struct {
	dims    dims.Dimensions
	strides dims.Strides
	offset  int
	unit    units.Unit
	data    *sharedModel
}

// Dims returns the variable's dimensions.
func (v *Variable) Dims() dims.Dimensions { return v.dims }

// Strides returns the variable's per-axis element strides.
func (v *Variable) Strides() dims.Strides { return v.strides }

// Offset returns the flat offset of the first element in the buffer.
func (v *Variable) Offset() int { return v.offset }

// Unit returns the variable's unit. For bucketed variables this is the
// buffer's element unit.
func (v *Variable) Unit() units.Unit {
	if v.DType().IsBins() {
		return makerFor(KindBins).ElemUnit(v)
	}
	return v.unit
}

// SetUnit changes the variable's unit. Fixed-structure geometric types
// reject unit changes; bucketed variables forward to the buffer.
func (v *Variable) SetUnit(u units.Unit) error {
	dt := v.DType()
	if dt.IsBins() {
		return makerFor(KindBins).SetElemUnit(v, u)
	}
	if hasFixedUnit(dt.Kind) {
		return &ErrUnsupportedType{Op: "set unit", DTypes: []DType{dt}}
	}
	v.unit = u
	return nil
}

// DType returns the runtime type tag.
func (v *Variable) DType() DType { return v.data.m.DType() }

// HasVariances reports whether the variable carries a variance buffer.
func (v *Variable) HasVariances() bool { return v.data.m.HasVariances() }

// Model exposes the underlying array model for read access. Mutating
// through it without MutableModel breaks copy-on-write discipline.
func (v *Variable) Model() ArrayModel { return v.data.m }

// MutableModel ensures exclusive ownership of the underlying model and
// returns it for mutation.
func (v *Variable) MutableModel() ArrayModel {
	v.ensureExclusive()
	return v.data.m
}

// Volume returns the number of addressed elements.
func (v *Variable) Volume() int { return v.dims.Volume() }

func (v *Variable) String() string {
	return fmt.Sprintf("Variable<%s>%s [%s]", v.DType(), v.dims, v.Unit())
}

// ensureExclusive clones the underlying buffer if it is shared with
// other handles, so that subsequent writes cannot corrupt sibling
// views. The clone keeps this handle's window (offset and strides).
// Reports whether a clone happened.
func (v *Variable) ensureExclusive() bool {
	if v.data.refs.Load() > 1 {
		m := v.data.m.Clone()
		v.data.refs.Add(-1)
		v.data = newShared(m)
		return true
	}
	return false
}

// view returns a new handle sharing the buffer.
func (v *Variable) view() *Variable {
	v.data.refs.Add(1)
	out := *v
	return &out
}

// ShallowCopy returns a handle sharing the underlying buffer
// copy-on-write.
func (v *Variable) ShallowCopy() *Variable { return v.view() }

// Clone returns a deep copy. Strided or offset views are compacted into
// a freshly allocated contiguous buffer.
func (v *Variable) Clone() *Variable {
	m := v.materialize()
	return &Variable{
		dims:    v.dims,
		strides: dims.Contiguous(v.dims),
		unit:    v.unit,
		data:    newShared(m),
	}
}

// isWholeView reports whether the handle addresses its entire buffer in
// physical order.
func (v *Variable) isWholeView() bool {
	if v.offset != 0 || v.dims.Volume() != v.data.m.Len() {
		return false
	}
	c := dims.Contiguous(v.dims)
	for i := 0; i < v.strides.NDim(); i++ {
		if v.strides.At(i) != c.At(i) {
			return false
		}
	}
	return true
}

// materialize returns a contiguous model holding this view's elements
// in logical order.
func (v *Variable) materialize() ArrayModel {
	if v.isWholeView() {
		return v.data.m.Clone()
	}
	switch v.DType().Kind {
	case KindFloat64:
		return gather[float64](v)
	case KindFloat32:
		return gather[float32](v)
	case KindInt64:
		return gather[int64](v)
	case KindInt32:
		return gather[int32](v)
	case KindBool:
		return gather[bool](v)
	case KindString:
		return gather[string](v)
	case KindIndexPair:
		return gather[IndexPair](v)
	case KindVector3:
		return gather[Vector3](v)
	case KindMatrix3:
		return gather[Matrix3](v)
	default:
		panic(fmt.Sprintf("dimgo: cannot materialize view of dtype %s", v.DType()))
	}
}

func gather[T Elem](v *Variable) *model[T] {
	src := v.data.m.(*model[T])
	out := &model[T]{values: make([]T, v.dims.Volume())}
	if src.variances != nil {
		out.variances = make([]T, v.dims.Volume())
	}
	c := dims.NewCursor(v.dims, v.strides)
	for i := 0; !c.Done(); c.Inc() {
		out.values[i] = src.values[v.offset+c.Offset()]
		if out.variances != nil {
			out.variances[i] = src.variances[v.offset+c.Offset()]
		}
		i++
	}
	return out
}

// Slice returns a zero-copy view along dim. With only begin it is a
// point slice that drops the dimension; with an end it is a half-open
// range keeping it. Slicing a non-empty range of a bin-edge marked
// dimension includes one extra trailing element, so the sliced
// coordinate still brackets the sliced data.
func (v *Variable) Slice(dim dims.Dim, begin int, end ...int) (*Variable, error) {
	i := v.dims.Index(dim)
	if i < 0 {
		return nil, &dims.ErrDimensionMismatch{A: v.dims, Detail: "unknown dimension " + dim.String()}
	}
	extent := v.dims.ExtentAt(i)
	step := v.strides.At(i)

	if len(end) == 0 {
		if begin < 0 || begin >= extent {
			return nil, &dims.ErrDimensionMismatch{A: v.dims, Detail: fmt.Sprintf("point slice %d out of range in %s", begin, dim)}
		}
		out := v.view()
		out.offset += begin * step
		if err := out.dims.Erase(dim); err != nil {
			return nil, err
		}
		out.strides.Erase(i)
		return out, nil
	}

	e := end[0]
	if v.dims.IsEdge(dim) && e > begin {
		e++
	}
	if begin < 0 || e < begin || e > extent {
		return nil, &dims.ErrDimensionMismatch{A: v.dims, Detail: fmt.Sprintf("range slice [%d,%d) out of range in %s", begin, e, dim)}
	}
	out := v.view()
	out.offset += begin * step
	if err := out.dims.Resize(dim, e-begin); err != nil {
		return nil, err
	}
	return out, nil
}

// Broadcast returns a view over target whose missing axes have stride
// zero, so one element is reused along them. All of the variable's own
// axes must appear in target with compatible extents.
func (v *Variable) Broadcast(target dims.Dimensions) (*Variable, error) {
	for _, d := range v.dims.Labels() {
		if !target.Contains(d) {
			return nil, &dims.ErrDimensionMismatch{A: v.dims, B: target, Detail: "target lacks dimension " + d.String()}
		}
	}
	st, err := dims.Relative(v.dims, v.strides, target)
	if err != nil {
		return nil, err
	}
	out := v.view()
	out.dims = target
	out.strides = st
	return out, nil
}

// Transpose returns a view with permuted dimension order. With no
// arguments the order is reversed.
func (v *Variable) Transpose(order ...dims.Dim) (*Variable, error) {
	n := v.dims.NDim()
	if len(order) == 0 {
		order = make([]dims.Dim, n)
		for i, d := range v.dims.Labels() {
			order[n-1-i] = d
		}
	}
	if len(order) != n {
		return nil, &dims.ErrDimensionMismatch{A: v.dims, Detail: "transpose order must cover all dimensions"}
	}
	var nd dims.Dimensions
	var st dims.Strides
	for _, d := range order {
		i := v.dims.Index(d)
		if i < 0 {
			return nil, &dims.ErrDimensionMismatch{A: v.dims, Detail: "transpose of unknown dimension " + d.String()}
		}
		if err := nd.Add(d, v.dims.ExtentAt(i)); err != nil {
			return nil, err
		}
		st = appendStride(st, v.strides.At(i))
		if v.dims.IsEdge(d) {
			_ = nd.MarkEdge(d)
		}
	}
	out := v.view()
	out.dims = nd
	out.strides = st
	return out, nil
}

func appendStride(st dims.Strides, step int) dims.Strides {
	steps := make([]int, st.NDim()+1)
	for i := 0; i < st.NDim(); i++ {
		steps[i] = st.At(i)
	}
	steps[st.NDim()] = step
	return dims.NewStrides(steps...)
}

// SetVariances installs the values of vv as this variable's variances.
// vv must have the same dims; passing nil removes variances.
func (v *Variable) SetVariances(vv *Variable) error {
	if vv == nil {
		v.ensureExclusive()
		return v.data.m.SetVariances(nil)
	}
	if !v.dims.Equal(vv.dims) {
		return &ErrVariances{Op: "set variances", Detail: "dimension mismatch", cause: &dims.ErrDimensionMismatch{A: v.dims, B: vv.dims, Detail: "variances must match data shape"}}
	}
	v.ensureExclusive()
	return v.data.m.SetVariances(vv.materialize())
}

// Equal reports full equality: unit, dimension set (order-insensitive),
// dtype, variance presence, and element-wise values and variances under
// matching labels.
func (v *Variable) Equal(other *Variable) bool {
	if v.Unit() != other.Unit() || v.DType() != other.DType() {
		return false
	}
	if v.HasVariances() != other.HasVariances() {
		return false
	}
	if !v.dims.SameDims(other.dims) {
		return false
	}
	if v.DType().IsBins() {
		// Bucketed variables compare as whole arrays.
		return v.isWholeView() && other.isWholeView() && v.dims.Equal(other.dims) &&
			v.data.m.Equal(other.data.m)
	}
	switch v.DType().Kind {
	case KindFloat64:
		return equalData[float64](v, other)
	case KindFloat32:
		return equalData[float32](v, other)
	case KindInt64:
		return equalData[int64](v, other)
	case KindInt32:
		return equalData[int32](v, other)
	case KindBool:
		return equalData[bool](v, other)
	case KindString:
		return equalData[string](v, other)
	case KindIndexPair:
		return equalData[IndexPair](v, other)
	case KindVector3:
		return equalData[Vector3](v, other)
	case KindMatrix3:
		return equalData[Matrix3](v, other)
	default:
		return false
	}
}

func equalData[T Elem](a, b *Variable) bool {
	am := a.data.m.(*model[T])
	bm, ok := b.data.m.(*model[T])
	if !ok {
		return false
	}
	bst, err := dims.Relative(b.dims, b.strides, a.dims)
	if err != nil {
		return false
	}
	ac := dims.NewCursor(a.dims, a.strides)
	bc := dims.NewCursor(a.dims, bst)
	for !ac.Done() {
		ai, bi := a.offset+ac.Offset(), b.offset+bc.Offset()
		if am.values[ai] != bm.values[bi] {
			return false
		}
		if am.variances != nil && am.variances[ai] != bm.variances[bi] {
			return false
		}
		ac.Inc()
		bc.Inc()
	}
	return true
}

// Values returns the raw value buffer of the underlying model, in
// physical layout. Use only on whole views; for strided views use
// Clone first.
func Values[T Elem](v *Variable) ([]T, error) {
	m, ok := v.data.m.(*model[T])
	if !ok {
		return nil, &ErrUnsupportedType{Op: "values access", DTypes: []DType{v.DType()}}
	}
	return m.values, nil
}

// Variances returns the raw variance buffer, or nil when absent.
func Variances[T Elem](v *Variable) ([]T, error) {
	m, ok := v.data.m.(*model[T])
	if !ok {
		return nil, &ErrUnsupportedType{Op: "variances access", DTypes: []DType{v.DType()}}
	}
	return m.variances, nil
}

// MutableValues ensures exclusive buffer ownership and returns the raw
// value buffer for writing.
func MutableValues[T Elem](v *Variable) ([]T, error) {
	if _, ok := v.data.m.(*model[T]); !ok {
		return nil, &ErrUnsupportedType{Op: "values access", DTypes: []DType{v.DType()}}
	}
	v.ensureExclusive()
	return v.data.m.(*model[T]).values, nil
}

// ScalarValue returns the single element of a scalar (volume 1)
// variable.
func ScalarValue[T Elem](v *Variable) (T, error) {
	var zero T
	m, ok := v.data.m.(*model[T])
	if !ok {
		return zero, &ErrUnsupportedType{Op: "scalar access", DTypes: []DType{v.DType()}}
	}
	if v.dims.Volume() != 1 {
		return zero, &dims.ErrDimensionMismatch{A: v.dims, Detail: "not a scalar"}
	}
	return m.values[v.offset], nil
}

// ScalarVariance returns the variance of a scalar variable.
func ScalarVariance[T Elem](v *Variable) (T, error) {
	var zero T
	m, ok := v.data.m.(*model[T])
	if !ok {
		return zero, &ErrUnsupportedType{Op: "scalar access", DTypes: []DType{v.DType()}}
	}
	if v.dims.Volume() != 1 {
		return zero, &dims.ErrDimensionMismatch{A: v.dims, Detail: "not a scalar"}
	}
	if m.variances == nil {
		return zero, &ErrVariances{Op: "scalar access", Detail: "variable has no variances"}
	}
	return m.variances[v.offset], nil
}
