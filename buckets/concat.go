package buckets

import (
	"github.com/hupe1980/dimgo"
	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/units"
)

// Concatenate joins two bucketed variables bucket by bucket: output
// bucket i holds a's bucket i followed by b's. Outer dimensions
// broadcast, so a bucket present in only one operand is replicated
// along the other's axes. The buffers must agree in bucket dimension,
// element dtype, unit, and variance presence.
func Concatenate(a, b *dimgo.Variable) (*dimgo.Variable, error) {
	ma, err := binsOf(a)
	if err != nil {
		return nil, err
	}
	mb, err := binsOf(b)
	if err != nil {
		return nil, err
	}
	if err := checkStructure("concatenate", ma, mb); err != nil {
		return nil, err
	}
	target, err := a.Dims().Merge(b.Dims())
	if err != nil {
		return nil, err
	}
	return concat(target, a, ma, b, mb)
}

// Append extends a in place with b's buckets, reallocating a's buffer.
// The outer dimensions must match exactly; broadcasting is reserved for
// Concatenate, which allocates. a must address its full bucket array.
func Append(a, b *dimgo.Variable) error {
	ma, err := binsOf(a)
	if err != nil {
		return err
	}
	mb, err := binsOf(b)
	if err != nil {
		return err
	}
	if !a.Dims().Equal(b.Dims()) {
		return &dims.ErrDimensionMismatch{A: a.Dims(), B: b.Dims(), Detail: "append requires matching outer dimensions"}
	}
	if a.Offset() != 0 || a.Volume() != ma.Len() {
		return &dims.ErrDimensionMismatch{A: a.Dims(), Detail: "append requires a whole bucketed variable"}
	}
	if err := checkStructure("append", ma, mb); err != nil {
		return err
	}

	joined, err := concat(a.Dims(), a, ma, b, mb)
	if err != nil {
		return err
	}
	jm := joined.Model().(*binsModel)

	m := a.MutableModel().(*binsModel)
	m.indices = jm.indices
	m.buffer = jm.buffer
	return nil
}

// checkStructure verifies that two bucket buffers can interleave.
func checkStructure(op string, a, b *binsModel) error {
	if a.dim != b.dim {
		return &dims.ErrDimensionMismatch{A: a.buffer.Dims(), B: b.buffer.Dims(), Detail: op + ": bucket dimensions differ"}
	}
	if a.buffer.Dims().NDim() != 1 || b.buffer.Dims().NDim() != 1 {
		return &dims.ErrDimensionMismatch{A: a.buffer.Dims(), B: b.buffer.Dims(), Detail: op + ": bucket buffers must be one-dimensional"}
	}
	if a.buffer.DType() != b.buffer.DType() {
		return &dimgo.ErrUnsupportedType{Op: op, DTypes: []dimgo.DType{a.buffer.DType(), b.buffer.DType()}}
	}
	if !a.buffer.Unit().Equal(b.buffer.Unit()) {
		return &units.ErrIncompatible{Op: op, A: a.buffer.Unit(), B: b.buffer.Unit()}
	}
	if a.buffer.HasVariances() != b.buffer.HasVariances() {
		return &dimgo.ErrVariances{Op: op, Detail: "one buffer has variances and the other does not"}
	}
	return nil
}

func concat(target dims.Dimensions, a *dimgo.Variable, ma *binsModel, b *dimgo.Variable, mb *binsModel) (*dimgo.Variable, error) {
	sta, err := dims.Relative(a.Dims(), a.Strides(), target)
	if err != nil {
		return nil, err
	}
	stb, err := dims.Relative(b.Dims(), b.Strides(), target)
	if err != nil {
		return nil, err
	}

	n := target.Volume()
	pairs := make([]dimgo.IndexPair, n)
	ra := make([]dimgo.IndexPair, n)
	rb := make([]dimgo.IndexPair, n)

	total := 0
	ca := dims.NewCursor(target, sta)
	cb := dims.NewCursor(target, stb)
	for i := 0; !ca.Done(); i++ {
		ra[i] = ma.indices[a.Offset()+ca.Offset()]
		rb[i] = mb.indices[b.Offset()+cb.Offset()]
		size := (ra[i].End - ra[i].Begin) + (rb[i].End - rb[i].Begin)
		pairs[i] = dimgo.IndexPair{Begin: total, End: total + size}
		total += size
		ca.Inc()
		cb.Inc()
	}

	bufDims := ma.buffer.Dims()
	if err := bufDims.Resize(ma.dim, total); err != nil {
		return nil, err
	}
	buf, err := dimgo.Create(ma.buffer.DType(), bufDims, ma.buffer.Unit(), ma.buffer.HasVariances())
	if err != nil {
		return nil, err
	}

	for i := range pairs {
		pos := pairs[i].Begin
		pos, err = fillRange(buf, ma, ra[i], pos)
		if err != nil {
			return nil, err
		}
		if _, err = fillRange(buf, mb, rb[i], pos); err != nil {
			return nil, err
		}
	}

	m := &binsModel{indices: pairs, dim: ma.dim, buffer: buf}
	return dimgo.NewWithModel(target, buf.Unit(), m)
}

// fillRange copies one source bucket range into dst starting at pos.
// dst is a freshly allocated whole buffer, so its raw backing slices
// are written directly rather than through a copy-on-write view.
func fillRange(dst *dimgo.Variable, src *binsModel, r dimgo.IndexPair, pos int) (int, error) {
	if r.End == r.Begin {
		return pos, nil
	}
	s, err := src.buffer.Slice(src.dim, r.Begin, r.End)
	if err != nil {
		return 0, err
	}
	switch dst.DType().Kind {
	case dimgo.KindFloat64:
		return fillRangeT[float64](dst, pos, s)
	case dimgo.KindFloat32:
		return fillRangeT[float32](dst, pos, s)
	case dimgo.KindInt64:
		return fillRangeT[int64](dst, pos, s)
	case dimgo.KindInt32:
		return fillRangeT[int32](dst, pos, s)
	case dimgo.KindBool:
		return fillRangeT[bool](dst, pos, s)
	case dimgo.KindString:
		return fillRangeT[string](dst, pos, s)
	case dimgo.KindVector3:
		return fillRangeT[dimgo.Vector3](dst, pos, s)
	case dimgo.KindMatrix3:
		return fillRangeT[dimgo.Matrix3](dst, pos, s)
	default:
		return 0, &dimgo.ErrUnsupportedType{Op: "concatenate", DTypes: []dimgo.DType{dst.DType()}}
	}
}

func fillRangeT[T dimgo.Elem](dst *dimgo.Variable, pos int, src *dimgo.Variable) (int, error) {
	sc := src.Clone()
	sv, err := dimgo.Values[T](sc)
	if err != nil {
		return 0, err
	}
	dv, err := dimgo.Values[T](dst)
	if err != nil {
		return 0, err
	}
	copy(dv[pos:], sv)
	if dvar, _ := dimgo.Variances[T](dst); dvar != nil {
		if svar, _ := dimgo.Variances[T](sc); svar != nil {
			copy(dvar[pos:], svar)
		}
	}
	return pos + len(sv), nil
}
