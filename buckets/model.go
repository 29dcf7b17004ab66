// Package buckets implements ragged arrays: a dense outer array whose
// elements are half-open ranges into a shared inner buffer. Buckets are
// a registered element kind, so generic engine code can allocate and
// inspect bucketed variables without knowing the buffer type.
package buckets

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/dimgo"
	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/units"
)

// binsModel is the ArrayModel of a bucketed variable: one (begin, end)
// range per outer element, addressing the shared buffer along dim.
type binsModel struct {
	indices []dimgo.IndexPair
	dim     dims.Dim
	buffer  *dimgo.Variable
}

func (m *binsModel) Len() int { return len(m.indices) }

func (m *binsModel) DType() dimgo.DType { return dimgo.BinsOf(m.buffer.DType().Kind) }

func (m *binsModel) Clone() dimgo.ArrayModel {
	return &binsModel{
		indices: append([]dimgo.IndexPair(nil), m.indices...),
		dim:     m.dim,
		buffer:  m.buffer.Clone(),
	}
}

// Equal compares bucket by bucket: same bucket count and, per bucket,
// equal buffer slices. The absolute index values need not match, only
// the addressed content.
func (m *binsModel) Equal(other dimgo.ArrayModel) bool {
	o, ok := other.(*binsModel)
	if !ok || m.dim != o.dim || len(m.indices) != len(o.indices) {
		return false
	}
	for i, r := range m.indices {
		or := o.indices[i]
		a, err := m.buffer.Slice(m.dim, r.Begin, r.End)
		if err != nil {
			return false
		}
		b, err := o.buffer.Slice(o.dim, or.Begin, or.End)
		if err != nil {
			return false
		}
		if !a.Equal(b) {
			return false
		}
	}
	return true
}

func (m *binsModel) HasVariances() bool { return m.buffer.HasVariances() }

func (m *binsModel) SetVariances(v dimgo.ArrayModel) error {
	return &dimgo.ErrVariances{Op: "set variances", Detail: "bucketed variables carry variances in their buffer"}
}

// MakeDefault allocates empty buckets over a zero-length buffer of the
// same element type.
func (m *binsModel) MakeDefault(volume int, variances bool) (dimgo.ArrayModel, error) {
	bufDims := m.buffer.Dims()
	if err := bufDims.Resize(m.dim, 0); err != nil {
		return nil, err
	}
	buf, err := dimgo.Create(m.buffer.DType(), bufDims, m.buffer.Unit(), variances || m.buffer.HasVariances())
	if err != nil {
		return nil, err
	}
	return &binsModel{
		indices: make([]dimgo.IndexPair, volume),
		dim:     m.dim,
		buffer:  buf,
	}, nil
}

// binsMaker registers the bucket kind with the variable factory.
type binsMaker struct{}

func (binsMaker) Create(elem dimgo.DType, d dims.Dimensions, u units.Unit, variances bool, parents []*dimgo.Variable) (*dimgo.Variable, error) {
	var proto *binsModel
	for _, p := range parents {
		if m, ok := p.Model().(*binsModel); ok {
			proto = m
			break
		}
	}
	if proto == nil {
		return nil, &dimgo.ErrUnsupportedType{Op: "create buckets", DTypes: []dimgo.DType{elem}}
	}
	bufDims := proto.buffer.Dims()
	if err := bufDims.Resize(proto.dim, 0); err != nil {
		return nil, err
	}
	buf, err := dimgo.Create(elem, bufDims, u, variances)
	if err != nil {
		return nil, err
	}
	m := &binsModel{
		indices: make([]dimgo.IndexPair, d.Volume()),
		dim:     proto.dim,
		buffer:  buf,
	}
	return dimgo.NewWithModel(d, u, m)
}

func (binsMaker) ElemDType(v *dimgo.Variable) dimgo.DType {
	return v.Model().(*binsModel).buffer.DType()
}

func (binsMaker) ElemUnit(v *dimgo.Variable) units.Unit {
	return v.Model().(*binsModel).buffer.Unit()
}

func (binsMaker) SetElemUnit(v *dimgo.Variable, u units.Unit) error {
	return v.MutableModel().(*binsModel).buffer.SetUnit(u)
}

func (binsMaker) HasVariances(v *dimgo.Variable) bool {
	return v.Model().(*binsModel).HasVariances()
}

func (binsMaker) IsBins() bool { return true }

func (binsMaker) ElemDim(v *dimgo.Variable) dims.Dim {
	return v.Model().(*binsModel).dim
}

func (binsMaker) Buffer(v *dimgo.Variable) *dimgo.Variable {
	return v.Model().(*binsModel).buffer.ShallowCopy()
}

func init() {
	dimgo.RegisterMaker(dimgo.KindBins, binsMaker{})
}

// MakeBins constructs a bucketed variable from a dense array of
// (begin, end) ranges and a shared one-dimensional buffer addressed
// along dim. Every range must lie within the buffer and ranges must
// not overlap; use MakeBinsNoValidate for deliberately overlapping
// views.
func MakeBins(indices *dimgo.Variable, dim dims.Dim, buffer *dimgo.Variable) (*dimgo.Variable, error) {
	pairs, err := indexPairs(indices)
	if err != nil {
		return nil, err
	}
	bufLen, err := bucketBufferLen(buffer, dim)
	if err != nil {
		return nil, err
	}

	claimed := bitset.New(uint(bufLen))
	for i, r := range pairs {
		if r.Begin < 0 || r.End < r.Begin || r.End > bufLen {
			return nil, &ErrIndexOutOfRange{Bucket: i, Range: r, BufferLen: bufLen}
		}
		for j := r.Begin; j < r.End; j++ {
			if claimed.Test(uint(j)) {
				return nil, &ErrIndexOutOfRange{Bucket: i, Range: r, BufferLen: bufLen, Overlap: true}
			}
			claimed.Set(uint(j))
		}
	}

	return newBins(indices.Dims(), pairs, dim, buffer)
}

// MakeBinsNoValidate constructs a bucketed variable without range
// validation. Out-of-bounds ranges will surface later as slice errors;
// overlapping ranges alias buffer content by construction.
func MakeBinsNoValidate(indices *dimgo.Variable, dim dims.Dim, buffer *dimgo.Variable) (*dimgo.Variable, error) {
	pairs, err := indexPairs(indices)
	if err != nil {
		return nil, err
	}
	if _, err := bucketBufferLen(buffer, dim); err != nil {
		return nil, err
	}
	return newBins(indices.Dims(), pairs, dim, buffer)
}

// bucketBufferLen checks that buffer is one-dimensional over dim and
// returns its extent. Flat (begin, end) ranges cannot address a
// higher-rank buffer.
func bucketBufferLen(buffer *dimgo.Variable, dim dims.Dim) (int, error) {
	d := buffer.Dims()
	if d.NDim() != 1 || d.Label(0) != dim {
		return 0, &dims.ErrDimensionMismatch{A: d, Detail: "buffer must be one-dimensional over bucket dimension " + dim.String()}
	}
	return d.ExtentAt(0), nil
}

func newBins(d dims.Dimensions, pairs []dimgo.IndexPair, dim dims.Dim, buffer *dimgo.Variable) (*dimgo.Variable, error) {
	m := &binsModel{indices: pairs, dim: dim, buffer: buffer.ShallowCopy()}
	return dimgo.NewWithModel(d, buffer.Unit(), m)
}

// indexPairs compacts an index variable into logical order.
func indexPairs(indices *dimgo.Variable) ([]dimgo.IndexPair, error) {
	if indices.DType().Kind != dimgo.KindIndexPair {
		return nil, &dimgo.ErrUnsupportedType{Op: "make buckets", DTypes: []dimgo.DType{indices.DType()}}
	}
	vals, err := dimgo.Values[dimgo.IndexPair](indices.Clone())
	if err != nil {
		return nil, err
	}
	return vals, nil
}

// Buffer returns a copy-on-write view of v's shared inner buffer.
func Buffer(v *dimgo.Variable) (*dimgo.Variable, error) {
	m, err := binsOf(v)
	if err != nil {
		return nil, err
	}
	return m.buffer.ShallowCopy(), nil
}

// BucketDim returns the buffer dimension v's buckets slice along.
func BucketDim(v *dimgo.Variable) (dims.Dim, error) {
	m, err := binsOf(v)
	if err != nil {
		return dims.Invalid, err
	}
	return m.dim, nil
}

// Indices returns a dense array of v's (begin, end) buffer ranges.
func Indices(v *dimgo.Variable) (*dimgo.Variable, error) {
	m, err := binsOf(v)
	if err != nil {
		return nil, err
	}
	pairs := make([]dimgo.IndexPair, v.Volume())
	c := dims.NewCursor(v.Dims(), v.Strides())
	for i := 0; !c.Done(); c.Inc() {
		pairs[i] = m.indices[v.Offset()+c.Offset()]
		i++
	}
	return dimgo.New(v.Dims(), units.Dimensionless, pairs)
}

// BinSizes returns a dense dimensionless int64 array holding each
// bucket's length.
func BinSizes(v *dimgo.Variable) (*dimgo.Variable, error) {
	m, err := binsOf(v)
	if err != nil {
		return nil, err
	}
	sizes := make([]int64, v.Volume())
	c := dims.NewCursor(v.Dims(), v.Strides())
	for i := 0; !c.Done(); c.Inc() {
		r := m.indices[v.Offset()+c.Offset()]
		sizes[i] = int64(r.End - r.Begin)
		i++
	}
	return dimgo.New(v.Dims(), units.Dimensionless, sizes)
}

func binsOf(v *dimgo.Variable) (*binsModel, error) {
	m, ok := v.Model().(*binsModel)
	if !ok {
		return nil, &dimgo.ErrUnsupportedType{Op: "bucket access", DTypes: []dimgo.DType{v.DType()}}
	}
	return m, nil
}
