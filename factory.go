package dimgo

import (
	"fmt"

	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/units"
)

// Maker constructs and inspects variables of one kind without
// compile-time knowledge of the element type. Makers are registered at
// package initialization and the registry is read-only afterwards, so
// concurrent lookup needs no locking.
type Maker interface {
	// Create allocates a zero-initialized variable. elem is the
	// element dtype requested by the caller; parents are candidate
	// inputs whose structure (e.g. a bucket buffer layout) the new
	// variable should follow.
	Create(elem DType, d dims.Dimensions, u units.Unit, variances bool, parents []*Variable) (*Variable, error)

	// ElemDType returns the element dtype of v, unwrapping nesting.
	ElemDType(v *Variable) DType

	// ElemUnit returns the element unit of v.
	ElemUnit(v *Variable) units.Unit

	// SetElemUnit changes the element unit of v.
	SetElemUnit(v *Variable, u units.Unit) error

	// HasVariances reports element variance presence.
	HasVariances(v *Variable) bool

	// IsBins reports whether this maker produces bucketed variables.
	IsBins() bool
}

// BinsMaker extends Maker for bucketed (ragged) variables.
type BinsMaker interface {
	Maker

	// ElemDim returns the buffer dimension the buckets slice along.
	ElemDim(v *Variable) dims.Dim

	// Buffer returns a view of the shared inner buffer.
	Buffer(v *Variable) *Variable
}

var makers = map[Kind]Maker{}

// RegisterMaker installs the maker for kind k. It must be called from
// package init; registering a kind twice panics.
func RegisterMaker(k Kind, m Maker) {
	if _, ok := makers[k]; ok {
		panic(fmt.Sprintf("dimgo: maker for kind %s registered twice", k))
	}
	makers[k] = m
}

// makerFor returns the registered maker for kind k. A missing maker is
// a programming error, not a recoverable condition.
func makerFor(k Kind) Maker {
	m, ok := makers[k]
	if !ok {
		panic(fmt.Sprintf("dimgo: no maker registered for kind %s", k))
	}
	return m
}

// Create allocates a variable of the requested element dtype through
// the registry. If any parent is itself bucketed, the result is
// bucketed over elem (bins-of-X dominates over X), letting generic code
// build a correctly typed output without knowing concrete input types.
func Create(elem DType, d dims.Dimensions, u units.Unit, variances bool, parents ...*Variable) (*Variable, error) {
	kind := elem.Kind
	for _, p := range parents {
		if p.DType().IsBins() {
			kind = KindBins
			break
		}
	}
	return makerFor(kind).Create(elem, d, u, variances, parents)
}

// IsBins reports whether v is a bucketed variable.
func IsBins(v *Variable) bool { return v.DType().IsBins() }

// basicMaker is the Maker for dense element kinds.
type basicMaker[T Elem] struct{}

func (basicMaker[T]) Create(_ DType, d dims.Dimensions, u units.Unit, variances bool, _ []*Variable) (*Variable, error) {
	return NewEmpty[T](d, u, variances)
}

func (basicMaker[T]) ElemDType(v *Variable) DType { return v.DType() }

func (basicMaker[T]) ElemUnit(v *Variable) units.Unit { return v.unit }

func (basicMaker[T]) SetElemUnit(v *Variable, u units.Unit) error { return v.SetUnit(u) }

func (basicMaker[T]) HasVariances(v *Variable) bool { return v.data.m.HasVariances() }

func (basicMaker[T]) IsBins() bool { return false }

func init() {
	RegisterMaker(KindFloat64, basicMaker[float64]{})
	RegisterMaker(KindFloat32, basicMaker[float32]{})
	RegisterMaker(KindInt64, basicMaker[int64]{})
	RegisterMaker(KindInt32, basicMaker[int32]{})
	RegisterMaker(KindBool, basicMaker[bool]{})
	RegisterMaker(KindString, basicMaker[string]{})
	RegisterMaker(KindIndexPair, basicMaker[IndexPair]{})
	RegisterMaker(KindVector3, basicMaker[Vector3]{})
	RegisterMaker(KindMatrix3, basicMaker[Matrix3]{})
}
