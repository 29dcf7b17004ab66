package dimgo

import "fmt"

// Kind enumerates the supported element kinds. The set is closed for
// plain elements; KindBins marks ragged bucket variables whose buffer
// element kind is carried separately in DType.Elem.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFloat64
	KindFloat32
	KindInt64
	KindInt32
	KindBool
	KindString
	KindIndexPair
	KindVector3
	KindMatrix3
	KindBins
)

var kindNames = [...]string{
	"invalid", "float64", "float32", "int64", "int32", "bool", "string",
	"index_pair", "vector3", "matrix3", "bins",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// DType is the runtime type tag of an array. For plain arrays only Kind
// is set; for bucketed arrays Kind is KindBins and Elem carries the
// buffer's element kind.
type DType struct {
	Kind Kind
	Elem Kind
}

// Plain returns the dtype of a dense array of element kind k.
func Plain(k Kind) DType { return DType{Kind: k} }

// BinsOf returns the dtype of a bucketed array over a buffer of element
// kind elem.
func BinsOf(elem Kind) DType { return DType{Kind: KindBins, Elem: elem} }

// IsBins reports whether the dtype describes a bucketed array.
func (dt DType) IsBins() bool { return dt.Kind == KindBins }

func (dt DType) String() string {
	if dt.IsBins() {
		return fmt.Sprintf("bins<%s>", dt.Elem)
	}
	return dt.Kind.String()
}

// IndexPair is one bucket: a half-open [Begin, End) range into a shared
// buffer along the bucket dimension.
type IndexPair struct {
	Begin, End int
}

// Vector3 is a fixed-structure geometric element (a 3-vector).
type Vector3 [3]float64

// Matrix3 is a fixed-structure geometric element (a 3x3 matrix,
// row-major).
type Matrix3 [3][3]float64

// Elem constrains the element types storable in dense arrays.
type Elem interface {
	float64 | float32 | int64 | int32 | bool | string | IndexPair | Vector3 | Matrix3
}

// KindOf returns the Kind corresponding to the Go element type T.
func KindOf[T Elem]() Kind {
	var z T
	switch any(z).(type) {
	case float64:
		return KindFloat64
	case float32:
		return KindFloat32
	case int64:
		return KindInt64
	case int32:
		return KindInt32
	case bool:
		return KindBool
	case string:
		return KindString
	case IndexPair:
		return KindIndexPair
	case Vector3:
		return KindVector3
	case Matrix3:
		return KindMatrix3
	}
	return KindInvalid
}

// canHaveVariances reports whether elements of kind k may carry an
// uncertainty buffer. Only floating-point elements do.
func canHaveVariances(k Kind) bool {
	return k == KindFloat64 || k == KindFloat32
}

// hasFixedUnit reports whether the unit of kind k is part of the type's
// structure and must not be changed after construction.
func hasFixedUnit(k Kind) bool {
	return k == KindVector3 || k == KindMatrix3
}

// kindSize returns the in-memory element size in bytes, used for
// resource accounting. Strings count the header only.
func kindSize(k Kind) int64 {
	switch k {
	case KindFloat64, KindInt64:
		return 8
	case KindFloat32, KindInt32:
		return 4
	case KindBool:
		return 1
	case KindString, KindIndexPair:
		return 16
	case KindVector3:
		return 24
	case KindMatrix3:
		return 72
	default:
		return 8
	}
}
