// Package dims provides the dimension and stride model underlying every
// array: an ordered mapping from axis labels to extents, per-axis element
// strides for zero-copy views, and a ripple-carry cursor that walks a
// broadcast index space in O(1) amortized per step.
package dims

import (
	"fmt"
	"strings"
)

// Dim labels one axis of an array. The set of labels is closed; arrays
// with more exotic axes are expected to map onto these.
type Dim uint8

const (
	Invalid Dim = iota
	X
	Y
	Z
	Time
	Event
	Row
	Temperature
	Wavelength
)

var dimNames = [...]string{"invalid", "x", "y", "z", "time", "event", "row", "temperature", "wavelength"}

func (d Dim) String() string {
	if int(d) >= len(dimNames) {
		return "unknown"
	}
	return dimNames[d]
}

// MaxDims is the maximum supported number of axes per array.
const MaxDims = 4

// Size pairs an axis label with its extent, for constructing Dimensions.
type Size struct {
	Dim    Dim
	Extent int
}

// Dimensions is an ordered label-to-extent mapping. Order runs from the
// outermost (slowest varying) axis to the innermost, matching row-major
// layout. The zero value describes a scalar (volume 1).
//
// A dimension may additionally be marked as a bin-edge axis, meaning a
// coordinate along it has one element more than data; the marker only
// affects edge-aware slicing and is ignored by Equal and Merge.
type Dimensions struct {
	ndim   int
	labels [MaxDims]Dim
	shape  [MaxDims]int
	edges  [MaxDims]bool
}

// New constructs Dimensions from outer-to-inner sizes.
func New(sizes ...Size) (Dimensions, error) {
	var d Dimensions
	for _, s := range sizes {
		if err := d.Add(s.Dim, s.Extent); err != nil {
			return Dimensions{}, err
		}
	}
	return d, nil
}

// MustNew is New that panics on error, for statically known shapes.
func MustNew(sizes ...Size) Dimensions {
	d, err := New(sizes...)
	if err != nil {
		panic(err)
	}
	return d
}

// NDim returns the number of axes.
func (d Dimensions) NDim() int { return d.ndim }

// Volume returns the product of all extents; 1 for a scalar.
func (d Dimensions) Volume() int {
	v := 1
	for i := 0; i < d.ndim; i++ {
		v *= d.shape[i]
	}
	return v
}

// Contains reports whether axis dim is present.
func (d Dimensions) Contains(dim Dim) bool { return d.Index(dim) >= 0 }

// Index returns the position of axis dim, or -1 if absent.
func (d Dimensions) Index(dim Dim) int {
	for i := 0; i < d.ndim; i++ {
		if d.labels[i] == dim {
			return i
		}
	}
	return -1
}

// Extent returns the extent of axis dim, or -1 if absent.
func (d Dimensions) Extent(dim Dim) int {
	if i := d.Index(dim); i >= 0 {
		return d.shape[i]
	}
	return -1
}

// ExtentAt returns the extent of the axis at position i.
func (d Dimensions) ExtentAt(i int) int { return d.shape[i] }

// Label returns the axis label at position i.
func (d Dimensions) Label(i int) Dim { return d.labels[i] }

// Labels returns the axis labels, outer to inner.
func (d Dimensions) Labels() []Dim {
	out := make([]Dim, d.ndim)
	copy(out, d.labels[:d.ndim])
	return out
}

// Shape returns the extents, outer to inner.
func (d Dimensions) Shape() []int {
	out := make([]int, d.ndim)
	copy(out, d.shape[:d.ndim])
	return out
}

// Outer returns the outermost axis label, or Invalid for a scalar.
func (d Dimensions) Outer() Dim {
	if d.ndim == 0 {
		return Invalid
	}
	return d.labels[0]
}

// Inner returns the innermost axis label, or Invalid for a scalar.
func (d Dimensions) Inner() Dim {
	if d.ndim == 0 {
		return Invalid
	}
	return d.labels[d.ndim-1]
}

// Add appends axis dim as the new innermost axis.
func (d *Dimensions) Add(dim Dim, extent int) error {
	if dim == Invalid {
		return &ErrDimensionMismatch{Detail: "invalid dimension label"}
	}
	if extent < 0 {
		return &ErrDimensionMismatch{Detail: "negative extent"}
	}
	if d.Contains(dim) {
		return &ErrDimensionMismatch{Detail: "duplicate dimension " + dim.String()}
	}
	if d.ndim == MaxDims {
		return &ErrDimensionMismatch{Detail: "exceeds maximum number of dimensions"}
	}
	d.labels[d.ndim] = dim
	d.shape[d.ndim] = extent
	d.edges[d.ndim] = false
	d.ndim++
	return nil
}

// AddOuter prepends axis dim as the new outermost axis.
func (d *Dimensions) AddOuter(dim Dim, extent int) error {
	if d.Contains(dim) {
		return &ErrDimensionMismatch{Detail: "duplicate dimension " + dim.String()}
	}
	if d.ndim == MaxDims {
		return &ErrDimensionMismatch{Detail: "exceeds maximum number of dimensions"}
	}
	copy(d.labels[1:d.ndim+1], d.labels[:d.ndim])
	copy(d.shape[1:d.ndim+1], d.shape[:d.ndim])
	copy(d.edges[1:d.ndim+1], d.edges[:d.ndim])
	d.labels[0] = dim
	d.shape[0] = extent
	d.edges[0] = false
	d.ndim++
	return nil
}

// Resize changes the extent of an existing axis.
func (d *Dimensions) Resize(dim Dim, extent int) error {
	i := d.Index(dim)
	if i < 0 {
		return &ErrDimensionMismatch{Detail: "unknown dimension " + dim.String()}
	}
	if extent < 0 {
		return &ErrDimensionMismatch{Detail: "negative extent"}
	}
	d.shape[i] = extent
	return nil
}

// Erase removes axis dim.
func (d *Dimensions) Erase(dim Dim) error {
	i := d.Index(dim)
	if i < 0 {
		return &ErrDimensionMismatch{Detail: "unknown dimension " + dim.String()}
	}
	copy(d.labels[i:], d.labels[i+1:d.ndim])
	copy(d.shape[i:], d.shape[i+1:d.ndim])
	copy(d.edges[i:], d.edges[i+1:d.ndim])
	d.ndim--
	return nil
}

// MarkEdge flags axis dim as a bin-edge axis.
func (d *Dimensions) MarkEdge(dim Dim) error {
	i := d.Index(dim)
	if i < 0 {
		return &ErrDimensionMismatch{Detail: "unknown dimension " + dim.String()}
	}
	d.edges[i] = true
	return nil
}

// IsEdge reports whether axis dim is flagged as a bin-edge axis.
func (d Dimensions) IsEdge(dim Dim) bool {
	i := d.Index(dim)
	return i >= 0 && d.edges[i]
}

// Equal reports whether two Dimensions have identical axis order and
// extents. Bin-edge markers are ignored.
func (d Dimensions) Equal(other Dimensions) bool {
	if d.ndim != other.ndim {
		return false
	}
	for i := 0; i < d.ndim; i++ {
		if d.labels[i] != other.labels[i] || d.shape[i] != other.shape[i] {
			return false
		}
	}
	return true
}

// SameDims reports whether two Dimensions span the same axes with the
// same extents, in any order.
func (d Dimensions) SameDims(other Dimensions) bool {
	if d.ndim != other.ndim {
		return false
	}
	for i := 0; i < d.ndim; i++ {
		if other.Extent(d.labels[i]) != d.shape[i] {
			return false
		}
	}
	return true
}

// Includes reports whether every axis of other is present in d with a
// compatible extent (equal, or other's extent 1 broadcastable).
func (d Dimensions) Includes(other Dimensions) bool {
	for i := 0; i < other.ndim; i++ {
		e := d.Extent(other.labels[i])
		if e < 0 || (e != other.shape[i] && other.shape[i] != 1) {
			return false
		}
	}
	return true
}

// Merge computes the broadcast result shape of two operands: every axis
// present in either, with d's axis order first. An axis present in both
// must have equal extents, or extent 1 on one side (broadcast). Any other
// mismatch returns ErrDimensionMismatch.
func (d Dimensions) Merge(other Dimensions) (Dimensions, error) {
	out := d
	for i := 0; i < other.ndim; i++ {
		dim, extent := other.labels[i], other.shape[i]
		j := out.Index(dim)
		if j < 0 {
			if err := out.Add(dim, extent); err != nil {
				return Dimensions{}, err
			}
			continue
		}
		switch {
		case out.shape[j] == extent:
		case out.shape[j] == 1:
			out.shape[j] = extent
		case extent == 1:
		default:
			return Dimensions{}, &ErrDimensionMismatch{A: d, B: other, Detail: "extent mismatch in " + dim.String()}
		}
	}
	out.edges = [MaxDims]bool{}
	return out, nil
}

func (d Dimensions) String() string {
	if d.ndim == 0 {
		return "()"
	}
	var b strings.Builder
	b.WriteByte('(')
	for i := 0; i < d.ndim; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s:%d", d.labels[i], d.shape[i])
	}
	b.WriteByte(')')
	return b.String()
}
