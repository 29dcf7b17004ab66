package dimgo

import (
	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/units"
)

// maxArgs is the maximum number of operands of a typed operation,
// including the output for in-place kernels.
const maxArgs = 4

// VarianceReq describes whether an operand must, may, or must not
// carry a variance buffer.
type VarianceReq uint8

const (
	VarianceAny VarianceReq = iota
	VarianceRequired
	VarianceForbidden
)

// UnitRule combines or validates the operand units of an operation. It
// runs exactly once per transform, before any element loop.
type UnitRule func(us ...units.Unit) (units.Unit, error)

// UnitsEqual requires all operand units to match and returns that unit.
func UnitsEqual(op string) UnitRule {
	return func(us ...units.Unit) (units.Unit, error) {
		for _, u := range us[1:] {
			if u != us[0] {
				return units.Unit{}, &units.ErrIncompatible{Op: op, A: us[0], B: u}
			}
		}
		return us[0], nil
	}
}

// UnitsEqualDimensionless requires matching operand units and yields a
// dimensionless result, for comparisons.
func UnitsEqualDimensionless(op string) UnitRule {
	return func(us ...units.Unit) (units.Unit, error) {
		for _, u := range us[1:] {
			if u != us[0] {
				return units.Unit{}, &units.ErrIncompatible{Op: op, A: us[0], B: u}
			}
		}
		return units.Dimensionless, nil
	}
}

// UnitsMul yields the product of the operand units.
func UnitsMul() UnitRule {
	return func(us ...units.Unit) (units.Unit, error) {
		out := us[0]
		for _, u := range us[1:] {
			out = out.Mul(u)
		}
		return out, nil
	}
}

// UnitsDiv yields the quotient of two operand units.
func UnitsDiv() UnitRule {
	return func(us ...units.Unit) (units.Unit, error) {
		out := us[0]
		for _, u := range us[1:] {
			out = out.Div(u)
		}
		return out, nil
	}
}

// UnitsFirst yields the first operand's unit unchanged.
func UnitsFirst() UnitRule {
	return func(us ...units.Unit) (units.Unit, error) {
		return us[0], nil
	}
}

// span is a type-erased window of one operand over an iteration space:
// the target dimensions, the operand's strides relative to them (zero
// along broadcast axes), and its base offset into the model buffer.
type span struct {
	target  dims.Dimensions
	strides dims.Strides
	offset  int
	m       ArrayModel
}

func makeSpan(v *Variable, target dims.Dimensions) (span, error) {
	st, err := dims.Relative(v.dims, v.strides, target)
	if err != nil {
		return span{}, err
	}
	return span{target: target, strides: st, offset: v.offset, m: v.data.m}, nil
}

func (s span) cursor() *dims.Cursor { return dims.NewCursor(s.target, s.strides) }

// chunk windows the span along the outermost target axis. Operands
// broadcast along that axis (stride zero) alias the same elements in
// every chunk, which is safe for read-only operands only.
func (s span) chunk(begin, end int) span {
	out := s
	_ = out.target.Resize(out.target.Outer(), end-begin)
	out.offset += begin * s.strides.At(0)
	return out
}

type argKey struct {
	n int
	k [maxArgs]Kind
}

type kernel struct {
	key       argKey
	out       Kind
	hasVar    bool
	variances [maxArgs]VarianceReq
	run       func(out span, args []span) error
}

type ipKernel struct {
	key       argKey // dst kind first, then args
	hasVar    bool
	variances [maxArgs]VarianceReq // dst first
	run       func(dst span, args []span) error
}

// Kernel is one typed overload of an operation, built with Unary,
// Binary, or the in-place constructors.
type Kernel interface {
	addTo(op *Op)
}

func (k kernel) addTo(op *Op)   { op.kernels[k.key] = k }
func (k ipKernel) addTo(op *Op) { op.ipKernels[k.key] = k }

// Op is a named element-wise operation: a unit rule plus one kernel per
// supported type combination. Kernel tables are assembled when the
// defining package initializes; an unsupported combination surfaces as
// *ErrUnsupportedType at the call site.
type Op struct {
	name      string
	unit      UnitRule
	kernels   map[argKey]kernel
	ipKernels map[argKey]ipKernel
}

// NewOp assembles an operation from its unit rule and kernels.
func NewOp(name string, rule UnitRule, ks ...Kernel) *Op {
	op := &Op{
		name:      name,
		unit:      rule,
		kernels:   make(map[argKey]kernel),
		ipKernels: make(map[argKey]ipKernel),
	}
	for _, k := range ks {
		k.addTo(op)
	}
	return op
}

// Name returns the operation name used in error messages and metrics.
func (op *Op) Name() string { return op.name }

// Unary builds an allocating one-input kernel. The optional variance
// function receives value and variance of the input and returns output
// value and variance; when nil, the input must not carry variances.
func Unary[Out, A Elem](value func(A) Out, variance func(a, va A) (Out, Out)) Kernel {
	k := kernel{
		key:    argKey{n: 1, k: [maxArgs]Kind{KindOf[A]()}},
		out:    KindOf[Out](),
		hasVar: variance != nil,
	}
	if variance == nil {
		k.variances[0] = VarianceForbidden
	}
	k.run = func(out span, args []span) error {
		om := out.m.(*model[Out])
		am := args[0].m.(*model[A])
		oc, ac := out.cursor(), args[0].cursor()
		for !oc.Done() {
			oi, ai := out.offset+oc.Offset(), args[0].offset+ac.Offset()
			if om.variances != nil {
				var va A
				if am.variances != nil {
					va = am.variances[ai]
				}
				om.values[oi], om.variances[oi] = variance(am.values[ai], va)
			} else {
				om.values[oi] = value(am.values[ai])
			}
			oc.Inc()
			ac.Inc()
		}
		return nil
	}
	return k
}

// Binary builds an allocating two-input kernel with independent-error
// variance propagation supplied alongside the value formula.
func Binary[Out, A, B Elem](value func(A, B) Out, variance func(a, va A, b, vb B) (Out, Out)) Kernel {
	k := kernel{
		key:    argKey{n: 2, k: [maxArgs]Kind{KindOf[A](), KindOf[B]()}},
		out:    KindOf[Out](),
		hasVar: variance != nil,
	}
	if variance == nil {
		k.variances[0] = VarianceForbidden
		k.variances[1] = VarianceForbidden
	}
	k.run = func(out span, args []span) error {
		om := out.m.(*model[Out])
		am := args[0].m.(*model[A])
		bm := args[1].m.(*model[B])
		oc, ac, bc := out.cursor(), args[0].cursor(), args[1].cursor()
		for !oc.Done() {
			oi := out.offset + oc.Offset()
			ai := args[0].offset + ac.Offset()
			bi := args[1].offset + bc.Offset()
			if om.variances != nil {
				var va A
				var vb B
				if am.variances != nil {
					va = am.variances[ai]
				}
				if bm.variances != nil {
					vb = bm.variances[bi]
				}
				om.values[oi], om.variances[oi] = variance(am.values[ai], va, bm.values[bi], vb)
			} else {
				om.values[oi] = value(am.values[ai], bm.values[bi])
			}
			oc.Inc()
			ac.Inc()
			bc.Inc()
		}
		return nil
	}
	return k
}

// UnaryInPlace builds a kernel writing through a pre-existing output:
// value mutates the destination element from one input element. Used
// both for in-place transforms and, with a smaller output shape, for
// accumulating reductions.
func UnaryInPlace[D, A Elem](value func(d *D, a A), variance func(d, vd *D, a, va A)) Kernel {
	k := ipKernel{
		key:    argKey{n: 2, k: [maxArgs]Kind{KindOf[D](), KindOf[A]()}},
		hasVar: variance != nil,
	}
	if variance == nil {
		k.variances[0] = VarianceForbidden
		k.variances[1] = VarianceForbidden
	}
	k.run = func(dst span, args []span) error {
		dm := dst.m.(*model[D])
		am := args[0].m.(*model[A])
		dc, ac := dst.cursor(), args[0].cursor()
		for !dc.Done() {
			di, ai := dst.offset+dc.Offset(), args[0].offset+ac.Offset()
			if dm.variances != nil {
				var va A
				if am.variances != nil {
					va = am.variances[ai]
				}
				variance(&dm.values[di], &dm.variances[di], am.values[ai], va)
			} else {
				value(&dm.values[di], am.values[ai])
			}
			dc.Inc()
			ac.Inc()
		}
		return nil
	}
	return k
}

// BinaryInPlace builds a two-input kernel writing through a
// pre-existing output.
func BinaryInPlace[D, A, B Elem](value func(d *D, a A, b B), variance func(d, vd *D, a, va A, b, vb B)) Kernel {
	k := ipKernel{
		key:    argKey{n: 3, k: [maxArgs]Kind{KindOf[D](), KindOf[A](), KindOf[B]()}},
		hasVar: variance != nil,
	}
	if variance == nil {
		k.variances[0] = VarianceForbidden
		k.variances[1] = VarianceForbidden
		k.variances[2] = VarianceForbidden
	}
	k.run = func(dst span, args []span) error {
		dm := dst.m.(*model[D])
		am := args[0].m.(*model[A])
		bm := args[1].m.(*model[B])
		dc, ac, bc := dst.cursor(), args[0].cursor(), args[1].cursor()
		for !dc.Done() {
			di := dst.offset + dc.Offset()
			ai := args[0].offset + ac.Offset()
			bi := args[1].offset + bc.Offset()
			if dm.variances != nil {
				var va A
				var vb B
				if am.variances != nil {
					va = am.variances[ai]
				}
				if bm.variances != nil {
					vb = bm.variances[bi]
				}
				variance(&dm.values[di], &dm.variances[di], am.values[ai], va, bm.values[bi], vb)
			} else {
				value(&dm.values[di], am.values[ai], bm.values[bi])
			}
			dc.Inc()
			ac.Inc()
			bc.Inc()
		}
		return nil
	}
	return k
}

// TernaryInPlace builds a three-input kernel writing through a
// pre-existing output, for fused operations like tolerance comparison.
func TernaryInPlace[D, A, B, C Elem](value func(d *D, a A, b B, c C), variance func(d, vd *D, a, va A, b, vb B, c, vc C)) Kernel {
	k := ipKernel{
		key:    argKey{n: 4, k: [maxArgs]Kind{KindOf[D](), KindOf[A](), KindOf[B](), KindOf[C]()}},
		hasVar: variance != nil,
	}
	if variance == nil {
		for i := range k.variances {
			k.variances[i] = VarianceForbidden
		}
	}
	k.run = func(dst span, args []span) error {
		dm := dst.m.(*model[D])
		am := args[0].m.(*model[A])
		bm := args[1].m.(*model[B])
		cm := args[2].m.(*model[C])
		dc, ac, bc, cc := dst.cursor(), args[0].cursor(), args[1].cursor(), args[2].cursor()
		for !dc.Done() {
			di := dst.offset + dc.Offset()
			ai := args[0].offset + ac.Offset()
			bi := args[1].offset + bc.Offset()
			ci := args[2].offset + cc.Offset()
			if dm.variances != nil {
				var va A
				var vb B
				var vc C
				if am.variances != nil {
					va = am.variances[ai]
				}
				if bm.variances != nil {
					vb = bm.variances[bi]
				}
				if cm.variances != nil {
					vc = cm.variances[ci]
				}
				variance(&dm.values[di], &dm.variances[di], am.values[ai], va, bm.values[bi], vb, cm.values[ci], vc)
			} else {
				value(&dm.values[di], am.values[ai], bm.values[bi], cm.values[ci])
			}
			dc.Inc()
			ac.Inc()
			bc.Inc()
			cc.Inc()
		}
		return nil
	}
	return k
}
