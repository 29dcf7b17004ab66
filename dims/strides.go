package dims

// Strides holds one element step per axis, ordered like the Dimensions
// they belong to (outer to inner). A stride of zero means the axis is
// broadcast: every coordinate along it aliases the same element.
type Strides struct {
	ndim int
	s    [MaxDims]int
}

// NewStrides constructs Strides from explicit per-axis steps.
func NewStrides(steps ...int) Strides {
	var st Strides
	st.ndim = len(steps)
	copy(st.s[:], steps)
	return st
}

// Contiguous returns the row-major strides of a freshly allocated buffer
// for d: the innermost axis has stride 1.
func Contiguous(d Dimensions) Strides {
	var st Strides
	st.ndim = d.NDim()
	acc := 1
	for i := st.ndim - 1; i >= 0; i-- {
		st.s[i] = acc
		acc *= d.ExtentAt(i)
	}
	return st
}

// NDim returns the number of axes covered.
func (st Strides) NDim() int { return st.ndim }

// At returns the step of the axis at position i.
func (st Strides) At(i int) int { return st.s[i] }

// Set changes the step of the axis at position i.
func (st *Strides) Set(i, step int) { st.s[i] = step }

// Erase removes the axis at position i.
func (st *Strides) Erase(i int) {
	copy(st.s[i:], st.s[i+1:st.ndim])
	st.ndim--
}

// Relative maps the strides of an owning layout onto a broadcast target:
// for every axis of target, the owner's step for that axis, or zero when
// the owner lacks the axis or holds it with extent 1 against a larger
// target extent (broadcasting). An extent conflict that cannot broadcast
// returns ErrDimensionMismatch.
func Relative(owner Dimensions, st Strides, target Dimensions) (Strides, error) {
	var out Strides
	out.ndim = target.NDim()
	for i := 0; i < target.NDim(); i++ {
		dim := target.Label(i)
		j := owner.Index(dim)
		if j < 0 {
			out.s[i] = 0
			continue
		}
		switch oe, te := owner.ExtentAt(j), target.ExtentAt(i); {
		case oe == te:
			out.s[i] = st.At(j)
		case oe == 1:
			out.s[i] = 0
		default:
			return Strides{}, &ErrDimensionMismatch{A: owner, B: target, Detail: "cannot broadcast " + dim.String()}
		}
	}
	return out, nil
}
