package dims

// Cursor advances through the logical index space of a Dimensions while
// tracking the flat physical offset implied by a Strides. Incrementing
// bumps the fastest-varying (innermost) coordinate; on overflow the
// coordinate resets and the carry ripples into the next axis, adjusting
// the offset by a precomputed delta. A full traversal is O(1) amortized
// per step.
//
// Cursor equality compares only the logical position, so cursors over
// different physical layouts of the same index space can be compared.
// The one-past-end state is reached exactly once; construct a second
// cursor with SetEnd to obtain the matching sentinel.
type Cursor struct {
	ndim   int
	volume int
	// Axis arrays are stored innermost-first so that index 0 is the
	// fastest-varying coordinate.
	extent [MaxDims]int
	stride [MaxDims]int
	delta  [MaxDims]int
	coord  [MaxDims]int
	offset int
	pos    int
}

// NewCursor positions a cursor at the start of the index space of target,
// stepping through physical offsets given by st. st must be relative to
// target (see Relative); axes being broadcast carry stride zero.
func NewCursor(target Dimensions, st Strides) *Cursor {
	c := &Cursor{volume: target.Volume()}
	n := target.NDim()
	if n == 0 {
		// Scalars iterate as a single-element axis.
		c.ndim = 1
		c.extent[0] = 1
		return c
	}
	c.ndim = n
	for i := 0; i < n; i++ {
		c.extent[i] = target.ExtentAt(n - 1 - i)
		c.stride[i] = st.At(n - 1 - i)
	}
	c.delta[0] = c.stride[0]
	for d := 0; d < n-1; d++ {
		c.delta[d+1] = c.stride[d+1] - c.extent[d]*c.stride[d]
	}
	return c
}

// Inc advances to the next logical position.
func (c *Cursor) Inc() {
	c.pos++
	c.offset += c.delta[0]
	c.coord[0]++
	if c.coord[0] == c.extent[0] {
		c.carry()
	}
}

func (c *Cursor) carry() {
	for d := 0; d < c.ndim-1 && c.coord[d] == c.extent[d]; d++ {
		c.offset += c.delta[d+1]
		c.coord[d+1]++
		c.coord[d] = 0
	}
}

// Offset returns the flat physical offset of the current element.
func (c *Cursor) Offset() int { return c.offset }

// Pos returns the logical position in [0, Volume()].
func (c *Cursor) Pos() int { return c.pos }

// Volume returns the total number of logical positions.
func (c *Cursor) Volume() int { return c.volume }

// Done reports whether the cursor has passed the last element.
func (c *Cursor) Done() bool { return c.pos >= c.volume }

// Equal compares logical positions only.
func (c *Cursor) Equal(other *Cursor) bool { return c.pos == other.pos }

// Seek repositions the cursor at an arbitrary logical position,
// recomputing coordinates and the physical offset. Used to start
// partitioned traversals mid-range.
func (c *Cursor) Seek(pos int) {
	c.pos = pos
	rem := pos
	c.offset = 0
	for d := 0; d < c.ndim; d++ {
		if c.extent[d] == 0 {
			c.coord[d] = 0
			continue
		}
		c.coord[d] = rem % c.extent[d]
		rem /= c.extent[d]
		c.offset += c.coord[d] * c.stride[d]
	}
}

// SetEnd places the cursor in the distinguished one-past-end state.
func (c *Cursor) SetEnd() {
	c.Seek(c.volume)
	c.pos = c.volume
}
