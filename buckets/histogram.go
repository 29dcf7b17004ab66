package buckets

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/dimgo"
	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/units"
)

// Histogram bins each bucket's events into the supplied edges,
// producing a dense array over the outer dimensions plus the edge
// dimension (with one bin fewer than edges). Events outside
// [first, last) and NaN coordinates are dropped. With nil weights each
// event contributes one count and the result carries Poisson variances;
// otherwise weight values and variances accumulate per bin. The event
// coordinate unit must equal the edge unit, and weights must be counts
// or dimensionless.
//
// Evenly spaced edges use direct scaled-index lookup; general sorted
// edges fall back to binary search. Unsorted edges are an error.
func Histogram(coords, weights *dimgo.Variable, edges *dimgo.Variable) (*dimgo.Variable, error) {
	mc, err := binsOf(coords)
	if err != nil {
		return nil, err
	}
	if mc.buffer.DType().Kind != dimgo.KindFloat64 {
		return nil, &dimgo.ErrUnsupportedType{Op: "histogram", DTypes: []dimgo.DType{coords.DType()}}
	}

	ed, ev, err := edgeValues(edges)
	if err != nil {
		return nil, err
	}
	if !mc.buffer.Unit().Equal(edges.Unit()) {
		return nil, &units.ErrIncompatible{Op: "histogram", A: mc.buffer.Unit(), B: edges.Unit()}
	}

	weightUnit := units.Counts
	withVar := true
	var wm *binsModel
	if weights != nil {
		wm, err = binsOf(weights)
		if err != nil {
			return nil, err
		}
		if wm.buffer.DType().Kind != dimgo.KindFloat64 {
			return nil, &dimgo.ErrUnsupportedType{Op: "histogram", DTypes: []dimgo.DType{weights.DType()}}
		}
		weightUnit = wm.buffer.Unit()
		if !weightUnit.IsCounts() && !weightUnit.IsDimensionless() {
			return nil, &units.ErrIncompatible{Op: "histogram", A: weightUnit, B: units.Counts}
		}
		withVar = wm.buffer.HasVariances()

		// One weight bucket per coordinate bucket, paired by label.
		wd, cd := weights.Dims(), coords.Dims()
		if wd.NDim() != cd.NDim() {
			return nil, &dims.ErrDimensionMismatch{A: cd, B: wd, Detail: "weights must be bucketed like the coordinates"}
		}
		for i := 0; i < cd.NDim(); i++ {
			if wd.Extent(cd.Label(i)) != cd.ExtentAt(i) {
				return nil, &dims.ErrDimensionMismatch{A: cd, B: wd, Detail: "weights must be bucketed like the coordinates"}
			}
		}
	}

	nbins := len(ev) - 1
	outDims := coords.Dims()
	if err := outDims.Add(ed, nbins); err != nil {
		return nil, err
	}
	out, err := dimgo.NewEmpty[float64](outDims, weightUnit, withVar)
	if err != nil {
		return nil, err
	}
	outVals, err := dimgo.Values[float64](out)
	if err != nil {
		return nil, err
	}
	outVars, err := dimgo.Variances[float64](out)
	if err != nil {
		return nil, err
	}

	cbuf := mc.buffer.Clone()
	cvals, err := dimgo.Values[float64](cbuf)
	if err != nil {
		return nil, err
	}
	var wvals, wvars []float64
	if wm != nil {
		wbuf := wm.buffer.Clone()
		if wvals, err = dimgo.Values[float64](wbuf); err != nil {
			return nil, err
		}
		wvars, _ = dimgo.Variances[float64](wbuf)
	}

	lin := isLinspace(ev)
	lo, hi := ev[0], ev[len(ev)-1]
	step := (hi - lo) / float64(nbins)

	// The weights view may have its own physical layout; walk it with a
	// cursor over its strides relative to the coordinate dimensions.
	var wc *dims.Cursor
	if wm != nil {
		wst, err := dims.Relative(weights.Dims(), weights.Strides(), coords.Dims())
		if err != nil {
			return nil, err
		}
		wc = dims.NewCursor(coords.Dims(), wst)
	}

	c := dims.NewCursor(coords.Dims(), coords.Strides())
	for k := 0; !c.Done(); c.Inc() {
		r := mc.indices[coords.Offset()+c.Offset()]
		var wr dimgo.IndexPair
		if wm != nil {
			wr = wm.indices[weights.Offset()+wc.Offset()]
			wc.Inc()
			if wr.End-wr.Begin != r.End-r.Begin {
				return nil, &dims.ErrDimensionMismatch{A: coords.Dims(), Detail: "weight bucket sizes do not match coordinate buckets"}
			}
		}
		base := k * nbins
		for j := r.Begin; j < r.End; j++ {
			x := cvals[j]
			if math.IsNaN(x) {
				continue
			}
			var bin int
			if lin {
				if x < lo || x >= hi {
					continue
				}
				bin = int((x - lo) / step)
				if bin >= nbins {
					bin = nbins - 1
				}
			} else {
				bin = searchBin(ev, x)
				if bin < 0 || bin >= nbins {
					continue
				}
			}
			w, wv := 1.0, 1.0
			if wm != nil {
				wi := wr.Begin + (j - r.Begin)
				w = wvals[wi]
				if wvars != nil {
					wv = wvars[wi]
				}
			}
			outVals[base+bin] += w
			if outVars != nil {
				outVars[base+bin] += wv
			}
		}
		k++
	}

	return out, nil
}

// searchBin locates the bin whose half-open interval contains x, or -1
// when x precedes the first edge. Exactly hitting an inner edge selects
// the bin to its right.
func searchBin(ev []float64, x float64) int {
	i := sort.SearchFloat64s(ev, x)
	if i < len(ev) && ev[i] == x {
		return i
	}
	return i - 1
}

// Map computes a per-event scale factor: for each event in coords, the
// value of hist's bin containing the event coordinate along the edge
// dimension, or zero when the event is out of range or its bin index is
// in masked. The result is bucketed like coords, with hist's unit.
func Map(hist, edges, coords *dimgo.Variable, masked *roaring.Bitmap) (*dimgo.Variable, error) {
	mc, err := binsOf(coords)
	if err != nil {
		return nil, err
	}
	if mc.buffer.DType().Kind != dimgo.KindFloat64 || hist.DType().Kind != dimgo.KindFloat64 {
		return nil, &dimgo.ErrUnsupportedType{Op: "map", DTypes: []dimgo.DType{coords.DType(), hist.DType()}}
	}

	ed, ev, err := edgeValues(edges)
	if err != nil {
		return nil, err
	}
	if !mc.buffer.Unit().Equal(edges.Unit()) {
		return nil, &units.ErrIncompatible{Op: "map", A: mc.buffer.Unit(), B: edges.Unit()}
	}
	nbins := len(ev) - 1
	if hist.Dims().NDim() != 1 || hist.Dims().Label(0) != ed || hist.Dims().ExtentAt(0) != nbins {
		return nil, &dims.ErrDimensionMismatch{A: hist.Dims(), B: edges.Dims(), Detail: "histogram shape does not match edges"}
	}
	hvals, err := dimgo.Values[float64](hist.Clone())
	if err != nil {
		return nil, err
	}

	cbuf := mc.buffer.Clone()
	cvals, err := dimgo.Values[float64](cbuf)
	if err != nil {
		return nil, err
	}

	lin := isLinspace(ev)
	lo, hi := ev[0], ev[len(ev)-1]
	step := (hi - lo) / float64(nbins)

	n := coords.Volume()
	pairs := make([]dimgo.IndexPair, n)
	var scaled []float64

	c := dims.NewCursor(coords.Dims(), coords.Strides())
	for k := 0; !c.Done(); c.Inc() {
		r := mc.indices[coords.Offset()+c.Offset()]
		begin := len(scaled)
		for j := r.Begin; j < r.End; j++ {
			x := cvals[j]
			factor := 0.0
			bin := -1
			if !math.IsNaN(x) {
				if lin {
					if x >= lo && x < hi {
						bin = int((x - lo) / step)
						if bin >= nbins {
							bin = nbins - 1
						}
					}
				} else {
					bin = searchBin(ev, x)
					if bin >= nbins {
						bin = -1
					}
				}
			}
			if bin >= 0 && (masked == nil || !masked.Contains(uint32(bin))) {
				factor = hvals[bin]
			}
			scaled = append(scaled, factor)
		}
		pairs[k] = dimgo.IndexPair{Begin: begin, End: len(scaled)}
		k++
	}

	bufDims := dims.MustNew(dims.Size{Dim: mc.dim, Extent: len(scaled)})
	buf, err := dimgo.New(bufDims, hist.Unit(), scaled)
	if err != nil {
		return nil, err
	}
	m := &binsModel{indices: pairs, dim: mc.dim, buffer: buf}
	return dimgo.NewWithModel(coords.Dims(), hist.Unit(), m)
}

// LeftEdges returns the view of all edges but the last, one lower bound
// per bin.
func LeftEdges(edges *dimgo.Variable) (*dimgo.Variable, error) {
	if edges.Dims().NDim() != 1 {
		return nil, &dims.ErrDimensionMismatch{A: edges.Dims(), Detail: "edges must be one-dimensional"}
	}
	d := edges.Dims().Label(0)
	return edges.Slice(d, 0, edges.Dims().ExtentAt(0)-1)
}

// RightEdges returns the view of all edges but the first, one upper
// bound per bin.
func RightEdges(edges *dimgo.Variable) (*dimgo.Variable, error) {
	if edges.Dims().NDim() != 1 {
		return nil, &dims.ErrDimensionMismatch{A: edges.Dims(), Detail: "edges must be one-dimensional"}
	}
	d := edges.Dims().Label(0)
	return edges.Slice(d, 1, edges.Dims().ExtentAt(0))
}

func edgeValues(edges *dimgo.Variable) (dims.Dim, []float64, error) {
	if edges.Dims().NDim() != 1 {
		return dims.Invalid, nil, &dims.ErrDimensionMismatch{A: edges.Dims(), Detail: "edges must be one-dimensional"}
	}
	if edges.DType().Kind != dimgo.KindFloat64 {
		return dims.Invalid, nil, &dimgo.ErrUnsupportedType{Op: "histogram", DTypes: []dimgo.DType{edges.DType()}}
	}
	ed := edges.Dims().Label(0)
	ev, err := dimgo.Values[float64](edges.Clone())
	if err != nil {
		return dims.Invalid, nil, err
	}
	if len(ev) < 2 {
		return dims.Invalid, nil, &dims.ErrDimensionMismatch{A: edges.Dims(), Detail: "at least two edges required"}
	}
	for i := 0; i+1 < len(ev); i++ {
		if !(ev[i+1] > ev[i]) {
			return dims.Invalid, nil, &ErrUnsortedEdges{Dim: ed, Index: i + 1}
		}
	}
	return ed, ev, nil
}

// isLinspace reports whether the sorted edges are evenly spaced within
// floating-point tolerance, enabling scaled-index bin lookup.
func isLinspace(ev []float64) bool {
	step := (ev[len(ev)-1] - ev[0]) / float64(len(ev)-1)
	for i, e := range ev {
		want := ev[0] + float64(i)*step
		if math.Abs(e-want) > 1e-11*math.Max(math.Abs(want), 1) {
			return false
		}
	}
	return true
}
