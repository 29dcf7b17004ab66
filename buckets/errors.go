package buckets

import (
	"fmt"

	"github.com/hupe1980/dimgo"
	"github.com/hupe1980/dimgo/dims"
)

// ErrIndexOutOfRange is returned by MakeBins when a bucket range lies
// outside the buffer or overlaps an already-claimed range.
type ErrIndexOutOfRange struct {
	Bucket    int
	Range     dimgo.IndexPair
	BufferLen int
	Overlap   bool

	cause error
}

func (e *ErrIndexOutOfRange) Error() string {
	if e.Overlap {
		return fmt.Sprintf("buckets: bucket %d range [%d,%d) overlaps another bucket", e.Bucket, e.Range.Begin, e.Range.End)
	}
	return fmt.Sprintf("buckets: bucket %d range [%d,%d) outside buffer of length %d", e.Bucket, e.Range.Begin, e.Range.End, e.BufferLen)
}

func (e *ErrIndexOutOfRange) Unwrap() error { return e.cause }

// ErrUnsortedEdges is returned when histogram edges are not strictly
// ascending along the binning dimension.
type ErrUnsortedEdges struct {
	Dim   dims.Dim
	Index int

	cause error
}

func (e *ErrUnsortedEdges) Error() string {
	return fmt.Sprintf("buckets: edges along %s not strictly ascending at index %d", e.Dim, e.Index)
}

func (e *ErrUnsortedEdges) Unwrap() error { return e.cause }
