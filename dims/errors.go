package dims

import "fmt"

// ErrDimensionMismatch indicates incompatible shapes: broadcast failure,
// an unknown or duplicate axis, or a view exceeding its owner's bounds.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	A, B   Dimensions
	Detail string
	cause  error
}

func (e *ErrDimensionMismatch) Error() string {
	if e.A.NDim() == 0 && e.B.NDim() == 0 {
		return fmt.Sprintf("dimension mismatch: %s", e.Detail)
	}
	return fmt.Sprintf("dimension mismatch between %s and %s: %s", e.A, e.B, e.Detail)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }
