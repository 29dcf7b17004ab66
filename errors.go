package dimgo

import (
	"fmt"
	"strings"
)

// ErrVariances indicates that variances are required, forbidden, or
// incompatible for a type or operation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrVariances struct {
	Op     string
	Detail string
	cause  error
}

func (e *ErrVariances) Error() string {
	return fmt.Sprintf("variances error in %s: %s", e.Op, e.Detail)
}

func (e *ErrVariances) Unwrap() error { return e.cause }

// ErrUnsupportedType indicates that an operation has no kernel for the
// runtime types of its operands, or that a type cannot support the
// requested mutation. Kernel tables are assembled at package
// initialization, so hitting this at run time means the combination was
// never registered.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrUnsupportedType struct {
	Op     string
	DTypes []DType
	cause  error
}

func (e *ErrUnsupportedType) Error() string {
	if len(e.DTypes) == 0 {
		return fmt.Sprintf("unsupported type for %s", e.Op)
	}
	names := make([]string, len(e.DTypes))
	for i, dt := range e.DTypes {
		names[i] = dt.String()
	}
	return fmt.Sprintf("unsupported types for %s: %s", e.Op, strings.Join(names, ", "))
}

func (e *ErrUnsupportedType) Unwrap() error { return e.cause }
