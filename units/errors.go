package units

import "fmt"

// ErrIncompatible indicates that the units of the operands do not admit
// the requested operation, e.g. adding meters to seconds.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrIncompatible struct {
	Op    string
	A, B  Unit
	cause error
}

func (e *ErrIncompatible) Error() string {
	if e.Op == "sqrt" {
		return fmt.Sprintf("incompatible unit for %s: %s", e.Op, e.A)
	}
	return fmt.Sprintf("incompatible units for %s: %s and %s", e.Op, e.A, e.B)
}

func (e *ErrIncompatible) Unwrap() error { return e.cause }
