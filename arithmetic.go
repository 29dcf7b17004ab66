package dimgo

// Variance formulas assume independent errors: for f(a, b) the output
// variance is va*(df/da)^2 + vb*(df/db)^2. In-place variants read the
// old destination value before overwriting it.

// AddOp adds two values of matching unit.
var AddOp = NewOp("add", UnitsEqual("add"),
	Binary(
		func(a, b float64) float64 { return a + b },
		func(a, va, b, vb float64) (float64, float64) { return a + b, va + vb },
	),
	Binary(
		func(a, b float32) float32 { return a + b },
		func(a, va, b, vb float32) (float32, float32) { return a + b, va + vb },
	),
	Binary(func(a, b int64) int64 { return a + b }, nil),
	Binary(func(a, b int32) int32 { return a + b }, nil),
	UnaryInPlace(
		func(d *float64, a float64) { *d += a },
		func(d, vd *float64, a, va float64) { *d += a; *vd += va },
	),
	UnaryInPlace(
		func(d *float32, a float32) { *d += a },
		func(d, vd *float32, a, va float32) { *d += a; *vd += va },
	),
	UnaryInPlace(func(d *int64, a int64) { *d += a }, nil),
	UnaryInPlace(func(d *int32, a int32) { *d += a }, nil),
)

// SubOp subtracts two values of matching unit.
var SubOp = NewOp("subtract", UnitsEqual("subtract"),
	Binary(
		func(a, b float64) float64 { return a - b },
		func(a, va, b, vb float64) (float64, float64) { return a - b, va + vb },
	),
	Binary(
		func(a, b float32) float32 { return a - b },
		func(a, va, b, vb float32) (float32, float32) { return a - b, va + vb },
	),
	Binary(func(a, b int64) int64 { return a - b }, nil),
	Binary(func(a, b int32) int32 { return a - b }, nil),
	UnaryInPlace(
		func(d *float64, a float64) { *d -= a },
		func(d, vd *float64, a, va float64) { *d -= a; *vd += va },
	),
	UnaryInPlace(
		func(d *float32, a float32) { *d -= a },
		func(d, vd *float32, a, va float32) { *d -= a; *vd += va },
	),
	UnaryInPlace(func(d *int64, a int64) { *d -= a }, nil),
	UnaryInPlace(func(d *int32, a int32) { *d -= a }, nil),
)

// MulOp multiplies two values; the result unit is the product of the
// operand units.
var MulOp = NewOp("multiply", UnitsMul(),
	Binary(
		func(a, b float64) float64 { return a * b },
		func(a, va, b, vb float64) (float64, float64) { return a * b, va*b*b + vb*a*a },
	),
	Binary(
		func(a, b float32) float32 { return a * b },
		func(a, va, b, vb float32) (float32, float32) { return a * b, va*b*b + vb*a*a },
	),
	Binary(func(a, b int64) int64 { return a * b }, nil),
	Binary(func(a, b int32) int32 { return a * b }, nil),
	UnaryInPlace(
		func(d *float64, a float64) { *d *= a },
		func(d, vd *float64, a, va float64) {
			*vd = *vd*a*a + va*(*d)*(*d)
			*d *= a
		},
	),
	UnaryInPlace(
		func(d *float32, a float32) { *d *= a },
		func(d, vd *float32, a, va float32) {
			*vd = *vd*a*a + va*(*d)*(*d)
			*d *= a
		},
	),
	UnaryInPlace(func(d *int64, a int64) { *d *= a }, nil),
	UnaryInPlace(func(d *int32, a int32) { *d *= a }, nil),
)

// DivOp divides two values; the result unit is the quotient of the
// operand units.
var DivOp = NewOp("divide", UnitsDiv(),
	Binary(
		func(a, b float64) float64 { return a / b },
		func(a, va, b, vb float64) (float64, float64) {
			return a / b, va/(b*b) + vb*a*a/(b*b*b*b)
		},
	),
	Binary(
		func(a, b float32) float32 { return a / b },
		func(a, va, b, vb float32) (float32, float32) {
			return a / b, va/(b*b) + vb*a*a/(b*b*b*b)
		},
	),
	Binary(func(a, b int64) int64 { return a / b }, nil),
	Binary(func(a, b int32) int32 { return a / b }, nil),
	UnaryInPlace(
		func(d *float64, a float64) { *d /= a },
		func(d, vd *float64, a, va float64) {
			*vd = *vd/(a*a) + va*(*d)*(*d)/(a*a*a*a)
			*d /= a
		},
	),
	UnaryInPlace(
		func(d *float32, a float32) { *d /= a },
		func(d, vd *float32, a, va float32) {
			*vd = *vd/(a*a) + va*(*d)*(*d)/(a*a*a*a)
			*d /= a
		},
	),
	UnaryInPlace(func(d *int64, a int64) { *d /= a }, nil),
	UnaryInPlace(func(d *int32, a int32) { *d /= a }, nil),
)

// CopyOp assigns element-wise, carrying values and variances.
var CopyOp = NewOp("copy", UnitsEqual("copy"),
	UnaryInPlace(
		func(d *float64, a float64) { *d = a },
		func(d, vd *float64, a, va float64) { *d, *vd = a, va },
	),
	UnaryInPlace(
		func(d *float32, a float32) { *d = a },
		func(d, vd *float32, a, va float32) { *d, *vd = a, va },
	),
	UnaryInPlace(func(d *int64, a int64) { *d = a }, nil),
	UnaryInPlace(func(d *int32, a int32) { *d = a }, nil),
	UnaryInPlace(func(d *bool, a bool) { *d = a }, nil),
	UnaryInPlace(func(d *string, a string) { *d = a }, nil),
	UnaryInPlace(func(d *IndexPair, a IndexPair) { *d = a }, nil),
	UnaryInPlace(func(d *Vector3, a Vector3) { *d = a }, nil),
	UnaryInPlace(func(d *Matrix3, a Matrix3) { *d = a }, nil),
)

// Add returns a + b with broadcasting; units must match.
func Add(a, b *Variable) (*Variable, error) { return Transform(AddOp, a, b) }

// Sub returns a - b with broadcasting; units must match.
func Sub(a, b *Variable) (*Variable, error) { return Transform(SubOp, a, b) }

// Mul returns a * b with broadcasting; units multiply.
func Mul(a, b *Variable) (*Variable, error) { return Transform(MulOp, a, b) }

// Div returns a / b with broadcasting; units divide.
func Div(a, b *Variable) (*Variable, error) { return Transform(DivOp, a, b) }

// AddInPlace computes a += b.
func AddInPlace(a, b *Variable) error { return TransformInPlace(AddOp, a, b) }

// SubInPlace computes a -= b.
func SubInPlace(a, b *Variable) error { return TransformInPlace(SubOp, a, b) }

// MulInPlace computes a *= b. Since an in-place operation cannot
// change a's unit, b must be dimensionless.
func MulInPlace(a, b *Variable) error { return TransformInPlace(MulOp, a, b) }

// DivInPlace computes a /= b; b must be dimensionless.
func DivInPlace(a, b *Variable) error { return TransformInPlace(DivOp, a, b) }

// CopyTo assigns src's elements into dst, broadcasting src as needed.
// dst's unit and dtype are preserved and must match src's.
func CopyTo(dst, src *Variable) error { return TransformInPlace(CopyOp, dst, src) }
