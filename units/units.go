// Package units provides the physical unit model carried by every array.
//
// A Unit is a fixed vector of small integer exponents over the SI base
// dimensions, plus "counts" (event counts) and "rad" (angle) pseudo
// dimensions. Units combine under multiplication, division and integer
// powers; unit-string parsing is intentionally not part of this package.
package units

import (
	"fmt"
	"strings"
)

// Unit is an exponent vector over base dimensions. The zero value is
// dimensionless. Units are comparable with ==.
type Unit struct {
	length, mass, time, temperature, current, counts, angle int8
}

// Predefined units. Derived units are built by composition, e.g.
// units.M.Div(units.S) for velocity.
var (
	Dimensionless = Unit{}
	M             = Unit{length: 1}
	Kg            = Unit{mass: 1}
	S             = Unit{time: 1}
	K             = Unit{temperature: 1}
	A             = Unit{current: 1}
	Counts        = Unit{counts: 1}
	Rad           = Unit{angle: 1}
)

// Mul returns the product unit u*v.
func (u Unit) Mul(v Unit) Unit {
	return Unit{
		length:      u.length + v.length,
		mass:        u.mass + v.mass,
		time:        u.time + v.time,
		temperature: u.temperature + v.temperature,
		current:     u.current + v.current,
		counts:      u.counts + v.counts,
		angle:       u.angle + v.angle,
	}
}

// Div returns the quotient unit u/v.
func (u Unit) Div(v Unit) Unit {
	return Unit{
		length:      u.length - v.length,
		mass:        u.mass - v.mass,
		time:        u.time - v.time,
		temperature: u.temperature - v.temperature,
		current:     u.current - v.current,
		counts:      u.counts - v.counts,
		angle:       u.angle - v.angle,
	}
}

// Pow returns u raised to the integer power n.
func (u Unit) Pow(n int) Unit {
	return Unit{
		length:      u.length * int8(n),
		mass:        u.mass * int8(n),
		time:        u.time * int8(n),
		temperature: u.temperature * int8(n),
		current:     u.current * int8(n),
		counts:      u.counts * int8(n),
		angle:       u.angle * int8(n),
	}
}

// Sqrt returns the square root of u. All exponents must be even,
// otherwise the root is not expressible and an error is returned.
func (u Unit) Sqrt() (Unit, error) {
	for _, e := range [...]int8{u.length, u.mass, u.time, u.temperature, u.current, u.counts, u.angle} {
		if e%2 != 0 {
			return Unit{}, &ErrIncompatible{Op: "sqrt", A: u}
		}
	}
	return Unit{
		length:      u.length / 2,
		mass:        u.mass / 2,
		time:        u.time / 2,
		temperature: u.temperature / 2,
		current:     u.current / 2,
		counts:      u.counts / 2,
		angle:       u.angle / 2,
	}, nil
}

// Equal reports whether two units are identical.
func (u Unit) Equal(v Unit) bool { return u == v }

// IsDimensionless reports whether u carries no dimension at all.
func (u Unit) IsDimensionless() bool { return u == Dimensionless }

// IsCounts reports whether u is exactly the counts unit.
func (u Unit) IsCounts() bool { return u == Counts }

var baseSymbols = [...]string{"m", "kg", "s", "K", "A", "counts", "rad"}

// String renders the unit as a compact "m^2 kg/s^2" style symbol.
func (u Unit) String() string {
	exps := [...]int8{u.length, u.mass, u.time, u.temperature, u.current, u.counts, u.angle}

	var num, den []string
	for i, e := range exps {
		switch {
		case e == 1:
			num = append(num, baseSymbols[i])
		case e > 1:
			num = append(num, fmt.Sprintf("%s^%d", baseSymbols[i], e))
		case e == -1:
			den = append(den, baseSymbols[i])
		case e < -1:
			den = append(den, fmt.Sprintf("%s^%d", baseSymbols[i], -e))
		}
	}

	switch {
	case len(num) == 0 && len(den) == 0:
		return "dimensionless"
	case len(den) == 0:
		return strings.Join(num, " ")
	case len(num) == 0:
		return "1/" + strings.Join(den, " ")
	default:
		return strings.Join(num, " ") + "/" + strings.Join(den, " ")
	}
}
