// =================================
// File: internal/raymath/raymath.go
// =================================
package raymath

import (
	"fmt"
	"math/big"
)

// RayDecimals is the number of fractional decimal digits carried by a ray
// value. Liquidity indices and rate fractions are exchanged at this scale.
const RayDecimals = 27

// BpsDenominator converts basis points to a fraction: 10000 bps == 1.0.
const BpsDenominator = 10_000

var (
	// Ray is the fixed-point unit, 10^27.
	Ray = new(big.Int).Exp(big.NewInt(10), big.NewInt(RayDecimals), nil)

	one    = big.NewInt(1)
	bpsDen = big.NewInt(BpsDenominator)
)

// DivisionGuard is the panic value raised when a ray division receives a zero
// divisor. Callers are required to filter zero divisors (zero-duration
// segments, zero denominators) before reaching the math, so hitting this is a
// bug in the caller, not bad input.
type DivisionGuard struct {
	Op string
}

func (g DivisionGuard) Error() string {
	return fmt.Sprintf("raymath: %s by zero", g.Op)
}

// Mul multiplies two ray-scaled values: round_half_up(a * b / Ray).
// When one operand is a plain integer amount (e.g. a raw token balance) and
// the other is a ray fraction, the result keeps the plain operand's scale.
func Mul(a, b *big.Int) *big.Int {
	return divRound(new(big.Int).Mul(a, b), Ray)
}

// Div divides a by b at ray scale: round_half_up(a * Ray / b).
// Panics with DivisionGuard if b is zero.
func Div(a, b *big.Int) *big.Int {
	if b.Sign() == 0 {
		panic(DivisionGuard{Op: "division"})
	}
	return divRound(new(big.Int).Mul(a, Ray), b)
}

// FromBasisPoints converts a basis-point rate (0..10000) to a ray fraction.
// The conversion is exact: bps * Ray / 10000 has no remainder.
func FromBasisPoints(bps uint32) *big.Int {
	v := new(big.Int).Mul(big.NewInt(int64(bps)), Ray)
	return v.Quo(v, bpsDen)
}

// FromInt lifts a plain integer to ray scale.
func FromInt(i int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(i), Ray)
}

// divRound divides num by den rounding half up, symmetrically away from zero
// so that chained operations do not drift in one direction. big.Int.Quo
// truncates toward zero, so the half-unit correction is applied on the
// remainder.
func divRound(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	r.Lsh(r.Abs(r), 1)
	absDen := new(big.Int).Abs(den)
	if r.Cmp(absDen) >= 0 {
		if (num.Sign() < 0) != (den.Sign() < 0) {
			q.Sub(q, one)
		} else {
			q.Add(q, one)
		}
	}
	return q
}
