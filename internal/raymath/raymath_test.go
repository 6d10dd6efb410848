package raymath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ray(f float64) *big.Int {
	d := new(big.Float).SetPrec(256).SetFloat64(f)
	d.Mul(d, new(big.Float).SetInt(Ray))
	out, _ := d.Int(nil)
	return out
}

func TestMulIdentity(t *testing.T) {
	cases := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(-42),
		new(big.Int).Mul(big.NewInt(123456789), Ray),
	}
	for _, a := range cases {
		assert.Equal(t, a.String(), Mul(a, Ray).String(), "a * 1.0 must equal a")
	}
}

func TestMulRoundsHalfAwayFromZero(t *testing.T) {
	half := new(big.Int).Quo(Ray, big.NewInt(2)) // 0.5 ray

	// 3 * 0.5 = 1.5 -> 2
	assert.Equal(t, "2", Mul(big.NewInt(3), half).String())
	// -3 * 0.5 = -1.5 -> -2
	assert.Equal(t, "-2", Mul(big.NewInt(-3), half).String())
	// 2 * 0.5 = 1.0 exactly
	assert.Equal(t, "1", Mul(big.NewInt(2), half).String())
}

func TestDivByZeroPanics(t *testing.T) {
	assert.PanicsWithValue(t, DivisionGuard{Op: "division"}, func() {
		Div(Ray, big.NewInt(0))
	})
}

func TestRoundTrip(t *testing.T) {
	// divide(multiply(a, b), b) == a within one unit of least precision
	values := []*big.Int{
		big.NewInt(1),
		big.NewInt(999_999_999),
		ray(0.043),
		ray(1.0201),
		ray(123456.789),
		new(big.Int).Neg(ray(17.5)),
	}
	divisors := []*big.Int{
		ray(1),
		ray(1.01),
		ray(3),
		ray(123.456),
		ray(7e8),
	}
	ulp := big.NewInt(1)
	for _, a := range values {
		for _, b := range divisors {
			got := Div(Mul(a, b), b)
			diff := new(big.Int).Sub(got, a)
			diff.Abs(diff)
			require.True(t, diff.Cmp(ulp) <= 0,
				"round trip drifted: a=%s b=%s got=%s", a, b, got)
		}
	}
}

func TestFromBasisPoints(t *testing.T) {
	assert.Equal(t, "0", FromBasisPoints(0).String())
	assert.Equal(t, Ray.String(), FromBasisPoints(10_000).String())

	// 2000 bps == 0.2 ray, exact
	fifth := new(big.Int).Quo(Ray, big.NewInt(5))
	assert.Equal(t, fifth.String(), FromBasisPoints(2000).String())

	// 1 bps == 0.0001 ray, exact
	bp := new(big.Int).Quo(Ray, big.NewInt(10_000))
	assert.Equal(t, bp.String(), FromBasisPoints(1).String())
}

func TestFromInt(t *testing.T) {
	assert.Equal(t, Ray.String(), FromInt(1).String())
	assert.Equal(t, new(big.Int).Neg(Ray).String(), FromInt(-1).String())
}
