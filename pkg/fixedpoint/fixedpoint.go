// Package fixedpoint provides 256-bit fixed-point arithmetic for pricing
// math. All ratios and prices use the convention value_scaled = value *
// PRECISION, matching the settlement contract's on-chain fixed-point
// representation.
package fixedpoint

import (
	"errors"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow indicates a computation would exceed 2^256-1.
	ErrOverflow = errors.New("fixedpoint: overflow")
	// ErrDivByZero indicates a division with a zero divisor.
	ErrDivByZero = errors.New("fixedpoint: division by zero")
	// ErrUnderflow indicates an unsigned subtraction would go negative.
	ErrUnderflow = errors.New("fixedpoint: underflow")
)

// PrecisionExp is the number of decimal digits of scale.
const PrecisionExp = 18

// Precision is 10^18, the fixed-point scale used throughout the solver.
var Precision = uint256.NewInt(1_000_000_000_000_000_000)

// One returns the scaled value representing 1.0.
func One() *uint256.Int {
	return new(uint256.Int).Set(Precision)
}

// Zero returns the scaled value representing 0.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// FromUint64 wraps a plain integer as a uint256.
func FromUint64(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// ParseAmount parses a base-10 decimal string (no fractional part, no sign)
// into a uint256, as the wire format represents amounts.
func ParseAmount(s string) (*uint256.Int, error) {
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok || bi.Sign() < 0 {
		return nil, errors.New("fixedpoint: invalid amount string")
	}
	out, overflow := uint256.FromBig(bi)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// Add returns a+b, erroring if the sum would overflow 256 bits.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum := new(big.Int).Add(a.ToBig(), b.ToBig())
	out, overflow := uint256.FromBig(sum)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// Sub returns a-b for a>=b; errors if b>a (unsigned underflow).
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, ErrUnderflow
	}
	out := new(uint256.Int).Sub(a, b)
	return out, nil
}

// Mul returns a*b, erroring if the product would overflow 256 bits.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	prod := new(big.Int).Mul(a.ToBig(), b.ToBig())
	out, overflow := uint256.FromBig(prod)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// MulDiv computes floor(a*b/d) using a big.Int intermediate so that the
// a*b product — which routinely exceeds 256 bits for two full-width
// operands — never wraps. Rounding truncates toward zero.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivByZero
	}
	prod := new(big.Int).Mul(a.ToBig(), b.ToBig())
	prod.Quo(prod, d.ToBig())
	out, overflow := uint256.FromBig(prod)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// MulDivScaled computes a*b/PRECISION, the common case when multiplying two
// PRECISION-scaled fixed-point values.
func MulDivScaled(a, b *uint256.Int) (*uint256.Int, error) {
	return MulDiv(a, b, Precision)
}

// Div computes floor(a/d), erroring on division by zero.
func Div(a, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivByZero
	}
	return new(uint256.Int).Div(a, d), nil
}

// DivScaled computes a*PRECISION/d, the common case for deriving a
// PRECISION-scaled ratio from two plain amounts.
func DivScaled(a, d *uint256.Int) (*uint256.Int, error) {
	return MulDiv(a, Precision, d)
}

// Isqrt computes floor(sqrt(x)) via Newton's method, capped at 256
// iterations with strict convergence (|x_{n+1} - x_n| <= 1), then corrected
// to the true floor in case the final step overshot.
func Isqrt(x *uint256.Int) *uint256.Int {
	bx := x.ToBig()
	if bx.Sign() == 0 {
		return new(uint256.Int)
	}

	one := big.NewInt(1)
	guess := new(big.Int).Rsh(bx, 1)
	guess.Add(guess, one)

	for i := 0; i < 256; i++ {
		q := new(big.Int).Div(bx, guess)
		next := new(big.Int).Add(guess, q)
		next.Rsh(next, 1)

		diff := new(big.Int).Sub(guess, next)
		diff.Abs(diff)
		guess = next
		if diff.Cmp(one) <= 0 {
			break
		}
	}

	// Newton's method for integer sqrt can land one above the true floor;
	// walk it down (at most one or two steps in practice).
	for {
		sq := new(big.Int).Mul(guess, guess)
		if sq.Cmp(bx) > 0 {
			guess.Sub(guess, one)
			continue
		}
		break
	}

	out, overflow := uint256.FromBig(guess)
	if overflow {
		// sqrt(x) for a 256-bit x always fits in 256 bits; unreachable.
		return x
	}
	return out
}

// PowFrac computes base^exp where both base and exp are PRECISION-scaled
// fixed-point values, via exp(exp * ln(base)). There is no fixed-point
// log/exp table here: the descaled computation goes through math.Pow
// directly rather than a hand-rolled fixed-point series, so the result
// carries float64 precision (about 15-16 significant digits).
func PowFrac(baseScaled, expScaled *uint256.Int) (*uint256.Int, error) {
	if baseScaled.IsZero() {
		return new(uint256.Int), nil
	}

	baseF := bigToFloat64(baseScaled) / 1e18
	expF := bigToFloat64(expScaled) / 1e18

	resultF := math.Pow(baseF, expF)
	if math.IsNaN(resultF) || math.IsInf(resultF, 0) || resultF < 0 {
		return nil, ErrOverflow
	}

	scaled := new(big.Float).Mul(big.NewFloat(resultF), big.NewFloat(1e18))
	i, _ := scaled.Int(nil)
	if i.Sign() < 0 {
		return nil, ErrOverflow
	}
	out, overflow := uint256.FromBig(i)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

func bigToFloat64(x *uint256.Int) float64 {
	f := new(big.Float).SetPrec(256).SetInt(x.ToBig())
	v, _ := f.Float64()
	return v
}

// Min returns the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

// Max returns the larger of a and b.
func Max(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) >= 0 {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}
