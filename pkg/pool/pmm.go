package pool

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// quotePMM implements the proactive-market-maker curve (spec §4.2: "R-state
// selects between three algebraic branches parameterized by oracle price i
// and curve parameter k; when k=0 the pool degenerates to constant-product").
//
// Both stated endpoints are satisfied by one continuous family rather than
// three separate closed-form branches: for a trade of size deltaB against
// anchor reserve Q0 (the R=One branch anchors on PMM.Target, the
// AboveOne/BelowOne branches anchor on the pool's current reserve of the
// output token, which keeps the curve continuous as R crosses One instead
// of introducing a seam).
//
//	i*deltaB = k*(Q0-Q1) + (1-k)*Q0^2*(1/Q1 - 1/Q0)
//
// At k=0 this is exactly the constant-product formula anchored at Q0; at
// k=PRECISION (k=1) it is the zero-slippage oracle-price line Q1=Q0-i*deltaB.
// Solving for Q1 gives a quadratic k*Q1^2 + (c+Q0-2k*Q0)*Q1 - (1-k)*Q0^2 = 0
// where c = i*deltaB. The magnitudes involved (reserves plus PRECISION
// scaling) can exceed float64's ~15-digit precision for very large pools;
// this is accepted here the same way the Concentrated variant accepts a
// no-tick-crossing approximation — PMM quoting is inherently an
// approximation of DODO's published three-branch curve, not a bit-exact
// reimplementation of it.
func quotePMM(p *types.Pool, inIdx, outIdx int, amountIn *uint256.Int) (*uint256.Int, error) {
	reserveOut := p.Reserves[outIdx]
	if reserveOut == nil || reserveOut.IsZero() {
		return nil, ErrUnquotableReserves
	}
	if p.PMM.I == nil || p.PMM.I.IsZero() || p.PMM.K == nil {
		return nil, ErrUnquotableReserves
	}

	amountInFee, err := applyFeeToInput(amountIn, p.FeeBps)
	if err != nil {
		return nil, err
	}

	var q0 *uint256.Int
	if p.PMM.R == types.PMMStateOne && p.PMM.Target != nil && !p.PMM.Target.IsZero() {
		q0 = p.PMM.Target
	} else {
		q0 = reserveOut
	}

	// price, base->quote direction: tokenIn is Tokens[0] (base) sells for
	// Tokens[1] (quote) at oracle price I directly; the reverse direction
	// uses the reciprocal price.
	price := p.PMM.I
	if len(p.Tokens) == 2 && p.Tokens[1] == p.Tokens[inIdx] {
		inv, err := fixedpoint.DivScaled(fixedpoint.Precision, price)
		if err != nil {
			return nil, err
		}
		price = inv
	}

	c, err := fixedpoint.MulDivScaled(price, amountInFee)
	if err != nil {
		return nil, err
	}

	kF := bigRatio(p.PMM.K)
	q0F := bigRatio(q0)
	cF := bigRatio(c)

	if kF < 0 || kF > 1 {
		return nil, ErrUnquotableReserves
	}

	var q1F float64
	if kF == 0 {
		// Constant product (k=0): c = Q0^2/Q1 - Q0  =>  Q1 = Q0^2/(Q0+c).
		if q0F+cF == 0 {
			return nil, ErrUnquotableReserves
		}
		q1F = q0F * q0F / (q0F + cF)
	} else {
		a := kF
		b := cF + q0F - 2*kF*q0F
		cc := -(1 - kF) * q0F * q0F
		disc := b*b - 4*a*cc
		if disc < 0 {
			return nil, ErrUnquotableReserves
		}
		sq := math.Sqrt(disc)
		q1F = (-b + sq) / (2 * a)
	}

	if math.IsNaN(q1F) || math.IsInf(q1F, 0) || q1F < 0 || q1F >= q0F {
		return nil, ErrUnquotableReserves
	}

	outF := q0F - q1F
	out := floatToUint256(outF)
	if out == nil {
		return nil, ErrUnquotableReserves
	}
	if out.Cmp(reserveOut) >= 0 {
		return nil, ErrUnquotableReserves
	}
	return out, nil
}

// bigRatio descales a PRECISION-scaled fixed-point value to a float64.
func bigRatio(x *uint256.Int) float64 {
	f := new(big.Float).SetPrec(256).SetInt(x.ToBig())
	scale := new(big.Float).SetPrec(256).SetInt(fixedpoint.Precision.ToBig())
	f.Quo(f, scale)
	v, _ := f.Float64()
	return v
}

// floatToUint256 rescales a descaled float64 ratio back to a
// PRECISION-scaled uint256, or nil if it is negative, non-finite, or does
// not fit in 256 bits.
func floatToUint256(v float64) *uint256.Int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	scaled := new(big.Float).SetPrec(256).Mul(big.NewFloat(v), new(big.Float).SetPrec(256).SetInt(fixedpoint.Precision.ToBig()))
	i, _ := scaled.Int(nil)
	if i.Sign() < 0 {
		return nil
	}
	out, overflow := uint256.FromBig(i)
	if overflow {
		return nil
	}
	return out
}
