package pool

import (
	"math/big"

	"github.com/daoleno/uniswapv3-sdk/constants"
	"github.com/daoleno/uniswapv3-sdk/utils"
	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// q96Squared is 2^192: squaring a Q64.96 sqrt-price back to a plain ratio
// divides by this.
var q96Squared = new(uint256.Int).Lsh(uint256.NewInt(1), 192)

// quoteConcentrated prices a single hop against the pool's current
// sqrt-price only (spec §4.2: "amount_out = amount_in' · sqrtP² / 2^192,
// direction-aware"), never walking to an adjacent tick. The within-tick
// cap is derived from the real tick boundary rather than an arbitrary
// fraction: daoleno/uniswapv3-sdk's utils.GetSqrtRatioAtTick locates the
// neighboring tick (via constants.TickSpacings, the same lookup the
// teacher's NewPool uses for its fee tier), and
// GetAmount0Delta/GetAmount1Delta (the calls the teacher's
// RemoveLiquidity uses to turn a sqrt-price range into a token delta)
// convert that boundary into the exact input amount that would cross it.
func quoteConcentrated(p *types.Pool, inIdx, outIdx int, amountIn *uint256.Int) (*uint256.Int, error) {
	sqrtP := p.Concentrated.SqrtPriceX96
	liquidity := p.Concentrated.Liquidity
	if sqrtP == nil || sqrtP.IsZero() || liquidity == nil || liquidity.IsZero() {
		return nil, ErrUnquotableReserves
	}
	reserveIn := p.Reserves[inIdx]
	reserveOut := p.Reserves[outIdx]
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrUnquotableReserves
	}

	if tickCap := withinTickCap(p, inIdx); tickCap != nil {
		if amountIn.Cmp(tickCap) > 0 {
			return nil, ErrWithinTickCapExceeded
		}
	}

	feeBps := p.Concentrated.FeeTier / 100
	amountInFee, err := applyFeeToInput(amountIn, feeBps)
	if err != nil {
		return nil, err
	}

	priceSquared, err := fixedpoint.Mul(sqrtP, sqrtP)
	if err != nil {
		return nil, err
	}

	var out *uint256.Int
	if inIdx == 0 {
		out, err = fixedpoint.MulDiv(amountInFee, priceSquared, q96Squared)
	} else {
		out, err = fixedpoint.MulDiv(amountInFee, q96Squared, priceSquared)
	}
	if err != nil {
		return nil, err
	}
	if out.IsZero() || out.Cmp(reserveOut) >= 0 {
		return nil, ErrUnquotableReserves
	}
	return out, nil
}

// withinTickCap returns the amount of the input token that would move the
// pool's price exactly to the neighboring tick boundary, or nil if the fee
// tier isn't a standard one constants.TickSpacings recognizes (caller then
// skips the cap rather than guessing a spacing).
func withinTickCap(p *types.Pool, inIdx int) *uint256.Int {
	spacing, ok := constants.TickSpacings[constants.FeeAmount(p.Concentrated.FeeTier)]
	if !ok || spacing == 0 {
		return nil
	}

	sqrtPBig := p.Concentrated.SqrtPriceX96.ToBig()
	liqBig := p.Concentrated.Liquidity.ToBig()
	tick := p.Concentrated.Tick

	var boundaryTick int
	if inIdx == 0 {
		boundaryTick = tick - spacing
	} else {
		boundaryTick = tick + spacing
	}

	boundarySqrt, err := utils.GetSqrtRatioAtTick(boundaryTick)
	if err != nil {
		return nil
	}

	var capBig *big.Int
	if inIdx == 0 {
		capBig = utils.GetAmount0Delta(boundarySqrt, sqrtPBig, liqBig, true)
	} else {
		capBig = utils.GetAmount1Delta(sqrtPBig, boundarySqrt, liqBig, true)
	}
	if capBig == nil || capBig.Sign() <= 0 {
		return nil
	}
	capAmount, overflow := uint256.FromBig(capBig)
	if overflow {
		return nil
	}
	return capAmount
}
