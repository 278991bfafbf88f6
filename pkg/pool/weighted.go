package pool

import (
	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// quoteWeighted implements the Balancer weighted-pool formula:
//
//	amount_out = reserve_out * (1 - (reserve_in / (reserve_in + amount_in'))^(w_in/w_out))
//
// via fixedpoint.PowFrac for the fractional exponent (spec §4.2).
func quoteWeighted(p *types.Pool, inIdx, outIdx int, amountIn *uint256.Int) (*uint256.Int, error) {
	if len(p.Weights) != len(p.Tokens) {
		return nil, ErrUnquotableReserves
	}
	reserveIn := p.Reserves[inIdx]
	reserveOut := p.Reserves[outIdx]
	weightIn := p.Weights[inIdx]
	weightOut := p.Weights[outIdx]
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() ||
		weightIn == nil || weightOut == nil || weightIn.IsZero() || weightOut.IsZero() {
		return nil, ErrUnquotableReserves
	}

	amountInFee, err := applyFeeToInput(amountIn, p.FeeBps)
	if err != nil {
		return nil, err
	}

	newReserveIn, err := fixedpoint.Add(reserveIn, amountInFee)
	if err != nil {
		return nil, err
	}

	base, err := fixedpoint.DivScaled(reserveIn, newReserveIn)
	if err != nil {
		return nil, err
	}
	exp, err := fixedpoint.DivScaled(weightIn, weightOut)
	if err != nil {
		return nil, err
	}

	powered, err := fixedpoint.PowFrac(base, exp)
	if err != nil {
		return nil, err
	}
	if powered.Cmp(fixedpoint.Precision) >= 0 {
		return nil, ErrUnquotableReserves
	}

	oneMinusPowered, err := fixedpoint.Sub(fixedpoint.Precision, powered)
	if err != nil {
		return nil, err
	}

	out, err := fixedpoint.MulDivScaled(reserveOut, oneMinusPowered)
	if err != nil {
		return nil, err
	}
	if out.IsZero() || out.Cmp(reserveOut) >= 0 {
		return nil, ErrUnquotableReserves
	}
	return out, nil
}
