package pool

import (
	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// quoteConstantProduct implements x*y=k (Uniswap V2 style): amount_out =
// reserve_out * amount_in' / (reserve_in + amount_in'), amount_in' being
// amount_in net of p.FeeBps taken on the input side.
func quoteConstantProduct(p *types.Pool, inIdx, outIdx int, amountIn *uint256.Int) (*uint256.Int, error) {
	reserveIn := p.Reserves[inIdx]
	reserveOut := p.Reserves[outIdx]
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
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

	out, err := fixedpoint.MulDiv(reserveOut, amountInFee, newReserveIn)
	if err != nil {
		return nil, err
	}
	if out.Cmp(reserveOut) >= 0 {
		// Would drain the pool; reject rather than quote an impossible trade.
		return nil, ErrUnquotableReserves
	}
	return out, nil
}
