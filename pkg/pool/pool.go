// Package pool implements C2, the pool model: given a snapshot of an AMM
// pool and a trade direction, compute the output amount. Five variants are
// supported (spec §4.2) behind a single Quote entry point dispatched by
// Pool.Variant — a closed, small tag set, so a switch at the entry point is
// the dispatch mechanism rather than a separate interface per variant (spec
// §9 "Design Notes: Polymorphism over pool types"; the teacher's
// mechanisms.LiquidityPool interface shape is preserved at the Contract /
// Error Conditions doc-comment level, not as a Go interface).
package pool

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

var (
	// ErrTokenNotInPool is returned when tokenIn or tokenOut is not one of
	// the pool's Tokens.
	ErrTokenNotInPool = errors.New("pool: token not in pool")
	// ErrUnquotableReserves is returned when a pool cannot produce a quote
	// from its current reserves (zero reserve, depleted side, degenerate
	// weights). Callers treat this as "skip this pool", never as fatal.
	ErrUnquotableReserves = errors.New("pool: unquotable reserves")
	// ErrWithinTickCapExceeded is returned by the Concentrated variant when
	// amount_in exceeds the within-tick size cap (spec §4.2: "no tick
	// crossing, capped within-tick size").
	ErrWithinTickCapExceeded = errors.New("pool: amount exceeds within-tick cap")
	// ErrUnsupportedVariant is returned for a Pool.Variant the dispatcher
	// does not recognize.
	ErrUnsupportedVariant = errors.New("pool: unsupported variant")
)

// feeBpsDenominator is the basis-point scale (10000 = 100%).
var feeBpsDenominator = uint256.NewInt(10000)

// applyFeeToInput returns amountIn reduced by feeBps basis points,
// the "fee on input side" convention spec §4.2 uses uniformly across
// variants.
func applyFeeToInput(amountIn *uint256.Int, feeBps uint32) (*uint256.Int, error) {
	if feeBps == 0 {
		return new(uint256.Int).Set(amountIn), nil
	}
	if feeBps >= 10000 {
		return nil, ErrUnquotableReserves
	}
	keepBps := uint256.NewInt(uint64(10000 - feeBps))
	return fixedpoint.MulDiv(amountIn, keepBps, feeBpsDenominator)
}

// Quote computes the amount of tokenOut received for amountIn of tokenIn
// against p's current snapshot. It is a pure function: p is never mutated.
// Every error it returns is a "skip this pool" signal for the caller (C6
// pathfinder or C8 solution builder's route re-quote) — none of them are
// solver-fatal.
func Quote(p *types.Pool, tokenIn, tokenOut types.Token, amountIn *uint256.Int) (*uint256.Int, error) {
	inIdx := p.TokenIndex(tokenIn)
	outIdx := p.TokenIndex(tokenOut)
	if inIdx < 0 || outIdx < 0 || inIdx == outIdx {
		return nil, ErrTokenNotInPool
	}
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrUnquotableReserves
	}

	switch p.Variant {
	case types.PoolConstantProduct:
		return quoteConstantProduct(p, inIdx, outIdx, amountIn)
	case types.PoolWeighted:
		return quoteWeighted(p, inIdx, outIdx, amountIn)
	case types.PoolStable:
		return quoteStable(p, inIdx, outIdx, amountIn)
	case types.PoolPMM:
		return quotePMM(p, inIdx, outIdx, amountIn)
	case types.PoolConcentrated:
		return quoteConcentrated(p, inIdx, outIdx, amountIn)
	default:
		return nil, ErrUnsupportedVariant
	}
}

// Index maps each token to the pools that quote it, so the pathfinder (C6)
// can enumerate candidate hops from a token without scanning every pool in
// the auction's liquidity set on each step (spec §9 "Ownership of pool
// snapshots": paths hold PoolRef indices, never *Pool, into this table's
// backing slice).
type Index struct {
	Pools   []types.Pool
	byToken map[types.Token][]int
}

// NewIndex builds a token -> pool-index lookup over pools. The returned
// Index owns a copy of the slice header only; callers must not mutate
// individual pools afterward.
func NewIndex(pools []types.Pool) *Index {
	idx := &Index{
		Pools:   pools,
		byToken: make(map[types.Token][]int, len(pools)*2),
	}
	for i, p := range pools {
		for _, t := range p.Tokens {
			idx.byToken[t] = append(idx.byToken[t], i)
		}
	}
	return idx
}

// PoolsForToken returns the indices of pools that quote tok, in the order
// they appeared in the original slice (deterministic iteration, spec §5).
func (idx *Index) PoolsForToken(tok types.Token) []int {
	return idx.byToken[tok]
}
