package types

import "github.com/holiman/uint256"

// PoolVariant tags the pricing rule a Pool implements. The set is closed
// and small (spec §4.2), so dispatch happens via a switch over this tag at
// the quote entry point (pkg/pool) rather than through interface dispatch —
// see spec §9 "Design Notes: Polymorphism over pool types".
type PoolVariant string

const (
	PoolConstantProduct PoolVariant = "ConstantProduct"
	PoolWeighted        PoolVariant = "Weighted"
	PoolStable          PoolVariant = "Stable"
	PoolPMM             PoolVariant = "PMM"
	PoolConcentrated    PoolVariant = "Concentrated"
)

// PMMState selects between the three algebraic branches of the PMM curve.
type PMMState string

const (
	PMMStateOne      PMMState = "One"
	PMMStateAboveOne PMMState = "AboveOne"
	PMMStateBelowOne PMMState = "BelowOne"
)

// PMMParams holds the proactive-market-maker curve parameters.
type PMMParams struct {
	K      *uint256.Int // curve parameter; k=0 degenerates to constant-product
	I      *uint256.Int // oracle price, PRECISION-scaled
	Target *uint256.Int // target base reserve
	R      PMMState
}

// ConcentratedParams holds Uniswap-V3-style concentrated liquidity state.
type ConcentratedParams struct {
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	Tick         int
	FeeTier      uint32 // fee in hundredths of a bip, e.g. 3000 = 0.3%
}

// Pool is a polymorphic AMM snapshot. Exactly one of Weights / Amplification
// / PMM / Concentrated is meaningful, selected by Variant; see spec §3.
type Pool struct {
	Address string
	Tokens  []Token
	// Reserves is aligned index-for-index with Tokens; C2's contract
	// requires returning this ordered vector, never a single summed number.
	Reserves []*uint256.Int
	Variant  PoolVariant

	FeeBps uint32 // basis points, e.g. 30 for UniswapV2, 25 for PancakeSwap

	// Weighted-pool only: normalized weights aligned with Tokens, summing
	// to fixedpoint.Precision.
	Weights []*uint256.Int

	// Stable-pool only: amplification coefficient A.
	Amplification uint64

	PMM          PMMParams
	Concentrated ConcentratedParams

	// GasEstimate is the router's reported gas cost for a single hop
	// through this pool, as decoded from the auction payload. The
	// pathfinder does not read it: route gas comes from its own fixed
	// per-hop formula (see pkg/pathfinder).
	GasEstimate uint64
}

// TokenIndex returns the position of tok within Tokens, or -1 if absent.
func (p *Pool) TokenIndex(tok Token) int {
	for i, t := range p.Tokens {
		if t == tok {
			return i
		}
	}
	return -1
}

// HasToken reports whether the pool quotes the given token.
func (p *Pool) HasToken(tok Token) bool {
	return p.TokenIndex(tok) >= 0
}

// PoolRef is a weak, index-based reference into an auction's pool table —
// paths and CoW matches never hold a *Pool directly (spec §3 Ownership,
// §9 "Ownership of pool snapshots").
type PoolRef struct {
	Index     int
	TokenIn   Token
	TokenOut  Token
}
