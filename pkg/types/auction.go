package types

import (
	"time"

	"github.com/holiman/uint256"
)

// Auction is the parsed form of the incoming solve request (spec §6).
type Auction struct {
	ID        string
	Orders    []Order
	Liquidity []Pool

	EffectiveGasPrice *uint256.Int
	Deadline          time.Time

	// NativePrices holds the auction-supplied reference prices, if any
	// (the first present of external_prices/native_prices/reference_prices/
	// prices in the raw payload) — oracle source #1, spec §4.3.
	NativePrices map[Token]*uint256.Int

	SurplusCapturingJitOrderOwners []Token
}

// Solution is the C8 output: a single settlement plan ready to serialize as
// a response entry (spec §3 "Solution").
type Solution struct {
	ID int

	// Prices maps the settlement's sell and buy tokens to the oracle's
	// (C3) PRECISION-scaled external prices; a token without an oracle
	// price is absent.
	Prices map[Token]*uint256.Int

	Trades       []Trade
	Interactions []Interaction

	Gas   uint64
	Score *uint256.Int // may be negative conceptually pre-filter; callers drop score<=0 before this point, so this is always >=0 once public
}

// Trade is one order's fulfillment record within a Solution.
type Trade struct {
	OrderUID       string
	ExecutedAmount *uint256.Int
}

// Interaction describes one pool hop (or a CoW internal match marker) that
// a Solution's settlement executes on-chain.
type Interaction struct {
	Internalize  bool // true for CoW-internal matches: no on-chain pool touched
	InputToken   Token
	OutputToken  Token
	InputAmount  *uint256.Int
	OutputAmount *uint256.Int
	PoolAddress  string // empty for internalized (CoW) interactions
}
