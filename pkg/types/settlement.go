package types

import "github.com/holiman/uint256"

// SettlementKind distinguishes a direct CoW match from a liquidity-routed
// execution; the uniform-price enforcer (C7) treats both uniformly by
// DirectedPair, but recomputing surplus after a price snap differs by kind.
type SettlementKind string

const (
	SettlementKindCoW   SettlementKind = "cow"
	SettlementKindRoute SettlementKind = "route"
)

// SettlementState tracks the C7 state machine: Proposed -> Included, or
// Proposed -> Uniform-Adjusted -> (Included | Dropped).
type SettlementState string

const (
	SettlementProposed       SettlementState = "proposed"
	SettlementUniformAdjusted SettlementState = "uniform_adjusted"
	SettlementIncluded       SettlementState = "included"
	SettlementDropped        SettlementState = "dropped"
)

// Settlement is the common representation the uniform-price enforcer (C7)
// operates on, built from either a CoW match (C5) or an execution path (C6).
// Exactly one of the CoW-only or Route-only field groups is populated,
// selected by Kind — kept as one struct rather than an interface because C7
// only needs two operations (group by pair, recompute surplus at a new
// price) and a switch on Kind is cheaper and clearer than dispatch for a
// closed two-variant set (spec §9 design note on tagged dispatch).
type Settlement struct {
	Kind  SettlementKind
	Pair  DirectedPair // Sell -> Buy, the direction settlement executes in
	State SettlementState

	ClearingPrice *uint256.Int // buy units per sell unit, PRECISION-scaled
	Gas           uint64

	// CoW-only fields. OrderA sells Pair.Sell for Pair.Buy; OrderB sells
	// Pair.Buy for Pair.Sell (the opposite direction).
	OrderA        *ParsedOrder
	OrderB        *ParsedOrder
	MatchedAmount *uint256.Int
	SurplusA      *uint256.Int // in Pair.Buy units
	SurplusB      *uint256.Int // in Pair.Sell units

	// Route-only fields.
	Order        *ParsedOrder
	Route        []PoolRef
	InputAmount  *uint256.Int
	OutputAmount *uint256.Int
	Surplus      *uint256.Int // in the order's surplus-denomination token
}

// OrderUIDs returns every order uid this settlement consumes.
func (s *Settlement) OrderUIDs() []string {
	switch s.Kind {
	case SettlementKindCoW:
		return []string{s.OrderA.UID, s.OrderB.UID}
	default:
		return []string{s.Order.UID}
	}
}

// Hops returns the route length (0 for CoW, which has no on-chain hops).
func (s *Settlement) Hops() int {
	if s.Kind == SettlementKindCoW {
		return 0
	}
	return len(s.Route)
}
