package types

import "github.com/holiman/uint256"

// OrderKind distinguishes sell orders (exact amount sold, minimum bought)
// from buy orders (exact amount bought, maximum sold).
type OrderKind string

const (
	OrderKindSell OrderKind = "sell"
	OrderKindBuy  OrderKind = "buy"
)

// Order is a raw signed limit order as it arrives in the auction payload.
// See spec data model §3 "Order (input)".
type Order struct {
	UID               string
	SellToken         Token
	BuyToken          Token
	SellAmount        *uint256.Int
	BuyAmount         *uint256.Int
	Kind              OrderKind
	PartiallyFillable bool
	ValidTo           int64
	FeeAmount         *uint256.Int
	Owner             Token
}

// ParsedOrder is the Order Parser's (C4) output: an Order plus the derived
// fields spec §3 requires ("Parsed Order").
type ParsedOrder struct {
	Order

	// LimitPrice is buy_amount * PRECISION / sell_amount: buy token units
	// per unit of sell token, scaled by fixedpoint.Precision.
	LimitPrice *uint256.Int

	// MinBuyAfterFee is set for Sell orders: (sell_amount - fee_amount) *
	// limit_price / PRECISION.
	MinBuyAfterFee *uint256.Int

	// MaxSellAfterFee is set for Buy orders: sell_amount + fee_amount.
	MaxSellAfterFee *uint256.Int
}
