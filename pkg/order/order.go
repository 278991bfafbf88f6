// Package order implements C4, the order parser: validates a raw Order
// and computes its derived fields (limit price, min-buy/max-sell after
// fee). Invalid orders are dropped, never treated as fatal — the caller
// (C9) logs the reason and continues with the remaining orders.
package order

import (
	"errors"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

var (
	// ErrSameToken is returned when sell_token equals buy_token.
	ErrSameToken = errors.New("order: sell_token and buy_token must differ")
	// ErrZeroAmount is returned when sell_amount or buy_amount is zero.
	ErrZeroAmount = errors.New("order: sell_amount and buy_amount must be > 0")
	// ErrFeeExceedsSellAmount is returned when fee_amount >= sell_amount.
	ErrFeeExceedsSellAmount = errors.New("order: fee_amount must be less than sell_amount")
	// ErrExpired is returned when valid_to is earlier than the auction's
	// reference time.
	ErrExpired = errors.New("order: past valid_to deadline")
	// ErrUnknownKind is returned for an OrderKind outside {Sell, Buy}.
	ErrUnknownKind = errors.New("order: unknown kind")
)

// Parse validates raw and computes its derived fields (spec §3 "Parsed
// Order", §4.4). nowUnix is the auction's reference time, compared
// against raw.ValidTo. Token ids are canonicalized (lowercase hex) by
// types.Token's own equality semantics, so no separate normalization step
// is needed here beyond what TokenFromHex already guarantees upstream.
func Parse(raw types.Order, nowUnix int64) (*types.ParsedOrder, error) {
	if raw.SellToken == raw.BuyToken {
		return nil, ErrSameToken
	}
	if raw.SellAmount == nil || raw.BuyAmount == nil || raw.SellAmount.IsZero() || raw.BuyAmount.IsZero() {
		return nil, ErrZeroAmount
	}
	if raw.FeeAmount == nil {
		raw.FeeAmount = fixedpoint.Zero()
	}
	if raw.FeeAmount.Cmp(raw.SellAmount) >= 0 {
		return nil, ErrFeeExceedsSellAmount
	}
	if raw.ValidTo < nowUnix {
		return nil, ErrExpired
	}
	if raw.Kind != types.OrderKindSell && raw.Kind != types.OrderKindBuy {
		return nil, ErrUnknownKind
	}

	limitPrice, err := fixedpoint.DivScaled(raw.BuyAmount, raw.SellAmount)
	if err != nil {
		return nil, err
	}

	parsed := &types.ParsedOrder{
		Order:      raw,
		LimitPrice: limitPrice,
	}

	switch raw.Kind {
	case types.OrderKindSell:
		netSell, err := fixedpoint.Sub(raw.SellAmount, raw.FeeAmount)
		if err != nil {
			return nil, err
		}
		minBuy, err := fixedpoint.MulDivScaled(netSell, limitPrice)
		if err != nil {
			return nil, err
		}
		parsed.MinBuyAfterFee = minBuy
	case types.OrderKindBuy:
		maxSell, err := fixedpoint.Add(raw.SellAmount, raw.FeeAmount)
		if err != nil {
			return nil, err
		}
		parsed.MaxSellAfterFee = maxSell
	}

	return parsed, nil
}

// DropEvent records why a raw order was rejected, for the structured
// drop-event logging C9 emits (spec §7: every dropped item gets a reason
// tag).
type DropEvent struct {
	OrderUID string
	Reason   error
}

// ParseAll parses every raw order, returning the orders that passed
// validation and a DropEvent for each that didn't — in the same relative
// order as orders, so downstream logging is deterministic.
func ParseAll(orders []types.Order, nowUnix int64) ([]types.ParsedOrder, []DropEvent) {
	parsed := make([]types.ParsedOrder, 0, len(orders))
	var dropped []DropEvent
	for _, raw := range orders {
		p, err := Parse(raw, nowUnix)
		if err != nil {
			dropped = append(dropped, DropEvent{OrderUID: raw.UID, Reason: err})
			continue
		}
		parsed = append(parsed, *p)
	}
	return parsed, dropped
}
