package order_test

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/order"
	"github.com/johnayoung/cowsolver/pkg/types"
)

var (
	sellTok = types.TokenFromHex("0x0000000000000000000000000000000000000001")
	buyTok  = types.TokenFromHex("0x0000000000000000000000000000000000000002")
)

func baseOrder() types.Order {
	return types.Order{
		UID:        "order-1",
		SellToken:  sellTok,
		BuyToken:   buyTok,
		SellAmount: uint256.NewInt(1000),
		BuyAmount:  uint256.NewInt(2000),
		Kind:       types.OrderKindSell,
		ValidTo:    1000,
		FeeAmount:  uint256.NewInt(10),
	}
}

func TestParseSellOrder(t *testing.T) {
	raw := baseOrder()
	p, err := order.Parse(raw, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantLimit, _ := fixedpoint.DivScaled(uint256.NewInt(2000), uint256.NewInt(1000))
	if p.LimitPrice.Cmp(wantLimit) != 0 {
		t.Fatalf("limit price = %v, want %v", p.LimitPrice, wantLimit)
	}
	if p.MinBuyAfterFee == nil || p.MinBuyAfterFee.IsZero() {
		t.Fatalf("expected nonzero MinBuyAfterFee for sell order")
	}
}

func TestParseBuyOrder(t *testing.T) {
	raw := baseOrder()
	raw.Kind = types.OrderKindBuy
	p, err := order.Parse(raw, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantMaxSell, _ := fixedpoint.Add(raw.SellAmount, raw.FeeAmount)
	if p.MaxSellAfterFee.Cmp(wantMaxSell) != 0 {
		t.Fatalf("max sell after fee = %v, want %v", p.MaxSellAfterFee, wantMaxSell)
	}
}

func TestParseRejectsInvalidOrders(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.Order)
		wantErr error
	}{
		{"same token", func(o *types.Order) { o.BuyToken = o.SellToken }, order.ErrSameToken},
		{"zero sell amount", func(o *types.Order) { o.SellAmount = uint256.NewInt(0) }, order.ErrZeroAmount},
		{"zero buy amount", func(o *types.Order) { o.BuyAmount = uint256.NewInt(0) }, order.ErrZeroAmount},
		{"fee equals sell amount", func(o *types.Order) { o.FeeAmount = o.SellAmount }, order.ErrFeeExceedsSellAmount},
		{"expired", func(o *types.Order) { o.ValidTo = 100 }, order.ErrExpired},
		{"unknown kind", func(o *types.Order) { o.Kind = types.OrderKind("unknown") }, order.ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := baseOrder()
			tt.mutate(&raw)
			_, err := order.Parse(raw, 500)
			if err != tt.wantErr {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseAllReportsDropEventsInOrder(t *testing.T) {
	good := baseOrder()
	bad := baseOrder()
	bad.UID = "order-bad"
	bad.BuyToken = bad.SellToken

	parsed, dropped := order.ParseAll([]types.Order{good, bad}, 500)
	if len(parsed) != 1 {
		t.Fatalf("expected 1 parsed order, got %d", len(parsed))
	}
	if len(dropped) != 1 || dropped[0].OrderUID != "order-bad" {
		t.Fatalf("expected 1 drop event for order-bad, got %+v", dropped)
	}
}
