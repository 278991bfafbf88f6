package cow_test

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/cow"
	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/order"
	"github.com/johnayoung/cowsolver/pkg/types"
)

var (
	tokenX = types.TokenFromHex("0x0000000000000000000000000000000000000001")
	tokenY = types.TokenFromHex("0x0000000000000000000000000000000000000002")
	tokenZ = types.TokenFromHex("0x0000000000000000000000000000000000000003")
)

func mustParse(t *testing.T, o types.Order) types.ParsedOrder {
	t.Helper()
	p, err := order.Parse(o, 0)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return *p
}

func TestMatchCrossingOrdersProduceSettlement(t *testing.T) {
	// A sells 1000 X for at least 900 Y (limit price 0.9 Y/X).
	a := mustParse(t, types.Order{
		UID: "a", SellToken: tokenX, BuyToken: tokenY,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(900),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})
	// B sells 1000 Y for at least 950 X (limit price 0.95 X/Y); the two
	// limit prices cross since 0.9 * 0.95 = 0.855 <= 1.
	b := mustParse(t, types.Order{
		UID: "b", SellToken: tokenY, BuyToken: tokenX,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(950),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	settlements := cow.Match([]types.ParsedOrder{a, b})
	if len(settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(settlements))
	}
	s := settlements[0]
	if s.Kind != types.SettlementKindCoW {
		t.Fatalf("expected CoW settlement, got %v", s.Kind)
	}
	if s.SurplusA.IsZero() || s.SurplusB.IsZero() {
		t.Fatalf("expected both surpluses positive, got A=%v B=%v", s.SurplusA, s.SurplusB)
	}
	if s.ClearingPrice.Cmp(fixedpoint.One()) >= 0 {
		t.Fatalf("expected clearing price below 1.0 for two sub-parity orders, got %v", s.ClearingPrice)
	}
}

func TestMatchNonCrossingOrdersProduceNoSettlement(t *testing.T) {
	// A wants at least 1100 Y for 1000 X (limit price 1.1), B wants at
	// least 1100 X for 1000 Y (limit price 1.1) — 1.1*1.1 > 1, no cross.
	a := mustParse(t, types.Order{
		UID: "a", SellToken: tokenX, BuyToken: tokenY,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(1100),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})
	b := mustParse(t, types.Order{
		UID: "b", SellToken: tokenY, BuyToken: tokenX,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(1100),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	settlements := cow.Match([]types.ParsedOrder{a, b})
	if len(settlements) != 0 {
		t.Fatalf("expected no settlements for non-crossing orders, got %d", len(settlements))
	}
}

func TestMatchIgnoresOrdersOnDifferentPairs(t *testing.T) {
	a := mustParse(t, types.Order{
		UID: "a", SellToken: tokenX, BuyToken: tokenY,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(900),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})
	c := mustParse(t, types.Order{
		UID: "c", SellToken: tokenZ, BuyToken: tokenY,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(900),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	settlements := cow.Match([]types.ParsedOrder{a, c})
	if len(settlements) != 0 {
		t.Fatalf("expected orders on disjoint pairs never to match, got %d", len(settlements))
	}
}

func TestMatchSortsByDescendingTotalSurplus(t *testing.T) {
	// Pair X/Y: a modest cross.
	a1 := mustParse(t, types.Order{
		UID: "a1", SellToken: tokenX, BuyToken: tokenY,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(950),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})
	b1 := mustParse(t, types.Order{
		UID: "b1", SellToken: tokenY, BuyToken: tokenX,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(980),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})
	// Pair X/Z: a wide cross, much larger surplus.
	a2 := mustParse(t, types.Order{
		UID: "a2", SellToken: tokenX, BuyToken: tokenZ,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(500),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})
	b2 := mustParse(t, types.Order{
		UID: "b2", SellToken: tokenZ, BuyToken: tokenX,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(900),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	settlements := cow.Match([]types.ParsedOrder{a1, b1, a2, b2})
	if len(settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(settlements))
	}
	if settlements[0].OrderA.UID != "a2" {
		t.Fatalf("expected the wider-cross pair (a2/b2) ranked first, got %s", settlements[0].OrderA.UID)
	}
}

func TestMatchSkipsSameDirectionOrders(t *testing.T) {
	a := mustParse(t, types.Order{
		UID: "a", SellToken: tokenX, BuyToken: tokenY,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(900),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})
	a2 := mustParse(t, types.Order{
		UID: "a2", SellToken: tokenX, BuyToken: tokenY,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(850),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	settlements := cow.Match([]types.ParsedOrder{a, a2})
	if len(settlements) != 0 {
		t.Fatalf("expected two same-direction orders never to match each other, got %d", len(settlements))
	}
}
