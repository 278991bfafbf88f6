package pathfinder_test

import (
	"context"
	"testing"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/order"
	"github.com/johnayoung/cowsolver/pkg/pathfinder"
	"github.com/johnayoung/cowsolver/pkg/pool"
	"github.com/johnayoung/cowsolver/pkg/types"
)

var (
	tokenA = types.TokenFromHex("0x0000000000000000000000000000000000000001")
	tokenB = types.TokenFromHex("0x0000000000000000000000000000000000000002")
	weth   = types.TokenFromHex("0x0000000000000000000000000000000000000003")
)

func cpPool(addr string, tokA, tokB types.Token, reserveA, reserveB uint64) types.Pool {
	return types.Pool{
		Address:  addr,
		Tokens:   []types.Token{tokA, tokB},
		Reserves: []*uint256.Int{uint256.NewInt(reserveA), uint256.NewInt(reserveB)},
		Variant:  types.PoolConstantProduct,
		FeeBps:   30,
	}
}

func mustParse(t *testing.T, o types.Order) *types.ParsedOrder {
	t.Helper()
	p, err := order.Parse(o, 0)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return p
}

// onePrice returns a prices map quoting tok at 1 ETH per unit (PRECISION
// scaled), enough to satisfy FindRoute's surplus-token lookup without
// affecting the ETH-terms surplus math in tests that don't care about the
// conversion itself.
func onePrice(tok types.Token) map[types.Token]*uint256.Int {
	return map[types.Token]*uint256.Int{tok: fixedpoint.One()}
}

func TestFindRouteDirectSingleHop(t *testing.T) {
	p := cpPool("pool-ab", tokenA, tokenB, 1_000_000, 1_000_000)
	idx := pool.NewIndex([]types.Pool{p})
	pf := pathfinder.New(idx, []types.Token{weth})

	o := mustParse(t, types.Order{
		UID: "o1", SellToken: tokenA, BuyToken: tokenB,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(1),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	s, err := pf.FindRoute(o, onePrice(tokenB), fixedpoint.Zero())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Route) != 1 {
		t.Fatalf("expected 1-hop route, got %d hops", len(s.Route))
	}
	if s.Gas != 150_000 {
		t.Fatalf("expected single-hop gas 150000, got %d", s.Gas)
	}
}

func TestFindRouteTwoHopRequired(t *testing.T) {
	aWeth := cpPool("pool-a-weth", tokenA, weth, 1_000_000, 1_000_000)
	wethB := cpPool("pool-weth-b", weth, tokenB, 1_000_000, 1_000_000)
	idx := pool.NewIndex([]types.Pool{aWeth, wethB})
	pf := pathfinder.New(idx, []types.Token{weth})

	o := mustParse(t, types.Order{
		UID: "o1", SellToken: tokenA, BuyToken: tokenB,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(1),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	s, err := pf.FindRoute(o, onePrice(tokenB), fixedpoint.Zero())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Route) != 2 {
		t.Fatalf("expected 2-hop route, got %d hops", len(s.Route))
	}
	if s.Gas != 250_000 {
		t.Fatalf("expected two-hop gas 250000, got %d", s.Gas)
	}
}

func TestFindRoutePrefersDirectOverMultiHopWhenBothProfitable(t *testing.T) {
	direct := cpPool("pool-direct", tokenA, tokenB, 1_000_000, 1_000_000)
	aWeth := cpPool("pool-a-weth", tokenA, weth, 1_000_000, 1_000_000)
	wethB := cpPool("pool-weth-b", weth, tokenB, 1_000_000, 1_000_000)
	idx := pool.NewIndex([]types.Pool{direct, aWeth, wethB})
	pf := pathfinder.New(idx, []types.Token{weth})

	o := mustParse(t, types.Order{
		UID: "o1", SellToken: tokenA, BuyToken: tokenB,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(1),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	s, err := pf.FindRoute(o, onePrice(tokenB), fixedpoint.Zero())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Route) != 1 {
		t.Fatalf("expected the direct 1-hop route to win on higher net surplus, got %d hops", len(s.Route))
	}
}

func TestFindRouteNoRouteExists(t *testing.T) {
	idx := pool.NewIndex(nil)
	pf := pathfinder.New(idx, []types.Token{weth})

	o := mustParse(t, types.Order{
		UID: "o1", SellToken: tokenA, BuyToken: tokenB,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(1),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	if _, err := pf.FindRoute(o, onePrice(tokenB), fixedpoint.Zero()); err != pathfinder.ErrNoProfitableRoute {
		t.Fatalf("expected ErrNoProfitableRoute, got %v", err)
	}
}

func TestFindRouteRejectsWhenGasExceedsSurplus(t *testing.T) {
	p := cpPool("pool-ab", tokenA, tokenB, 1_000_000_000, 1_000_000_000)
	idx := pool.NewIndex([]types.Pool{p})
	pf := pathfinder.New(idx, []types.Token{weth})

	o := mustParse(t, types.Order{
		UID: "o1", SellToken: tokenA, BuyToken: tokenB,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(1),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	hugeGasPrice := fixedpoint.One()
	if _, err := pf.FindRoute(o, onePrice(tokenB), hugeGasPrice); err != pathfinder.ErrNoProfitableRoute {
		t.Fatalf("expected gas to swamp the tiny surplus and yield ErrNoProfitableRoute, got %v", err)
	}
}

func TestFindRoutesReportsDropEventsInOrder(t *testing.T) {
	p := cpPool("pool-ab", tokenA, tokenB, 1_000_000, 1_000_000)
	idx := pool.NewIndex([]types.Pool{p})
	pf := pathfinder.New(idx, []types.Token{weth})

	good := mustParse(t, types.Order{
		UID: "good", SellToken: tokenA, BuyToken: tokenB,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(1),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})
	bad := mustParse(t, types.Order{
		UID: "bad", SellToken: tokenB, BuyToken: weth,
		SellAmount: uint256.NewInt(1000), BuyAmount: uint256.NewInt(1),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	prices := map[types.Token]*uint256.Int{tokenB: fixedpoint.One(), weth: fixedpoint.One()}
	settlements, dropped := pf.FindRoutes(context.Background(), []*types.ParsedOrder{good, bad}, prices, fixedpoint.Zero())
	if len(settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(settlements))
	}
	if len(dropped) != 1 || dropped[0].OrderUID != "bad" {
		t.Fatalf("expected 1 drop event for 'bad', got %+v", dropped)
	}
	if dropped[0].Reason != pathfinder.ErrNoProfitableRoute {
		t.Fatalf("expected 'bad' to be dropped for lacking any route, got %v", dropped[0].Reason)
	}
}

// TestFindRouteConvertsSurplusToETHBeforeComparingGas pins the bug a
// maintainer review caught: gas cost is ETH-denominated, but route surplus
// lands in the order's buy-token units, so comparing them directly (no
// price conversion) silently gates profitable routes. Here the raw
// tokenB-denominated surplus is smaller than the raw gas cost, so a
// same-units comparison would wrongly reject the route; only after scaling
// by a non-1:1 tokenB/ETH price does the route clear gas, and FindRoute must
// find it.
func TestFindRouteConvertsSurplusToETHBeforeComparingGas(t *testing.T) {
	p := cpPool("pool-ab", tokenA, tokenB, 1_000_000, 2_000_000)
	idx := pool.NewIndex([]types.Pool{p})
	pf := pathfinder.New(idx, []types.Token{weth})

	o := mustParse(t, types.Order{
		UID: "o1", SellToken: tokenA, BuyToken: tokenB,
		SellAmount: uint256.NewInt(100_000), BuyAmount: uint256.NewInt(1),
		Kind: types.OrderKindSell, ValidTo: 1000,
	})

	gasPrice := uint256.NewInt(10)

	rawSurplusPrice := onePrice(tokenB)
	if _, err := pf.FindRoute(o, rawSurplusPrice, gasPrice); err != pathfinder.ErrNoProfitableRoute {
		t.Fatalf("expected the unscaled (1:1) price to leave surplus below gas cost, got %v", err)
	}

	tokenBPrice, err := fixedpoint.Mul(fixedpoint.One(), uint256.NewInt(20))
	if err != nil {
		t.Fatalf("unexpected overflow building test price: %v", err)
	}
	richPrices := map[types.Token]*uint256.Int{tokenB: tokenBPrice}

	s, err := pf.FindRoute(o, richPrices, gasPrice)
	if err != nil {
		t.Fatalf("expected the 20x tokenB/ETH price to convert surplus above gas cost, got %v", err)
	}
	if s.Surplus.IsZero() {
		t.Fatalf("expected a non-zero raw surplus")
	}
}
