// Package pathfinder implements C6, the liquidity pathfinder: for a single
// order not consumed by a CoW match, it searches execution routes through
// the pool index and selects the route maximizing surplus net of gas.
//
// Direct (1-hop) routes are any pool quoting both the order's sell and buy
// token. Multi-hop routes (2-3 hops) descend only through a caller-supplied
// whitelist of intermediary tokens — spec §9's REDESIGN FLAG makes this
// whitelist a configuration value (see internal/config), never a package
// constant, so callers wire their own WETH/USDC/USDT/DAI/WBTC-style list in.
package pathfinder

import (
	"context"
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/pool"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// ErrNoProfitableRoute is returned when every candidate route either fails
// to quote or yields a non-positive net surplus; the order is reported
// unsettled, never treated as a solver-fatal error (spec §4.6).
var ErrNoProfitableRoute = errors.New("pathfinder: no profitable route found")

// ErrMissingSurplusPrice is returned when prices carries no entry for the
// order's surplus token, so net surplus (in ETH terms) cannot be computed
// at all — distinct from ErrNoProfitableRoute, which means routes were
// priced and compared but none cleared gas.
var ErrMissingSurplusPrice = errors.New("pathfinder: no ETH price available for order's surplus token")

// ErrDeadlineExceeded is the reason reported for every order FindRoutes
// never reached because the auction's context was cancelled mid-search
// (spec §4.9/§5: the driver's deadline propagates into C6).
var ErrDeadlineExceeded = errors.New("pathfinder: deadline exceeded before route search")

// defaultMaxHops is the spec §4.6 hop ceiling; Pathfinder.MaxHops
// overrides it when explicitly set (0 means "use the default").
const defaultMaxHops = 3

const (
	baseGas    = 150_000
	perHopGas  = 100_000
)

// Pathfinder searches routes over a fixed pool index and intermediary
// whitelist. It holds no per-order state, so one instance is reused across
// every unmatched order in an auction.
type Pathfinder struct {
	Index          *pool.Index
	Intermediaries []types.Token
	MaxHops        int
}

// New builds a Pathfinder over idx, routing through intermediaries as the
// only tokens a multi-hop route may pass through before its final hop.
func New(idx *pool.Index, intermediaries []types.Token) *Pathfinder {
	return &Pathfinder{Index: idx, Intermediaries: intermediaries}
}

func (pf *Pathfinder) maxHops() int {
	if pf.MaxHops > 0 {
		return pf.MaxHops
	}
	return defaultMaxHops
}

// candidateRoute is one complete hop sequence from an order's sell token
// to its buy token, not yet quoted.
type candidateRoute struct {
	route []types.PoolRef
}

// enumerateRoutes performs the BFS described in spec §4.6: direct pools are
// found at every depth (a pool whose other endpoint is the buy token
// completes the route regardless of whitelist membership); continuing past
// one hop requires the other endpoint to be in the whitelist, and a
// visited-set on token keyed per path prevents cycles.
func (pf *Pathfinder) enumerateRoutes(sell, buy types.Token) []candidateRoute {
	whitelist := make(map[types.Token]bool, len(pf.Intermediaries))
	for _, t := range pf.Intermediaries {
		whitelist[t] = true
	}

	var out []candidateRoute
	maxHops := pf.maxHops()

	var visit func(current types.Token, hops int, visited map[types.Token]bool, route []types.PoolRef)
	visit = func(current types.Token, hops int, visited map[types.Token]bool, route []types.PoolRef) {
		if hops >= maxHops {
			return
		}
		for _, pIdx := range pf.Index.PoolsForToken(current) {
			p := &pf.Index.Pools[pIdx]
			for _, next := range p.Tokens {
				if next == current {
					continue
				}
				ref := types.PoolRef{Index: pIdx, TokenIn: current, TokenOut: next}
				extended := make([]types.PoolRef, len(route), len(route)+1)
				copy(extended, route)
				extended = append(extended, ref)

				if next == buy {
					out = append(out, candidateRoute{route: extended})
					continue
				}
				if !whitelist[next] || visited[next] {
					continue
				}
				nextVisited := make(map[types.Token]bool, len(visited)+1)
				for k := range visited {
					nextVisited[k] = true
				}
				nextVisited[next] = true
				visit(next, hops+1, nextVisited, extended)
			}
		}
	}

	visit(sell, 0, map[types.Token]bool{sell: true}, nil)
	return out
}

// quoteRoute runs amountIn through every hop via C2's Quote, in order,
// returning the first hop's error unmodified so the caller can skip just
// this route (spec §4.6: "reject the path if any hop fails").
func (pf *Pathfinder) quoteRoute(route []types.PoolRef, amountIn *uint256.Int) (*uint256.Int, error) {
	amount := amountIn
	for _, ref := range route {
		p := &pf.Index.Pools[ref.Index]
		out, err := pool.Quote(p, ref.TokenIn, ref.TokenOut, amount)
		if err != nil {
			return nil, err
		}
		amount = out
	}
	return amount, nil
}

func gasForHops(hops int) uint64 {
	return baseGas + perHopGas*uint64(hops-1)
}

// surplusForSell mirrors the CoW "A" formula (spec §4.5): sellAmount *
// (clearingPrice - limitPrice) / PRECISION, in buy-token units.
func surplusForSell(sellAmount, clearingPrice, limitPrice *uint256.Int) (*uint256.Int, bool) {
	diff, err := fixedpoint.Sub(clearingPrice, limitPrice)
	if err != nil || diff.IsZero() {
		return nil, false
	}
	surplus, err := fixedpoint.MulDivScaled(sellAmount, diff)
	if err != nil || surplus.IsZero() {
		return nil, false
	}
	return surplus, true
}

// surplusForBuy handles the ambiguity spec.md's own Open Questions section
// flags ("buy-order surplus in multi-hop routes ... may not agree with the
// single-hop formula"): a buy order's amount is fixed on the *output* side,
// but C2's Quote is forward-only (amount-in -> amount-out), so there is no
// per-pool inverse to call. This quotes forward with the order's full
// MaxSellAfterFee budget, requires the resulting output to cover
// order.BuyAmount, and then approximates the sell-token amount that would
// have produced exactly BuyAmount by scaling the quoted input down
// proportionally to output — exact only for a locally linear price, which
// is the same approximation spec §4.2's "no tick crossing" licenses
// elsewhere. The result is the order's surplus in sell-token units: budget
// left unspent versus what was actually needed.
func surplusForBuy(maxSellAfterFee, buyAmount, outputAmount *uint256.Int) (*uint256.Int, bool) {
	if outputAmount.Cmp(buyAmount) < 0 {
		return nil, false
	}
	requiredInput, err := fixedpoint.MulDiv(maxSellAfterFee, buyAmount, outputAmount)
	if err != nil {
		return nil, false
	}
	surplus, err := fixedpoint.Sub(maxSellAfterFee, requiredInput)
	if err != nil || surplus.IsZero() {
		return nil, false
	}
	return surplus, true
}

// FindRoute searches every candidate route for order and returns the one
// with maximum net surplus in ETH terms (surplus converted via prices,
// minus gas*gasPrice), ties broken by fewer hops then lower gas. gasPrice
// is the auction's raw effective gas price, already ETH/wei-denominated
// (spec §4.6: "convert to ETH via a caller-supplied gas price"); surplus
// itself lands in the order's surplus token (buy-token units for a Sell
// order, sell-token units for a Buy order — see surplusForSell/
// surplusForBuy), so FindRoute converts it into the same ETH terms via
// prices[surplusToken] before comparing. For a Sell order this is the same
// conversion C8's scoreSettlement applies; for a Buy order C8 instead
// converts through the buy-token price times the limit price. Returns
// ErrMissingSurplusPrice if prices has no entry for the surplus token at
// all, or ErrNoProfitableRoute if every priced route nets non-positive.
func (pf *Pathfinder) FindRoute(order *types.ParsedOrder, prices map[types.Token]*uint256.Int, gasPrice *uint256.Int) (*types.Settlement, error) {
	surplusToken := order.BuyToken
	if order.Kind == types.OrderKindBuy {
		surplusToken = order.SellToken
	}
	surplusPrice, havePrice := prices[surplusToken]
	if !havePrice || surplusPrice == nil || surplusPrice.IsZero() {
		return nil, ErrMissingSurplusPrice
	}

	candidates := pf.enumerateRoutes(order.SellToken, order.BuyToken)

	var best *types.Settlement
	var bestNet *big.Int
	var bestHops int
	var bestGas uint64

	amountIn := order.SellAmount
	if order.Kind == types.OrderKindBuy {
		amountIn = order.MaxSellAfterFee
	}

	for _, c := range candidates {
		output, err := pf.quoteRoute(c.route, amountIn)
		if err != nil {
			// A single unquotable hop never aborts the search (spec §4.6).
			continue
		}

		clearingPrice, err := fixedpoint.DivScaled(output, amountIn)
		if err != nil {
			continue
		}

		var surplus *uint256.Int
		var ok bool
		switch order.Kind {
		case types.OrderKindSell:
			surplus, ok = surplusForSell(amountIn, clearingPrice, order.LimitPrice)
		case types.OrderKindBuy:
			surplus, ok = surplusForBuy(amountIn, order.BuyAmount, output)
		}
		if !ok {
			continue
		}

		surplusETH, err := fixedpoint.MulDivScaled(surplus, surplusPrice)
		if err != nil {
			continue
		}

		hops := len(c.route)
		gas := gasForHops(hops)
		gasCost := new(big.Int).Mul(gasPrice.ToBig(), new(big.Int).SetUint64(gas))
		net := new(big.Int).Sub(surplusETH.ToBig(), gasCost)
		if net.Sign() <= 0 {
			continue
		}

		if best == nil || isBetter(net, hops, gas, bestNet, bestHops, bestGas) {
			best = &types.Settlement{
				Kind:          types.SettlementKindRoute,
				Pair:          types.DirectedPair{Sell: order.SellToken, Buy: order.BuyToken},
				State:         types.SettlementProposed,
				ClearingPrice: clearingPrice,
				Gas:           gas,
				Order:         order,
				Route:         append([]types.PoolRef{}, c.route...),
				InputAmount:   amountIn,
				OutputAmount:  output,
				Surplus:       surplus,
			}
			bestNet = net
			bestHops = hops
			bestGas = gas
		}
	}

	if best == nil {
		return nil, ErrNoProfitableRoute
	}
	return best, nil
}

// isBetter reports whether (net, hops, gas) beats the current best by net
// surplus, then fewer hops, then lower gas (spec §4.6 tie-break order).
func isBetter(net *big.Int, hops int, gas uint64, bestNet *big.Int, bestHops int, bestGas uint64) bool {
	if cmp := net.Cmp(bestNet); cmp != 0 {
		return cmp > 0
	}
	if hops != bestHops {
		return hops < bestHops
	}
	return gas < bestGas
}

// RouteDropEvent records why an order found no settlement through the
// pathfinder, for C9's structured drop logging.
type RouteDropEvent struct {
	OrderUID string
	Reason   error
}

// FindRoutes runs FindRoute over every order, returning the settlements
// found and a drop event for each order left unsettled — in the same
// relative order as orders, so downstream logging is deterministic. ctx
// carries the auction-wide deadline (spec §4.9); it is checked once per
// order rather than inside the BFS itself, since a single order's search
// is CPU-bound and fast enough that per-node checks would add overhead
// without changing outcomes. Once ctx is done, every remaining order is
// reported dropped with ErrDeadlineExceeded rather than searched. prices
// must already cover every order's surplus token — the caller (C9) runs
// the oracle aggregation before calling FindRoutes for exactly this
// reason.
func (pf *Pathfinder) FindRoutes(ctx context.Context, orders []*types.ParsedOrder, prices map[types.Token]*uint256.Int, gasPrice *uint256.Int) ([]types.Settlement, []RouteDropEvent) {
	var settlements []types.Settlement
	var dropped []RouteDropEvent
	for _, o := range orders {
		if ctx.Err() != nil {
			dropped = append(dropped, RouteDropEvent{OrderUID: o.UID, Reason: ErrDeadlineExceeded})
			continue
		}
		s, err := pf.FindRoute(o, prices, gasPrice)
		if err != nil {
			dropped = append(dropped, RouteDropEvent{OrderUID: o.UID, Reason: err})
			continue
		}
		settlements = append(settlements, *s)
	}
	return settlements, dropped
}
