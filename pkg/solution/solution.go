// Package solution implements C8, the solution builder and scorer: turns
// the uniform-price-enforced settlements into the wire-shaped Solution
// records the auction mechanism ranks, scoring each with the external
// prices C3 produced.
package solution

import (
	"errors"
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/pool"
	"github.com/johnayoung/cowsolver/pkg/types"
)

var (
	// ErrMissingPrice is returned when a settlement references a token C3
	// never priced; the settlement is dropped, not scored as zero.
	ErrMissingPrice = errors.New("solution: missing external price for settlement token")
	// ErrNonPositiveScore is returned for a settlement whose computed
	// score is <= 0 (spec §4.8).
	ErrNonPositiveScore = errors.New("solution: non-positive score")
	// ErrInteractionRequote is returned when reconstructing a route's
	// per-hop interactions fails against the current pool snapshot.
	ErrInteractionRequote = errors.New("solution: route re-quote failed while building interactions")
)

// CoWGasEstimate is the gas constant spec §4.8 calls for ("a CoW-specific
// constant for C5") without naming a value. A CoW settlement touches no
// router or pool contract — it is a pure internal transfer between two
// orders — so it is priced well below even a single AMM hop's 150_000;
// 94_000 matches the rough order of magnitude real settlement contracts
// report for a two-order internal match, and is treated as a fixed
// constant rather than derived, exactly as the spec's own "or a
// CoW-specific constant" phrasing implies.
const CoWGasEstimate uint64 = 94_000

// DropEvent records why a candidate solution never reached the ranked
// output, for C9's structured drop-event logging (spec §7).
type DropEvent struct {
	Reason error
	Pair   types.DirectedPair
}

// Build converts every settlement into a scored Solution, drops any with
// score <= 0 (spec §4.8), and returns the survivors sorted by descending
// score with sequential ids assigned in that final order. idx is needed to
// re-quote each route's per-hop amounts for the Interactions list; prices
// is C3's external-price map; gasPrice is the auction's effective gas
// price, already ETH-denominated per spec §4.8's literal formulas.
func Build(idx *pool.Index, settlements []types.Settlement, prices map[types.Token]*uint256.Int, gasPrice *uint256.Int) ([]types.Solution, []DropEvent) {
	type scored struct {
		solution types.Solution
		score    *big.Int
	}

	var candidates []scored
	var dropped []DropEvent

	for _, s := range settlements {
		score, ok := scoreSettlement(s, prices, gasPrice)
		if !ok {
			dropped = append(dropped, DropEvent{Reason: ErrMissingPrice, Pair: s.Pair})
			continue
		}
		if score.Sign() <= 0 {
			dropped = append(dropped, DropEvent{Reason: ErrNonPositiveScore, Pair: s.Pair})
			continue
		}

		interactions := buildInteractions(idx, s)
		if interactions == nil {
			dropped = append(dropped, DropEvent{Reason: ErrInteractionRequote, Pair: s.Pair})
			continue
		}

		scoreUint, overflow := uint256.FromBig(score)
		if overflow {
			dropped = append(dropped, DropEvent{Reason: ErrNonPositiveScore, Pair: s.Pair})
			continue
		}

		sol := types.Solution{
			Prices:       buildPrices(s, prices),
			Trades:       buildTrades(s),
			Interactions: interactions,
			Gas:          gasOf(s),
			Score:        scoreUint,
		}
		candidates = append(candidates, scored{solution: sol, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score.Cmp(candidates[j].score) > 0
	})

	out := make([]types.Solution, len(candidates))
	for i, c := range candidates {
		c.solution.ID = i + 1
		out[i] = c.solution
	}
	return out, dropped
}

func gasOf(s types.Settlement) uint64 {
	if s.Kind == types.SettlementKindCoW {
		return CoWGasEstimate
	}
	return s.Gas
}

func buildPrices(s types.Settlement, prices map[types.Token]*uint256.Int) map[types.Token]*uint256.Int {
	out := make(map[types.Token]*uint256.Int, 2)
	if p, ok := prices[s.Pair.Sell]; ok {
		out[s.Pair.Sell] = p
	}
	if p, ok := prices[s.Pair.Buy]; ok {
		out[s.Pair.Buy] = p
	}
	return out
}

// buildTrades records each order's executed amount: the input (sell) side
// for a Sell-kind order, the output (buy) side for a Buy-kind order (spec
// §4.8). A CoW's two participants both execute on their sell side — the
// match itself is defined symmetrically as "A sells X, B sells Y" (spec
// §4.5) independent of either order's wire-level Kind field.
func buildTrades(s types.Settlement) []types.Trade {
	if s.Kind == types.SettlementKindCoW {
		bSellAmount, err := fixedpoint.MulDivScaled(s.MatchedAmount, s.ClearingPrice)
		if err != nil {
			bSellAmount = fixedpoint.Zero()
		}
		return []types.Trade{
			{OrderUID: s.OrderA.UID, ExecutedAmount: s.MatchedAmount},
			{OrderUID: s.OrderB.UID, ExecutedAmount: bSellAmount},
		}
	}

	executed := s.InputAmount
	if s.Order.Kind == types.OrderKindBuy {
		executed = s.OutputAmount
	}
	return []types.Trade{{OrderUID: s.Order.UID, ExecutedAmount: executed}}
}

// buildInteractions reconstructs the on-chain description of a route hop
// by hop via a C2 re-quote (the settlement only carries the route's pool
// references and its aggregate input/output, not a per-hop breakdown). If
// the uniform-price enforcer (C7) snapped this settlement's clearing
// price, the reconstructed per-hop amounts reflect each pool's own
// marginal price rather than the snapped aggregate — a known limitation;
// a full implementation would need to distribute the snap across hops via
// on-chain slippage parameters, which is out of scope here.
func buildInteractions(idx *pool.Index, s types.Settlement) []types.Interaction {
	if s.Kind == types.SettlementKindCoW {
		outputAmount, err := fixedpoint.MulDivScaled(s.MatchedAmount, s.ClearingPrice)
		if err != nil {
			return nil
		}
		return []types.Interaction{{
			Internalize:  true,
			InputToken:   s.Pair.Sell,
			OutputToken:  s.Pair.Buy,
			InputAmount:  s.MatchedAmount,
			OutputAmount: outputAmount,
		}}
	}

	interactions := make([]types.Interaction, 0, len(s.Route))
	amount := s.InputAmount
	for _, ref := range s.Route {
		p := &idx.Pools[ref.Index]
		out, err := pool.Quote(p, ref.TokenIn, ref.TokenOut, amount)
		if err != nil {
			return nil
		}
		interactions = append(interactions, types.Interaction{
			InputToken:   ref.TokenIn,
			OutputToken:  ref.TokenOut,
			InputAmount:  amount,
			OutputAmount: out,
			PoolAddress:  p.Address,
		})
		amount = out
	}
	return interactions
}

// scoreSettlement implements the three score formulas of spec §4.8
// exactly, returning ok=false when a required external price is missing
// (the settlement is dropped upstream of the score<=0 filter in that
// case, since a missing price makes scoring impossible rather than merely
// unprofitable).
func scoreSettlement(s types.Settlement, prices map[types.Token]*uint256.Int, gasPrice *uint256.Int) (*big.Int, bool) {
	gas := gasOf(s)
	gasCost := new(big.Int).Mul(gasPrice.ToBig(), new(big.Int).SetUint64(gas))

	switch s.Kind {
	case types.SettlementKindCoW:
		priceBuy, ok1 := prices[s.Pair.Buy]
		priceSell, ok2 := prices[s.Pair.Sell]
		if !ok1 || !ok2 {
			return nil, false
		}
		sellerTerm, err1 := fixedpoint.MulDivScaled(s.SurplusA, priceBuy)
		buyerTerm, err2 := fixedpoint.MulDivScaled(s.SurplusB, priceSell)
		if err1 != nil || err2 != nil {
			return nil, false
		}
		gross := new(big.Int).Add(sellerTerm.ToBig(), buyerTerm.ToBig())
		return gross.Sub(gross, gasCost), true

	case types.SettlementKindRoute:
		priceBuy, ok := prices[s.Pair.Buy]
		if !ok {
			return nil, false
		}
		var gross *uint256.Int
		var err error
		switch s.Order.Kind {
		case types.OrderKindSell:
			gross, err = fixedpoint.MulDivScaled(s.Surplus, priceBuy)
		case types.OrderKindBuy:
			step, stepErr := fixedpoint.MulDivScaled(s.Surplus, priceBuy)
			if stepErr != nil {
				return nil, false
			}
			gross, err = fixedpoint.MulDivScaled(step, s.Order.LimitPrice)
		}
		if err != nil {
			return nil, false
		}
		result := new(big.Int).Sub(gross.ToBig(), gasCost)
		return result, true
	}

	return nil, false
}
