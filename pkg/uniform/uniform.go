// Package uniform implements C7, the uniform-price enforcer: within each
// directional group of settlements sharing the same (sell_token, buy_token)
// pair, every settlement must clear at the same price — no user in a group
// may receive a worse effective price than any other in the same group
// (spec §4.7).
package uniform

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// Enforce groups settlements by DirectedPair. A group of size 1, or a
// group whose clearing prices already agree, moves straight to Included.
// Any other group is snapped to its median clearing price, every member's
// surplus recomputed at that price, and members whose recomputed surplus
// is non-positive are dropped (spec §4.7 steps 1-4). Settlements in state
// Dropped are filtered from the result.
func Enforce(settlements []types.Settlement) []types.Settlement {
	out := make([]types.Settlement, len(settlements))
	copy(out, settlements)

	groups := make(map[types.DirectedPair][]int)
	for i, s := range out {
		groups[s.Pair] = append(groups[s.Pair], i)
	}

	keys := make([]types.DirectedPair, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	for _, pair := range keys {
		indices := groups[pair]
		if len(indices) < 2 || pricesAgree(out, indices) {
			for _, i := range indices {
				out[i].State = types.SettlementIncluded
			}
			continue
		}

		median := medianPrice(out, indices)
		for _, i := range indices {
			out[i] = snapToMedian(out[i], median)
		}
	}

	result := make([]types.Settlement, 0, len(out))
	for _, s := range out {
		if s.State != types.SettlementDropped {
			result = append(result, s)
		}
	}
	return result
}

func pricesAgree(settlements []types.Settlement, indices []int) bool {
	first := settlements[indices[0]].ClearingPrice
	for _, i := range indices[1:] {
		if settlements[i].ClearingPrice.Cmp(first) != 0 {
			return false
		}
	}
	return true
}

// medianPrice sorts the group's clearing prices and returns the middle
// value (or the average of the two middle values for an even-sized
// group — the spec names "the median" without pinning a tie convention
// for even counts, so this follows the standard statistical definition).
func medianPrice(settlements []types.Settlement, indices []int) *uint256.Int {
	prices := make([]*uint256.Int, len(indices))
	for j, i := range indices {
		prices[j] = settlements[i].ClearingPrice
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Cmp(prices[j]) < 0 })

	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return new(uint256.Int).Set(prices[mid])
	}
	sum, err := fixedpoint.Add(prices[mid-1], prices[mid])
	if err != nil {
		return new(uint256.Int).Set(prices[mid])
	}
	return new(uint256.Int).Div(sum, uint256.NewInt(2))
}

// snapToMedian overwrites s's clearing price to median and recomputes its
// surplus under the same sign convention §4.5 uses (CoW's two-sided
// formula, or for a route of either kind the sell-order formula, plus an
// output check for buy orders),
// transitioning to Uniform-Adjusted -> Included, or straight to Dropped if
// the recomputed surplus is not strictly positive.
func snapToMedian(s types.Settlement, median *uint256.Int) types.Settlement {
	s.State = types.SettlementUniformAdjusted
	s.ClearingPrice = median

	switch s.Kind {
	case types.SettlementKindCoW:
		surplusA, okA := surplusVsLimit(s.MatchedAmount, median, s.OrderA.LimitPrice)
		reciprocalMedian, err1 := fixedpoint.DivScaled(fixedpoint.Precision, median)
		reciprocalBLimit, err2 := fixedpoint.DivScaled(fixedpoint.Precision, s.OrderB.LimitPrice)
		if err1 != nil || err2 != nil {
			s.State = types.SettlementDropped
			return s
		}
		surplusB, okB := surplusVsLimit(s.MatchedAmount, reciprocalMedian, reciprocalBLimit)
		if !okA || !okB {
			s.State = types.SettlementDropped
			return s
		}
		s.SurplusA = surplusA
		s.SurplusB = surplusB
		s.State = types.SettlementIncluded

	case types.SettlementKindRoute:
		newOutput, err := fixedpoint.MulDivScaled(s.InputAmount, median)
		if err != nil {
			s.State = types.SettlementDropped
			return s
		}
		// Once the price is snapped, the order's effective rate is just
		// median vs. its own limit price regardless of kind — the same
		// formula C5/C6 use for a sell order. A buy order additionally
		// needs the snapped output to still clear its requested amount,
		// since its amount is fixed on the output side.
		surplus, ok := surplusVsLimit(s.InputAmount, median, s.Order.LimitPrice)
		if ok && s.Order.Kind == types.OrderKindBuy && newOutput.Cmp(s.Order.BuyAmount) < 0 {
			ok = false
		}
		if !ok {
			s.State = types.SettlementDropped
			return s
		}
		s.OutputAmount = newOutput
		s.Surplus = surplus
		s.State = types.SettlementIncluded
	}

	return s
}

// surplusVsLimit computes amount * (achieved - limit) / PRECISION,
// reporting ok=false if achieved <= limit (non-positive surplus).
func surplusVsLimit(amount, achieved, limit *uint256.Int) (*uint256.Int, bool) {
	diff, err := fixedpoint.Sub(achieved, limit)
	if err != nil || diff.IsZero() {
		return nil, false
	}
	surplus, err := fixedpoint.MulDivScaled(amount, diff)
	if err != nil || surplus.IsZero() {
		return nil, false
	}
	return surplus, true
}
