// Package cow implements C5, the CoW (coincidence-of-wants) matcher:
// pairwise cross-direction matching of parsed orders on the same
// unordered token pair, at the geometric mean of the two orders'
// limit prices.
//
// Match never mutates its input and never decides which candidates are
// ultimately used — spec §4.5 leaves duplicate-consumption prevention to
// the Solver Driver's "settled set", so Match returns every crossing pair
// as a candidate Settlement, sorted by descending total surplus, and lets
// the caller walk the list greedily.
package cow

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// precisionSquared is PRECISION^2, the crossing-test threshold for the
// product of two PRECISION-scaled limit prices.
var precisionSquared = new(uint256.Int).Mul(fixedpoint.Precision, fixedpoint.Precision)

// unorderedPair groups two orders on the same market regardless of which
// side sells which token.
type unorderedPair struct {
	low, high types.Token
}

func newUnorderedPair(x, y types.Token) unorderedPair {
	if x.String() <= y.String() {
		return unorderedPair{low: x, high: y}
	}
	return unorderedPair{low: y, high: x}
}

// Match groups orders by unordered token pair and performs pairwise
// cross-direction matching within each group (spec §4.5). The returned
// settlements are candidates in state Proposed, sorted by descending
// total surplus; it is the caller's job to accept them greedily against
// a settled-order set.
func Match(orders []types.ParsedOrder) []types.Settlement {
	groups := make(map[unorderedPair][]types.ParsedOrder)
	for _, o := range orders {
		key := newUnorderedPair(o.SellToken, o.BuyToken)
		groups[key] = append(groups[key], o)
	}

	keys := make([]unorderedPair, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].low.String() != keys[j].low.String() {
			return keys[i].low.String() < keys[j].low.String()
		}
		return keys[i].high.String() < keys[j].high.String()
	})

	var candidates []types.Settlement
	for _, k := range keys {
		candidates = append(candidates, matchGroup(groups[k], k)...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return totalSurplus(&candidates[i]).Cmp(totalSurplus(&candidates[j])) > 0
	})
	return candidates
}

// matchGroup considers every (a, b) pair within a single unordered-pair
// group where a sells pair.low and b sells pair.high, i.e. the two
// directions of the same market.
func matchGroup(orders []types.ParsedOrder, pair unorderedPair) []types.Settlement {
	var sellLow, sellHigh []*types.ParsedOrder
	for i := range orders {
		o := &orders[i]
		if o.SellToken == pair.low {
			sellLow = append(sellLow, o)
		} else {
			sellHigh = append(sellHigh, o)
		}
	}

	var out []types.Settlement
	for _, a := range sellLow {
		for _, b := range sellHigh {
			if s, ok := tryMatch(a, b); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// tryMatch tests whether a (sells X for Y) and b (sells Y for X) cross,
// and if so computes the CoW settlement between them (spec §4.5).
func tryMatch(a, b *types.ParsedOrder) (types.Settlement, bool) {
	product, err := fixedpoint.Mul(a.LimitPrice, b.LimitPrice)
	if err != nil {
		// Product overflows 256 bits, meaning it is certainly > PRECISION^2:
		// the prices do not cross.
		return types.Settlement{}, false
	}
	if product.Cmp(precisionSquared) > 0 {
		return types.Settlement{}, false
	}

	matchedAmount := fixedpoint.Min(a.SellAmount, b.BuyAmount)
	if matchedAmount.IsZero() {
		return types.Settlement{}, false
	}

	clearingPrice := fixedpoint.Isqrt(product)
	if clearingPrice.IsZero() {
		return types.Settlement{}, false
	}

	surplusA, ok := surplusOf(matchedAmount, clearingPrice, a.LimitPrice)
	if !ok {
		return types.Settlement{}, false
	}

	clearingReciprocal, err := fixedpoint.DivScaled(fixedpoint.Precision, clearingPrice)
	if err != nil {
		return types.Settlement{}, false
	}
	bLimitReciprocal, err := fixedpoint.DivScaled(fixedpoint.Precision, b.LimitPrice)
	if err != nil {
		return types.Settlement{}, false
	}
	surplusB, ok := surplusOf(matchedAmount, clearingReciprocal, bLimitReciprocal)
	if !ok {
		return types.Settlement{}, false
	}

	return types.Settlement{
		Kind:          types.SettlementKindCoW,
		Pair:          types.DirectedPair{Sell: a.SellToken, Buy: a.BuyToken},
		State:         types.SettlementProposed,
		ClearingPrice: clearingPrice,
		OrderA:        a,
		OrderB:        b,
		MatchedAmount: matchedAmount,
		SurplusA:      surplusA,
		SurplusB:      surplusB,
	}, true
}

// surplusOf computes matched_amount * (achieved - limit) / PRECISION,
// returning ok=false if the difference underflows (achieved <= limit),
// since spec §4.5 requires both surpluses to be strictly positive.
func surplusOf(matchedAmount, achieved, limit *uint256.Int) (*uint256.Int, bool) {
	diff, err := fixedpoint.Sub(achieved, limit)
	if err != nil || diff.IsZero() {
		return nil, false
	}
	surplus, err := fixedpoint.MulDivScaled(matchedAmount, diff)
	if err != nil || surplus.IsZero() {
		return nil, false
	}
	return surplus, true
}

// totalSurplus combines SurplusA (in Pair.Buy units) and SurplusB (in
// Pair.Sell units) into one Pair.Buy-denominated figure for ranking —
// spec §4.5 asks for a "descending total_surplus" sort without pinning a
// common unit, so SurplusB is converted through the clearing price, the
// same rate the match itself executed at.
func totalSurplus(s *types.Settlement) *uint256.Int {
	convertedB, err := fixedpoint.MulDivScaled(s.SurplusB, s.ClearingPrice)
	if err != nil {
		convertedB = fixedpoint.Zero()
	}
	total, err := fixedpoint.Add(s.SurplusA, convertedB)
	if err != nil {
		return s.SurplusA
	}
	return total
}
